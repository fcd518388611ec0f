package core

// ChannelBuffer is the circular pulse memory of one hardware channel.
// Hardware reads it; the transmitter bound to the channel writes it. Its
// capacity is fixed when the driver allocates it.
type ChannelBuffer struct {
	Slots []PulseSlot
}

// NewChannelBuffer allocates a buffer of the given slot capacity
func NewChannelBuffer(capacity int) *ChannelBuffer {
	return &ChannelBuffer{Slots: make([]PulseSlot, capacity)}
}

// Cap returns the slot capacity
func (b *ChannelBuffer) Cap() int {
	return len(b.Slots)
}

// Half returns the size of one double-buffering half
func (b *ChannelBuffer) Half() int {
	return len(b.Slots) / 2
}

// Clear zeroes every slot, leaving an end marker at the start
func (b *ChannelBuffer) Clear() {
	for i := range b.Slots {
		b.Slots[i] = EndMarker
	}
}
