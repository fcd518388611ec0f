package core

// InterruptHandler receives the transmit peripheral's interrupt status word
type InterruptHandler func(status uint32)

// ChannelDriver is the abstract transmit peripheral the scheduler drives.
// Platform-specific implementations handle the actual hardware.
//
// Drivers deliver events by calling the registered InterruptHandler from
// their interrupt (or interrupt-like) context. Calls never overlap, and a
// driver never calls the handler from inside one of its own methods.
type ChannelDriver interface {
	// NumChannels returns how many hardware channels exist
	NumChannels() int

	// Configure arms a channel: routes the pin and sets the clock divider
	Configure(ch int, pin Pin, divider uint8) error

	// Buffer returns the channel's pulse memory
	Buffer(ch int) *ChannelBuffer

	// SetRefillThreshold enables the threshold interrupt, raised every
	// time the hardware has sent the given number of slots. Zero disables it.
	SetRefillThreshold(ch int, pulses int)

	// WriteFrame hands a complete pulse frame to the channel. Used in
	// ModePrecompute instead of the channel buffer.
	WriteFrame(ch int, pulses []PulseSlot) error

	// Start begins transmission on a channel
	Start(ch int)

	// Stop halts a channel and disconnects its output pin
	Stop(ch int)

	// SetInterruptHandler installs the event callback
	SetInterruptHandler(h InterruptHandler)
}

// Status word layout, matching the peripheral's interrupt register:
// transmission done for channel n at bit 3n, threshold reached at bit 24+n.
const (
	txDoneShift      = 3
	txThresholdBase  = 24
	MaxStatusChannel = 8
)

// TxDoneBit returns the status bit for "transmission complete on ch"
func TxDoneBit(ch int) uint32 {
	return 1 << uint(ch*txDoneShift)
}

// TxThresholdBit returns the status bit for "threshold reached on ch"
func TxThresholdBit(ch int) uint32 {
	return 1 << uint(txThresholdBase+ch)
}
