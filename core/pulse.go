package core

// PulseSlot is one timed pulse pair as stored in channel memory.
// The layout matches the transmit peripheral's 32-bit item word:
//
//	bits  0-14: duration0
//	bit     15: level0
//	bits 16-30: duration1
//	bit     31: level1
//
// A slot whose duration0 is zero marks the end of a transmission.
type PulseSlot uint32

// EndMarker stops a channel when the hardware reads it
const EndMarker PulseSlot = 0

// MakePulse packs two level/duration phases into a slot
func MakePulse(level0 bool, duration0 uint32, level1 bool, duration1 uint32) PulseSlot {
	v := uint32(duration0&MaxPulseTicks) | uint32(duration1&MaxPulseTicks)<<16
	if level0 {
		v |= 1 << 15
	}
	if level1 {
		v |= 1 << 31
	}
	return PulseSlot(v)
}

// Duration0 returns the first phase length in ticks
func (p PulseSlot) Duration0() uint32 { return uint32(p) & MaxPulseTicks }

// Level0 returns the first phase output level
func (p PulseSlot) Level0() bool { return uint32(p)&(1<<15) != 0 }

// Duration1 returns the second phase length in ticks
func (p PulseSlot) Duration1() uint32 { return (uint32(p) >> 16) & MaxPulseTicks }

// Level1 returns the second phase output level
func (p PulseSlot) Level1() bool { return uint32(p)&(1<<31) != 0 }

// IsEnd reports whether the hardware stops on this slot
func (p PulseSlot) IsEnd() bool { return p.Duration0() == 0 }

// WithDuration1 returns a copy of p with the second phase replaced
func (p PulseSlot) WithDuration1(ticks uint32) PulseSlot {
	v := uint32(p) &^ (MaxPulseTicks << 16)
	return PulseSlot(v | (ticks&MaxPulseTicks)<<16)
}

// Waveform holds the precomputed slots for a logical 0 and a logical 1 plus
// the latch duration that terminates a frame. It is built once per
// transmitter and never changes afterwards.
type Waveform struct {
	Zero  PulseSlot
	One   PulseSlot
	Reset uint32 // Latch low time in ticks
}

// NewWaveform derives the bit templates from a protocol timing.
// High pulse width distinguishes the bits, so the one template must be
// strictly longer high than the zero template.
func NewWaveform(t Timing, clk Clock, resetNs uint32) (Waveform, error) {
	zeroHigh := clk.NsToTicks(t.T1)
	zeroLow := clk.NsToTicks(t.T2 + t.T3)
	oneHigh := clk.NsToTicks(t.T1 + t.T2)
	oneLow := clk.NsToTicks(t.T3)
	reset := clk.NsToTicks(resetNs)

	if zeroHigh == 0 || oneLow == 0 || oneHigh <= zeroHigh {
		return Waveform{}, ErrBadTiming
	}
	if zeroLow > MaxPulseTicks || oneHigh > MaxPulseTicks || reset > MaxPulseTicks {
		return Waveform{}, ErrDurationRange
	}

	return Waveform{
		Zero:  MakePulse(true, zeroHigh, false, zeroLow),
		One:   MakePulse(true, oneHigh, false, oneLow),
		Reset: reset,
	}, nil
}

// EncodeByte writes the eight slots for b into dst, most significant bit
// first. dst must hold at least 8 slots.
func (w *Waveform) EncodeByte(dst []PulseSlot, b byte) {
	_ = dst[7]
	for j := 0; j < 8; j++ {
		if b&0x80 != 0 {
			dst[j] = w.One
		} else {
			dst[j] = w.Zero
		}
		b <<= 1
	}
}

// Terminate stretches the low phase of p to the latch duration
func (w *Waveform) Terminate(p PulseSlot) PulseSlot {
	return p.WithDuration1(w.Reset)
}

// Threshold is the high duration separating a zero from a one
func (w *Waveform) Threshold() uint32 {
	return (w.Zero.Duration0() + w.One.Duration0()) / 2
}

// Bit decodes a single slot back to its logical value
func (w *Waveform) Bit(p PulseSlot) bool {
	return p.Duration0() > w.Threshold()
}

// DecodeByte reads eight slots back into a byte, MSB first
func (w *Waveform) DecodeByte(src []PulseSlot) byte {
	_ = src[7]
	var b byte
	for j := 0; j < 8; j++ {
		b <<= 1
		if w.Bit(src[j]) {
			b |= 1
		}
	}
	return b
}

// DecodeFrame converts a captured pulse frame back to bytes. Trailing
// slots that do not form a whole byte are ignored.
func (w *Waveform) DecodeFrame(pulses []PulseSlot) []byte {
	out := make([]byte, len(pulses)/8)
	for i := range out {
		out[i] = w.DecodeByte(pulses[i*8:])
	}
	return out
}
