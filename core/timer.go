package core

// Channel clock defaults. These match the transmit peripheral the engine was
// designed around: an 80MHz APB source divided by 2, giving 25ns ticks.
const (
	DefaultSourceHz = 80000000
	DefaultDivider  = 2

	// ResetNs is the low time that latches a clockless LED strip
	ResetNs = 50000

	// MaxPulseTicks is the largest duration a pulse slot can hold (15 bits)
	MaxPulseTicks = 0x7FFF
)

// Clock describes the tick source of a transmission channel
type Clock struct {
	SourceHz uint32 // Peripheral source clock
	Divider  uint8  // Channel clock divider
}

// DefaultClock returns the 40MHz (25ns) channel clock
func DefaultClock() Clock {
	return Clock{SourceHz: DefaultSourceHz, Divider: DefaultDivider}
}

// TicksPerSecond returns the channel tick rate after division
func (c Clock) TicksPerSecond() uint32 {
	if c.Divider == 0 {
		return c.SourceHz
	}
	return c.SourceHz / uint32(c.Divider)
}

// NsPerTick returns the length of one channel tick in nanoseconds
func (c Clock) NsPerTick() uint32 {
	tps := c.TicksPerSecond()
	if tps == 0 {
		return 0
	}
	return 1000000000 / tps
}

// NsToTicks converts nanoseconds to channel ticks (truncating, like the
// hardware divider does)
func (c Clock) NsToTicks(ns uint32) uint32 {
	npt := c.NsPerTick()
	if npt == 0 {
		return 0
	}
	return ns / npt
}

// TicksToNs converts channel ticks back to nanoseconds
func (c Clock) TicksToNs(ticks uint32) uint32 {
	return ticks * c.NsPerTick()
}

// Timing holds the three phase lengths, in nanoseconds, that define a
// clockless protocol:
//
//	zero bit: high T1,     low T2+T3
//	one bit:  high T1+T2,  low T3
type Timing struct {
	T1 uint32
	T2 uint32
	T3 uint32
}

// Common strip timings (nanoseconds)
var (
	TimingWS2812 = Timing{T1: 250, T2: 625, T3: 375}
	TimingSK6812 = Timing{T1: 300, T2: 600, T3: 300}
	TimingWS2811 = Timing{T1: 500, T2: 2000, T3: 2000}
)

// Period returns the total length of one encoded bit
func (t Timing) Period() uint32 {
	return t.T1 + t.T2 + t.T3
}
