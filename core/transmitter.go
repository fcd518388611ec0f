package core

// Pin identifies the output pin a transmitter drives
type Pin uint32

// Handle indexes a transmitter in the scheduler's arena
type Handle uint8

// NoHandle marks an idle channel
const NoHandle Handle = 0xFF

// Transmitter is one logical output stream. Records live in a fixed arena
// and are reused across cycles; only the cursor state is reset per cycle.
//
// A transmitter's cursor is touched by one context at a time: the
// main-line while priming it before the channel starts, then the refill
// interrupt for that channel.
type Transmitter struct {
	handle Handle
	pin    Pin
	timing Timing
	wave   Waveform
	mode   Mode

	// Geometry copied from the scheduler config
	fill   int
	colors int

	// Per-cycle state
	pixels  PixelSource
	loaded  bool
	channel int
	buf     *ChannelBuffer
	cur     int // Next slot in buf, wraps modulo capacity

	// Whole-frame pulses for ModePrecompute
	frame    []PulseSlot
	frameLen int
}

// Handle returns the arena index of the transmitter
func (t *Transmitter) Handle() Handle { return t.handle }

// Pin returns the output pin
func (t *Transmitter) Pin() Pin { return t.pin }

// Timing returns the protocol timing the waveform was built from
func (t *Transmitter) Timing() Timing { return t.timing }

// Waveform returns the bit templates
func (t *Transmitter) Waveform() Waveform { return t.wave }

// Cursor returns the next slot the refill routine will write
func (t *Transmitter) Cursor() int { return t.cur }

// Frame returns the precomputed pulses of the current cycle
func (t *Transmitter) Frame() []PulseSlot { return t.frame[:t.frameLen] }

// bind attaches the transmitter to a channel buffer and rewinds its cursor
func (t *Transmitter) bind(channel int, buf *ChannelBuffer) {
	t.channel = channel
	t.buf = buf
	t.cur = 0
}

// reset clears the per-cycle state once a cycle completes
func (t *Transmitter) reset() {
	t.pixels = nil
	t.loaded = false
	t.channel = -1
	t.buf = nil
	t.cur = 0
}

// fillNext writes one pixel's worth of slots at the cursor, or a run of
// end markers (half the buffer) once the source is exhausted. The last pixel of a frame gets
// its final low phase stretched to the latch duration.
func (t *Transmitter) fillNext() {
	slots := t.buf.Slots
	capacity := len(slots)
	cur := t.cur

	if !t.pixels.Has(1) {
		// No more data; idle out one half, the hardware stops at the first end marker
		for j := t.buf.Half(); j > 0; j-- {
			slots[cur] = EndMarker
			cur++
			if cur == capacity {
				cur = 0
			}
		}
		t.cur = cur
		return
	}

	one := t.wave.One
	zero := t.wave.Zero

	last := cur
	for k := 0; k < t.colors; k++ {
		b := t.pixels.LoadAndScale(k)
		for j := 0; j < 8; j++ {
			if b&0x80 != 0 {
				slots[cur] = one
			} else {
				slots[cur] = zero
			}
			b <<= 1
			last = cur
			cur++
			if cur == capacity {
				cur = 0
			}
		}
	}
	t.pixels.Advance()
	t.pixels.StepDither()

	if !t.pixels.Has(1) {
		slots[last] = t.wave.Terminate(slots[last])
	}
	t.cur = cur
}

// convertAll encodes the entire frame into the transmitter's own buffer.
// The buffer grows on demand and is kept for later cycles.
func (t *Transmitter) convertAll() {
	n := 0
	t.frameLen = 0

	expected := -1
	if sized, ok := t.pixels.(interface{ Len() int }); ok {
		expected = sized.Len() * t.fill
		if expected > len(t.frame) {
			t.growFrame(expected)
		}
	}

	for t.pixels.Has(1) {
		if n+t.fill > len(t.frame) {
			t.growFrame(n + t.fill)
		}
		for k := 0; k < t.colors; k++ {
			t.wave.EncodeByte(t.frame[n:], t.pixels.LoadAndScale(k))
			n += 8
		}
		t.pixels.Advance()
		t.pixels.StepDither()
	}
	if (expected >= 0 && n != expected) || n%t.fill != 0 {
		panic(errFrameMismatch)
	}
	if n == 0 {
		return
	}
	t.frame[n-1] = t.wave.Terminate(t.frame[n-1])
	t.frameLen = n
}

// growFrame doubles the frame buffer until it holds at least n slots
func (t *Transmitter) growFrame(n int) {
	size := len(t.frame)
	if size == 0 {
		size = t.fill * 8
	}
	for size < n {
		size *= 2
	}
	frame := make([]PulseSlot, size)
	copy(frame, t.frame)
	t.frame = frame
}
