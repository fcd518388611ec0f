package core

import (
	"testing"
)

func newTestTransmitter(t *testing.T, mode Mode) *Transmitter {
	t.Helper()
	w, err := NewWaveform(TimingWS2812, DefaultClock(), ResetNs)
	if err != nil {
		t.Fatalf("NewWaveform failed: %v", err)
	}
	return &Transmitter{
		wave:    w,
		mode:    mode,
		fill:    24,
		colors:  3,
		channel: -1,
	}
}

func TestFillNextPrimesTwoPixels(t *testing.T) {
	tx := newTestTransmitter(t, ModeIncremental)
	buf := NewChannelBuffer(DefaultMaxPulses)
	tx.pixels = NewPixelBuffer([]byte{0xFF, 0x00, 0x80, 0x01, 0x02, 0x03, 0x10, 0x20, 0x30}, OrderRGB)
	tx.bind(0, buf)

	tx.fillNext()
	tx.fillNext()

	if tx.Cursor() != 48 {
		t.Fatalf("Expected cursor 48 after two fills, got %d", tx.Cursor())
	}

	got := tx.wave.DecodeFrame(buf.Slots[:48])
	want := []byte{0xFF, 0x00, 0x80, 0x01, 0x02, 0x03}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Byte %d: expected 0x%02X, got 0x%02X", i, want[i], got[i])
		}
	}

	// Pixel data remains, so nothing is stretched yet
	if buf.Slots[47].Duration1() == tx.wave.Reset {
		t.Error("Latch applied before the last pixel")
	}
}

func TestFillNextWrapsAndTerminates(t *testing.T) {
	tx := newTestTransmitter(t, ModeIncremental)
	buf := NewChannelBuffer(DefaultMaxPulses)
	tx.pixels = NewPixelBuffer([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, OrderRGB)
	tx.bind(0, buf)

	tx.fillNext()
	tx.fillNext()
	tx.fillNext() // Third pixel lands on 48..63 then 0..7

	if tx.Cursor() != 8 {
		t.Fatalf("Expected cursor to wrap to 8, got %d", tx.Cursor())
	}

	var third []PulseSlot
	third = append(third, buf.Slots[48:64]...)
	third = append(third, buf.Slots[0:8]...)
	got := tx.wave.DecodeFrame(third)
	if got[0] != 7 || got[1] != 8 || got[2] != 9 {
		t.Errorf("Wrapped pixel decoded as %v", got)
	}

	// Last pixel: its final slot (index 7 after the wrap) carries the latch
	if buf.Slots[7].Duration1() != tx.wave.Reset {
		t.Errorf("Expected latch on slot 7, got low phase %d", buf.Slots[7].Duration1())
	}
	if buf.Slots[6].Duration1() == tx.wave.Reset {
		t.Error("Latch applied to more than one slot")
	}

	// Exhausted: half a buffer of end markers
	tx.fillNext()
	for i := 8; i < 40; i++ {
		if buf.Slots[i] != EndMarker {
			t.Errorf("Slot %d should be an end marker", i)
		}
	}
	if buf.Slots[40] == EndMarker {
		t.Error("End marker run longer than half the buffer")
	}
	if tx.Cursor() != 40 {
		t.Errorf("Expected cursor 40, got %d", tx.Cursor())
	}
}

func TestFillNextCursorCyclesBuffer(t *testing.T) {
	tx := newTestTransmitter(t, ModeIncremental)
	buf := NewChannelBuffer(DefaultMaxPulses)
	data := make([]byte, 3*80)
	for i := range data {
		data[i] = byte(i)
	}
	tx.pixels = NewPixelBuffer(data, OrderRGB)
	tx.bind(0, buf)

	// 64 fills of 24 slots cover the 64-slot buffer exactly 24 times
	for i := 0; i < buf.Cap(); i++ {
		tx.fillNext()
		if tx.Cursor() < 0 || tx.Cursor() >= buf.Cap() {
			t.Fatalf("Fill %d: cursor %d outside the buffer", i, tx.Cursor())
		}
	}
	if tx.Cursor() != 0 {
		t.Errorf("Expected cursor back at 0 after %d fills, got %d", buf.Cap(), tx.Cursor())
	}
}

func TestFillNextEmptySource(t *testing.T) {
	tx := newTestTransmitter(t, ModeIncremental)
	buf := NewChannelBuffer(DefaultMaxPulses)
	for i := range buf.Slots {
		buf.Slots[i] = tx.wave.One
	}
	tx.pixels = NewPixelBuffer(nil, OrderRGB)
	tx.bind(0, buf)

	tx.fillNext()

	if !buf.Slots[0].IsEnd() {
		t.Error("Empty source must start with an end marker")
	}
}

func TestColorOrder(t *testing.T) {
	tx := newTestTransmitter(t, ModeIncremental)
	buf := NewChannelBuffer(DefaultMaxPulses)
	tx.pixels = NewPixelBuffer([]byte{0x11, 0x22, 0x33}, OrderGRB)
	tx.bind(0, buf)

	tx.fillNext()

	got := tx.wave.DecodeFrame(buf.Slots[:24])
	if got[0] != 0x22 || got[1] != 0x11 || got[2] != 0x33 {
		t.Errorf("GRB order sent %02X %02X %02X", got[0], got[1], got[2])
	}
}

func TestConvertAll(t *testing.T) {
	tx := newTestTransmitter(t, ModePrecompute)

	data := make([]byte, 3*20)
	for i := range data {
		data[i] = byte(i * 7)
	}
	tx.pixels = NewPixelBuffer(data, OrderRGB)
	tx.convertAll()

	frame := tx.Frame()
	if len(frame) != 20*24 {
		t.Fatalf("Expected %d slots, got %d", 20*24, len(frame))
	}

	got := tx.wave.DecodeFrame(frame)
	for i := range data {
		if got[i] != data[i] {
			t.Errorf("Byte %d: expected 0x%02X, got 0x%02X", i, data[i], got[i])
		}
	}
	if frame[len(frame)-1].Duration1() != tx.wave.Reset {
		t.Error("Precomputed frame not terminated with the latch")
	}
}

func TestConvertAllEmpty(t *testing.T) {
	tx := newTestTransmitter(t, ModePrecompute)
	tx.pixels = NewPixelBuffer(nil, OrderRGB)
	tx.convertAll()

	if len(tx.Frame()) != 0 {
		t.Errorf("Expected empty frame, got %d slots", len(tx.Frame()))
	}
}

func TestConvertAllReusesBuffer(t *testing.T) {
	tx := newTestTransmitter(t, ModePrecompute)
	tx.pixels = NewPixelBuffer(make([]byte, 3*10), OrderRGB)
	tx.convertAll()
	first := &tx.frame[0]

	tx.pixels = NewPixelBuffer(make([]byte, 3*4), OrderRGB)
	tx.convertAll()

	if &tx.frame[0] != first {
		t.Error("Smaller frame should reuse the existing buffer")
	}
	if len(tx.Frame()) != 4*24 {
		t.Errorf("Expected %d slots, got %d", 4*24, len(tx.Frame()))
	}
}
