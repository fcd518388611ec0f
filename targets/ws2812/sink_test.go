package ws2812

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"clockless/core"
	"clockless/targets/pio"
)

type pins struct {
	mu  sync.Mutex
	out map[core.Pin]*bytes.Buffer
}

func (p *pins) open(pin core.Pin) (io.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.out[pin]
	if !ok {
		b = &bytes.Buffer{}
		p.out[pin] = b
	}
	return b, nil
}

func TestEngineWritesFrames(t *testing.T) {
	p := &pins{out: make(map[core.Pin]*bytes.Buffer)}
	e, err := NewEngine(2, core.TimingWS2812, p.open)
	if err != nil {
		t.Fatal(err)
	}
	s, err := core.NewScheduler(core.DefaultConfig(), e)
	if err != nil {
		t.Fatal(err)
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		e.Run(stop)
		close(done)
	}()
	defer func() {
		close(stop)
		<-done
	}()

	frames := [][]byte{{1, 2, 3, 4, 5, 6}, {0xFF, 0x00, 0x80}, {9, 8, 7}}
	for i := range frames {
		s.MustRegister(core.Pin(i), core.TimingWS2812)
	}
	for i, f := range frames {
		if err := s.Load(core.Handle(i), core.NewPixelBuffer(f, core.OrderGRB)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Show(); err != nil {
		t.Fatal(err)
	}

	want := [][]byte{{2, 1, 3, 5, 4, 6}, {0x00, 0xFF, 0x80}, {8, 9, 7}}
	for i, w := range want {
		if got := p.out[core.Pin(i)].Bytes(); !bytes.Equal(got, w) {
			t.Errorf("Pin %d: wrote %v, want %v", i, got, w)
		}
	}
}

func TestSinkDecodes(t *testing.T) {
	var buf bytes.Buffer
	hw, err := NewHardware(1, core.TimingWS2812, func(core.Pin) (io.Writer, error) { return &buf, nil })
	if err != nil {
		t.Fatal(err)
	}
	fifo, err := hw.Configure(0, 5, core.DefaultDivider)
	if err != nil {
		t.Fatal(err)
	}

	slots := make([]core.PulseSlot, 16)
	hw.wave.EncodeByte(slots, 0xA5)
	hw.wave.EncodeByte(slots[8:], 0x3C)
	slots[15] = hw.wave.Terminate(slots[15])
	for _, sl := range slots {
		fifo.TxPut(pio.Word(sl))
	}
	if !fifo.IsTxFIFOEmpty() {
		t.Fatal("Sink should always drain")
	}
	if got := buf.Bytes(); !bytes.Equal(got, []byte{0xA5, 0x3C}) {
		t.Errorf("Expected a5 3c, got % x", got)
	}

	if _, err := hw.Configure(1, 5, core.DefaultDivider); err == nil {
		t.Error("Configure past the channel count should fail")
	}
}

func TestNewHardwareRejectsBadTiming(t *testing.T) {
	if _, err := NewHardware(1, core.Timing{}, nil); err == nil {
		t.Error("Zero timing accepted")
	}
}
