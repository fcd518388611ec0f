package link

import (
	"io"
	"sync"
	"testing"
	"time"

	"clockless/core"
	"clockless/host/rmtsim"
	"clockless/protocol"
)

type pipePort struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipePort) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *pipePort) Close() error {
	p.r.Close()
	return p.w.Close()
}

// firmware runs a protocol decoder on the far end of a pipe
type firmware struct {
	mu       sync.Mutex
	dec      *protocol.Decoder
	out      *protocol.ScratchOutput
	toHost   *io.PipeWriter
	dropAcks int
	done     chan struct{}
}

func startFirmware(t *testing.T, handler func(f *firmware) protocol.CommandHandler) (*Link, *firmware) {
	t.Helper()
	hostR, devW := io.Pipe()
	devR, hostW := io.Pipe()

	fw := &firmware{
		out:    protocol.NewScratchOutput(),
		toHost: devW,
		done:   make(chan struct{}),
	}
	fw.dec = protocol.NewDecoder(fw.out, handler(fw))
	fw.dec.SetFlushCallback(fw.flush)

	go func() {
		defer close(fw.done)
		fifo := protocol.NewFifoBuffer(256)
		buf := make([]byte, 64)
		for {
			n, err := devR.Read(buf)
			if err != nil {
				return
			}
			fifo.Write(buf[:n])
			fw.dec.Receive(fifo)
		}
	}()

	l := New(&pipePort{r: hostR, w: hostW}, nil)
	l.AckTimeout = 200 * time.Millisecond
	t.Cleanup(func() {
		l.Close()
		devR.Close()
		devW.Close()
		<-fw.done
	})
	return l, fw
}

func (f *firmware) flush() {
	data := append([]byte(nil), f.out.Result()...)
	f.out.Reset()

	f.mu.Lock()
	drop := f.dropAcks > 0
	if drop {
		f.dropAcks--
	}
	f.mu.Unlock()
	if drop {
		return
	}
	f.toHost.Write(data)
}

func TestLinkDrivesController(t *testing.T) {
	periph := rmtsim.New(2, core.DefaultMaxPulses)
	defer periph.Close()
	sched, err := core.NewScheduler(core.DefaultConfig(), periph)
	if err != nil {
		t.Fatal(err)
	}

	l, _ := startFirmware(t, func(f *firmware) protocol.CommandHandler {
		ctrl := core.NewStripController(sched, 0, func(id uint16, args func(protocol.OutputBuffer)) {
			f.dec.Respond(id, args)
		})
		ctrl.LinkErrors = func() uint32 { return f.dec.Scanner().Errors }
		return ctrl.Dispatch
	})

	if err := l.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	frames := [][]byte{make([]byte, 300), {0xFF, 0x00, 0x80}, nil}
	for i := range frames[0] {
		frames[0][i] = byte(i)
	}
	for i := range frames {
		cfg := protocol.ConfigStrip{Strip: uint8(i), Pin: uint32(10 + i), T1: 250, T2: 625, T3: 375}
		if err := l.ConfigStrip(cfg); err != nil {
			t.Fatalf("ConfigStrip %d failed: %v", i, err)
		}
	}
	for i, f := range frames {
		if err := l.LoadPixels(uint8(i), f); err != nil {
			t.Fatalf("LoadPixels %d failed: %v", i, err)
		}
	}
	if err := l.Show(); err != nil {
		t.Fatalf("Show failed: %v", err)
	}

	w := sched.Transmitter(0).Waveform()
	for i, f := range frames {
		got := w.DecodeFrame(periph.LastFrame(core.Pin(10 + i)))
		if string(got) != string(f) {
			t.Errorf("Strip %d: sent %d bytes that differ from the %d loaded", i, len(got), len(f))
		}
	}

	st, err := l.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.Cycles != 1 || st.Completions != 3 || st.Errors != 0 {
		t.Errorf("Unexpected stats %+v", st)
	}
}

func TestLinkRetransmitsLostAck(t *testing.T) {
	var mu sync.Mutex
	var shows int

	l, fw := startFirmware(t, func(f *firmware) protocol.CommandHandler {
		return func(id uint16, data *[]byte) error {
			if id == protocol.CmdShow {
				mu.Lock()
				shows++
				mu.Unlock()
			}
			return nil
		}
	})

	if err := l.Show(); err != nil {
		t.Fatalf("Show failed: %v", err)
	}

	// A resent first frame looks like a host restart, so drop the second
	fw.mu.Lock()
	fw.dropAcks = 1
	fw.mu.Unlock()

	if err := l.Show(); err != nil {
		t.Fatalf("Second show failed: %v", err)
	}
	if err := l.Show(); err != nil {
		t.Fatalf("Third show failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if shows != 3 {
		t.Errorf("Expected the duplicate frame to be skipped, firmware ran %d shows", shows)
	}
	if l.Retransmits != 1 {
		t.Errorf("Expected 1 retransmit, got %d", l.Retransmits)
	}
}

func TestLinkGivesUp(t *testing.T) {
	l, fw := startFirmware(t, func(f *firmware) protocol.CommandHandler {
		return func(id uint16, data *[]byte) error { return nil }
	})
	fw.mu.Lock()
	fw.dropAcks = 100
	fw.mu.Unlock()

	l.AckTimeout = 20 * time.Millisecond
	l.Retries = 2
	if err := l.Show(); err == nil {
		t.Fatal("Expected failure with every ACK dropped")
	}
	if l.Retransmits != 2 {
		t.Errorf("Expected 2 retransmits, got %d", l.Retransmits)
	}
}

func TestLinkClosed(t *testing.T) {
	l, _ := startFirmware(t, func(f *firmware) protocol.CommandHandler {
		return func(id uint16, data *[]byte) error { return nil }
	})
	l.Close()

	if err := l.Show(); err == nil {
		t.Error("Send on a closed link should fail")
	}
	if _, err := l.Receive(time.Second); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}
