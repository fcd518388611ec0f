// Package pio drives clockless LED strips from RP2040 PIO state machines.
//
// Each state machine stands in for one transmit channel. A pump goroutine
// copies pulse slots from the channel memory into the state machine's TX
// FIFO and raises the threshold and done events the scheduler expects, so
// the scheduler runs unchanged on top of it.
package pio

import (
	"errors"
	"runtime"
	"sync"

	"clockless/core"
)

var (
	ErrBadChannel = errors.New("no such PIO channel")
	ErrNoHardware = errors.New("state machine unavailable")
)

// TxFIFO is the transmit side of a state machine
type TxFIFO interface {
	IsTxFIFOFull() bool
	IsTxFIFOEmpty() bool
	TxPut(data uint32)
}

// Hardware claims and releases the state machines behind the channels
type Hardware interface {
	// Configure loads the pulse program on the channel's state machine,
	// routes pin to it and leaves it running with an empty FIFO
	Configure(ch int, pin core.Pin, divider uint8) (TxFIFO, error)

	// Release stops the state machine and parks the pin low
	Release(ch int)
}

type lane struct {
	fifo       TxFIFO
	buf        *core.ChannelBuffer
	frame      []core.PulseSlot
	precompute bool
	running    bool
	draining   bool
	rd         int
	threshold  int
	sinceThr   int
}

// Engine implements core.ChannelDriver on top of PIO state machines
type Engine struct {
	mu      sync.Mutex
	hw      Hardware
	lanes   []lane
	handler core.InterruptHandler
	wake    chan struct{}
}

// NewEngine creates an engine with n channels of memSlots slots each
func NewEngine(hw Hardware, n int, memSlots int) *Engine {
	if n > core.MaxStatusChannel {
		n = core.MaxStatusChannel
	}
	e := &Engine{
		hw:    hw,
		lanes: make([]lane, n),
		wake:  make(chan struct{}, 1),
	}
	for i := range e.lanes {
		e.lanes[i].buf = core.NewChannelBuffer(memSlots)
	}
	return e
}

// NumChannels implements core.ChannelDriver
func (e *Engine) NumChannels() int { return len(e.lanes) }

// Configure implements core.ChannelDriver
func (e *Engine) Configure(ch int, pin core.Pin, divider uint8) error {
	if ch < 0 || ch >= len(e.lanes) {
		return ErrBadChannel
	}
	fifo, err := e.hw.Configure(ch, pin, divider)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	l := &e.lanes[ch]
	l.fifo = fifo
	l.precompute = false
	l.frame = nil
	return nil
}

// Buffer implements core.ChannelDriver
func (e *Engine) Buffer(ch int) *core.ChannelBuffer {
	if ch < 0 || ch >= len(e.lanes) {
		return nil
	}
	return e.lanes[ch].buf
}

// SetRefillThreshold implements core.ChannelDriver
func (e *Engine) SetRefillThreshold(ch int, pulses int) {
	if ch < 0 || ch >= len(e.lanes) {
		return
	}
	e.mu.Lock()
	e.lanes[ch].threshold = pulses
	e.mu.Unlock()
}

// WriteFrame implements core.ChannelDriver. The frame is referenced, not
// copied; it must stay untouched until the channel reports done.
func (e *Engine) WriteFrame(ch int, pulses []core.PulseSlot) error {
	if ch < 0 || ch >= len(e.lanes) {
		return ErrBadChannel
	}
	e.mu.Lock()
	e.lanes[ch].frame = pulses
	e.lanes[ch].precompute = true
	e.mu.Unlock()
	return nil
}

// Start implements core.ChannelDriver
func (e *Engine) Start(ch int) {
	if ch < 0 || ch >= len(e.lanes) {
		return
	}
	e.mu.Lock()
	l := &e.lanes[ch]
	if l.fifo != nil {
		l.running = true
		l.draining = false
		l.rd = 0
		l.sinceThr = 0
	}
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Stop implements core.ChannelDriver
func (e *Engine) Stop(ch int) {
	if ch < 0 || ch >= len(e.lanes) {
		return
	}
	e.mu.Lock()
	e.lanes[ch].running = false
	e.lanes[ch].fifo = nil
	e.mu.Unlock()
	e.hw.Release(ch)
}

// SetInterruptHandler implements core.ChannelDriver
func (e *Engine) SetInterruptHandler(h core.InterruptHandler) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
}

// Run pumps the FIFOs until stop is closed. Start it on its own goroutine.
func (e *Engine) Run(stop <-chan struct{}) {
	for {
		status, active := e.poll()
		if status != 0 {
			e.mu.Lock()
			handler := e.handler
			e.mu.Unlock()
			if handler != nil {
				handler(status)
			}
		}

		if !active && status == 0 {
			select {
			case <-e.wake:
			case <-stop:
				return
			}
			continue
		}

		select {
		case <-stop:
			return
		default:
		}
		runtime.Gosched()
	}
}

// poll feeds every running channel until its FIFO fills, its threshold
// is reached or its data ends
func (e *Engine) poll() (uint32, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var status uint32
	active := false
	for ch := range e.lanes {
		l := &e.lanes[ch]
		if !l.running {
			continue
		}
		active = true

		if l.draining {
			// Done once the last word has left the FIFO
			if l.fifo.IsTxFIFOEmpty() {
				l.running = false
				status |= core.TxDoneBit(ch)
			}
			continue
		}

		for !l.fifo.IsTxFIFOFull() {
			slot := l.next()
			if slot.IsEnd() {
				l.draining = true
				break
			}
			l.fifo.TxPut(Word(slot))
			l.rd++

			l.sinceThr++
			if l.threshold > 0 && l.sinceThr == l.threshold {
				// Let the handler refill before reading further
				l.sinceThr = 0
				status |= core.TxThresholdBit(ch)
				break
			}
		}
	}
	return status, active
}

func (l *lane) next() core.PulseSlot {
	if l.precompute {
		if l.rd < len(l.frame) {
			return l.frame[l.rd]
		}
		return core.EndMarker
	}
	return l.buf.Slots[l.rd%len(l.buf.Slots)]
}
