// Package rmtsim simulates a multi-channel pulse transmit peripheral so the
// scheduler can run complete cycles on a host.
//
// Every running channel drains one pulse slot per step from its circular
// memory (or from the frame handed over with WriteFrame). A slot with zero
// duration ends the transmission and raises the channel's done bit. Every
// threshold slots the channel raises its threshold bit. Status bits of one
// step are delivered together to the interrupt handler from a single
// goroutine, so handler calls never overlap.
package rmtsim

import (
	"errors"
	"sync"

	"clockless/core"
)

var (
	ErrBadChannel = errors.New("channel out of range")
	ErrBadDivider = errors.New("clock divider must be non-zero")
	ErrClosed     = errors.New("peripheral closed")
)

// Capture is everything one channel sent between Start and its end marker
type Capture struct {
	Channel int
	Pin     core.Pin
	Pulses  []core.PulseSlot
}

type channel struct {
	buf       *core.ChannelBuffer
	pin       core.Pin
	divider   uint8
	threshold int

	running  bool
	rd       int
	sinceThr int

	frame      []core.PulseSlot
	precompute bool

	captured []core.PulseSlot
}

// Peripheral is a simulated transmit block implementing core.ChannelDriver
type Peripheral struct {
	mu       sync.Mutex
	channels []channel
	handler  core.InterruptHandler
	onFrame  func(Capture)
	observer func()
	last     map[core.Pin][]core.PulseSlot
	emitted  uint64
	closed   bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// New creates a peripheral with n channels of memSlots pulse slots each
// and starts its clock
func New(n int, memSlots int) *Peripheral {
	p := &Peripheral{
		channels: make([]channel, n),
		last:     make(map[core.Pin][]core.PulseSlot),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for i := range p.channels {
		p.channels[i].buf = core.NewChannelBuffer(memSlots)
	}
	go p.run()
	return p
}

// NumChannels implements core.ChannelDriver
func (p *Peripheral) NumChannels() int { return len(p.channels) }

// Configure routes pin to ch and sets its divider. A stale precomputed
// frame is dropped.
func (p *Peripheral) Configure(ch int, pin core.Pin, divider uint8) error {
	if ch < 0 || ch >= len(p.channels) {
		return ErrBadChannel
	}
	if divider == 0 {
		return ErrBadDivider
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	c := &p.channels[ch]
	c.pin = pin
	c.divider = divider
	c.precompute = false
	c.frame = c.frame[:0]
	return nil
}

// Buffer implements core.ChannelDriver
func (p *Peripheral) Buffer(ch int) *core.ChannelBuffer {
	if ch < 0 || ch >= len(p.channels) {
		return nil
	}
	return p.channels[ch].buf
}

// SetRefillThreshold implements core.ChannelDriver
func (p *Peripheral) SetRefillThreshold(ch int, pulses int) {
	if ch < 0 || ch >= len(p.channels) {
		return
	}
	p.mu.Lock()
	p.channels[ch].threshold = pulses
	p.mu.Unlock()
}

// WriteFrame implements core.ChannelDriver. The frame is copied.
func (p *Peripheral) WriteFrame(ch int, pulses []core.PulseSlot) error {
	if ch < 0 || ch >= len(p.channels) {
		return ErrBadChannel
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	c := &p.channels[ch]
	c.frame = append(c.frame[:0], pulses...)
	c.precompute = true
	return nil
}

// Start implements core.ChannelDriver
func (p *Peripheral) Start(ch int) {
	if ch < 0 || ch >= len(p.channels) {
		return
	}
	p.mu.Lock()
	c := &p.channels[ch]
	c.running = true
	c.rd = 0
	c.sinceThr = 0
	c.captured = nil
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Stop implements core.ChannelDriver
func (p *Peripheral) Stop(ch int) {
	if ch < 0 || ch >= len(p.channels) {
		return
	}
	p.mu.Lock()
	p.channels[ch].running = false
	p.mu.Unlock()
}

// SetInterruptHandler implements core.ChannelDriver
func (p *Peripheral) SetInterruptHandler(h core.InterruptHandler) {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
}

// OnFrame installs a callback receiving every finished transmission. It
// runs on the peripheral goroutine before the done event is delivered.
func (p *Peripheral) OnFrame(fn func(Capture)) {
	p.mu.Lock()
	p.onFrame = fn
	p.mu.Unlock()
}

// SetObserver installs a callback run after every step that raised an
// event, once the handler has returned
func (p *Peripheral) SetObserver(fn func()) {
	p.mu.Lock()
	p.observer = fn
	p.mu.Unlock()
}

// LastFrame returns the most recent transmission on pin
func (p *Peripheral) LastFrame(pin core.Pin) []core.PulseSlot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last[pin]
}

// Emitted returns the number of data slots sent on all channels
func (p *Peripheral) Emitted() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.emitted
}

// Running returns how many channels are transmitting
func (p *Peripheral) Running() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i := range p.channels {
		if p.channels[i].running {
			n++
		}
	}
	return n
}

// Close stops the peripheral clock
func (p *Peripheral) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stop)
	<-p.done
	return nil
}

func (p *Peripheral) run() {
	defer close(p.done)

	var captures []Capture
	for {
		status, active := p.step(&captures)

		if status != 0 || len(captures) > 0 {
			p.mu.Lock()
			handler, onFrame, observer := p.handler, p.onFrame, p.observer
			p.mu.Unlock()

			for _, c := range captures {
				if onFrame != nil {
					onFrame(c)
				}
			}
			captures = captures[:0]
			if handler != nil && status != 0 {
				handler(status)
			}
			if observer != nil {
				observer()
			}
		}

		if !active {
			select {
			case <-p.wake:
			case <-p.stop:
				return
			}
			continue
		}

		select {
		case <-p.stop:
			return
		default:
		}
	}
}

// step advances every running channel by one slot and returns the status
// word it raised
func (p *Peripheral) step(captures *[]Capture) (uint32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var status uint32
	active := false
	for ch := range p.channels {
		c := &p.channels[ch]
		if !c.running {
			continue
		}
		active = true

		var slot core.PulseSlot
		if c.precompute {
			if c.rd < len(c.frame) {
				slot = c.frame[c.rd]
			}
		} else {
			slot = c.buf.Slots[c.rd%len(c.buf.Slots)]
		}

		if slot.IsEnd() {
			// Hardware idles until the channel is stopped or restarted
			c.running = false
			status |= core.TxDoneBit(ch)
			pulses := c.captured
			c.captured = nil
			p.last[c.pin] = pulses
			*captures = append(*captures, Capture{Channel: ch, Pin: c.pin, Pulses: pulses})
			continue
		}

		c.captured = append(c.captured, slot)
		p.emitted++
		c.rd++
		if !c.precompute && c.rd == len(c.buf.Slots) {
			c.rd = 0
		}

		c.sinceThr++
		if c.threshold > 0 && c.sinceThr == c.threshold {
			c.sinceThr = 0
			status |= core.TxThresholdBit(ch)
		}
	}
	return status, active
}
