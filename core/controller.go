package core

import (
	"errors"

	"clockless/protocol"
)

var (
	ErrStripOrder = errors.New("strips must be configured in index order")
	ErrBadStrip   = errors.New("unknown strip")
	ErrBadOrder   = errors.New("unknown colour order")
	ErrFrameSize  = errors.New("pixel data exceeds strip capacity")
)

// DefaultMaxStripBytes bounds one strip's frame (1024 RGB pixels)
const DefaultMaxStripBytes = 3 * 1024

// Responder sends a response frame to the host
type Responder func(cmdID uint16, args func(output protocol.OutputBuffer))

type strip struct {
	handle Handle
	pin    Pin
	timing Timing
	order  ColorOrder
	data   []byte
	length int // Bytes loaded since the last show
	src    PixelBuffer
}

// StripController runs the firmware command set on top of a scheduler.
// Strip n is transmitter handle n.
type StripController struct {
	sched    *Scheduler
	registry *CommandRegistry
	strips   []strip
	maxBytes int
	respond  Responder

	// LinkErrors, if set, reports framing errors for get_stats
	LinkErrors func() uint32
}

// NewStripController registers the command table. The registration order
// fixes the command ids.
func NewStripController(sched *Scheduler, maxBytes int, respond Responder) *StripController {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxStripBytes
	}
	c := &StripController{
		sched:    sched,
		registry: NewCommandRegistry(),
		maxBytes: maxBytes,
		respond:  respond,
	}

	r := c.registry
	r.Register("reset", "", c.handleReset)
	r.Register("config_strip", "strip=%c pin=%u t1=%u t2=%u t3=%u order=%c", c.handleConfigStrip)
	r.Register("load_pixels", "strip=%c offset=%u data=%*s", c.handleLoadPixels)
	r.Register("show", "", c.handleShow)
	r.Register("get_stats", "", c.handleGetStats)
	r.Register("stats", "cycles=%u completions=%u spurious=%u faults=%u errors=%u", nil)
	return c
}

// Registry exposes the command table
func (c *StripController) Registry() *CommandRegistry { return c.registry }

// Dispatch is the protocol.CommandHandler for the decoder
func (c *StripController) Dispatch(cmdID uint16, data *[]byte) error {
	return c.registry.Dispatch(cmdID, data)
}

// Strips returns the number of configured strips
func (c *StripController) Strips() int { return len(c.strips) }

func (c *StripController) handleReset(data *[]byte) error {
	if err := c.sched.Reset(); err != nil {
		return err
	}
	c.strips = c.strips[:0]
	DebugPrintln("[LED] reset")
	return nil
}

func (c *StripController) handleConfigStrip(data *[]byte) error {
	cmd, err := protocol.DecodeConfigStrip(data)
	if err != nil {
		return err
	}
	order, ok := ColorOrderByIndex(cmd.Order)
	if !ok {
		return ErrBadOrder
	}
	timing := Timing{T1: cmd.T1, T2: cmd.T2, T3: cmd.T3}
	pin := Pin(cmd.Pin)

	idx := int(cmd.Strip)
	if idx < len(c.strips) {
		// Host reconnects resend the layout; accept it unchanged
		s := &c.strips[idx]
		if s.pin != pin || s.timing != timing {
			return ErrStripOrder
		}
		s.order = order
		s.src.order = order
		return nil
	}
	if idx != len(c.strips) {
		return ErrStripOrder
	}

	h, err := c.sched.Register(pin, timing)
	if err != nil {
		return err
	}
	c.strips = append(c.strips, strip{
		handle: h,
		pin:    pin,
		timing: timing,
		order:  order,
		src:    PixelBuffer{order: order},
	})
	DebugPrintln("[LED] strip " + itoa(idx) + " on pin " + utoa(cmd.Pin))
	return nil
}

func (c *StripController) handleLoadPixels(data *[]byte) error {
	cmd, err := protocol.DecodeLoadPixels(data)
	if err != nil {
		return err
	}
	if int(cmd.Strip) >= len(c.strips) {
		return ErrBadStrip
	}
	s := &c.strips[cmd.Strip]

	end := int(cmd.Offset) + len(cmd.Data)
	if end > c.maxBytes {
		return ErrFrameSize
	}
	if end > len(s.data) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	copy(s.data[cmd.Offset:], cmd.Data)
	if end > s.length {
		s.length = end
	}
	return nil
}

func (c *StripController) handleShow(data *[]byte) error {
	return c.Show()
}

// Show transmits the frame loaded on every strip. Strips that received no
// data since the last show send nothing and keep their colours.
func (c *StripController) Show() error {
	if len(c.strips) == 0 {
		return ErrNoTransmitters
	}
	for i := range c.strips {
		s := &c.strips[i]
		s.src.Reset(s.data[:s.length])
		if err := c.sched.Load(s.handle, &s.src); err != nil {
			return err
		}
	}
	err := c.sched.Show()
	for i := range c.strips {
		c.strips[i].length = 0
	}
	return err
}

func (c *StripController) handleGetStats(data *[]byte) error {
	if c.respond == nil {
		return nil
	}
	st := c.sched.Stats()
	reply := protocol.Stats{
		Cycles:      st.Cycles,
		Completions: st.Completions,
		Spurious:    st.Spurious,
		Faults:      st.Faults,
	}
	if c.LinkErrors != nil {
		reply.Errors = c.LinkErrors()
	}
	c.respond(protocol.CmdStats, reply.Encode)
	return nil
}
