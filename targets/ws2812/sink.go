// Package ws2812 runs the transmit engine on plain GPIO pins through the
// bit-banged driver in tinygo.org/x/drivers/ws2812. It suits boards without
// PIO blocks: the pump decodes each strip's pulse stream back to bytes and
// writes the whole frame once the strip's data ends.
//
// The driver generates its own WS2812 timing, so every strip must use a
// chip compatible with it.
package ws2812

import (
	"io"

	"clockless/core"
	"clockless/targets/pio"
)

// Opener returns the byte writer for a pin
type Opener func(pin core.Pin) (io.Writer, error)

// Sink collects pulse words for one strip and writes the decoded frame
// when the pump waits for the FIFO to drain
type Sink struct {
	w     io.Writer
	wave  core.Waveform
	cur   byte
	bits  int
	frame []byte

	// Write failures, for diagnostics
	Errors uint32
}

// IsTxFIFOFull implements pio.TxFIFO. The sink never fills.
func (s *Sink) IsTxFIFOFull() bool { return false }

// TxPut implements pio.TxFIFO
func (s *Sink) TxPut(word uint32) {
	s.cur <<= 1
	if s.wave.Bit(pio.SlotFromWord(word)) {
		s.cur |= 1
	}
	s.bits++
	if s.bits == 8 {
		s.frame = append(s.frame, s.cur)
		s.cur, s.bits = 0, 0
	}
}

// IsTxFIFOEmpty implements pio.TxFIFO. It sends the frame collected so
// far, which blocks until the strip has been written.
func (s *Sink) IsTxFIFOEmpty() bool {
	if len(s.frame) > 0 {
		if _, err := s.w.Write(s.frame); err != nil {
			s.Errors++
		}
		s.frame = s.frame[:0]
	}
	return true
}

// Hardware implements pio.Hardware with one Sink per channel
type Hardware struct {
	open  Opener
	wave  core.Waveform
	sinks []Sink
}

// NewHardware builds the binding for channels strips sharing one timing
func NewHardware(channels int, timing core.Timing, open Opener) (*Hardware, error) {
	wave, err := core.NewWaveform(timing, core.DefaultClock(), core.ResetNs)
	if err != nil {
		return nil, err
	}
	return &Hardware{
		open:  open,
		wave:  wave,
		sinks: make([]Sink, channels),
	}, nil
}

// Configure implements pio.Hardware. The divider is ignored; the driver
// times its own bits.
func (h *Hardware) Configure(ch int, pin core.Pin, divider uint8) (pio.TxFIFO, error) {
	if ch < 0 || ch >= len(h.sinks) {
		return nil, pio.ErrBadChannel
	}
	w, err := h.open(pin)
	if err != nil {
		return nil, err
	}
	s := &h.sinks[ch]
	s.w = w
	s.wave = h.wave
	s.cur, s.bits = 0, 0
	s.frame = s.frame[:0]
	return s, nil
}

// Release implements pio.Hardware
func (h *Hardware) Release(ch int) {
	if ch < 0 || ch >= len(h.sinks) {
		return
	}
	h.sinks[ch].w = nil
}

// NewEngine returns a transmit engine over channels bit-banged pins
func NewEngine(channels int, timing core.Timing, open Opener) (*pio.Engine, error) {
	hw, err := NewHardware(channels, timing, open)
	if err != nil {
		return nil, err
	}
	return pio.NewEngine(hw, channels, core.DefaultMaxPulses), nil
}
