//go:build rp2040

package pio

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"clockless/core"
)

// buildPulseProgram assembles the pulse player. With autopull on every
// word is one slot:
//
//	out x, 15      ; high loop count
//	out null, 1    ; level0
//	out y, 15      ; low loop count
//	out null, 1    ; level1
//	set pins, 1
//	jmp x--, 5
//	set pins, 0
//	jmp y--, 7
//
// An empty FIFO stalls on the first out with the pin low.
func buildPulseProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Out(rp2pio.OutDestX, 15).Encode(),    // 0
		asm.Out(rp2pio.OutDestNull, 1).Encode(),  // 1
		asm.Out(rp2pio.OutDestY, 15).Encode(),    // 2
		asm.Out(rp2pio.OutDestNull, 1).Encode(),  // 3
		asm.Set(rp2pio.SetDestPins, 1).Encode(),  // 4
		asm.Jmp(5, rp2pio.JmpXNZeroDec).Encode(), // 5
		asm.Set(rp2pio.SetDestPins, 0).Encode(),  // 6
		asm.Jmp(7, rp2pio.JmpYNZeroDec).Encode(), // 7
		// .wrap
	}
}

// Load at offset 0 so the jump targets hold
const pulseProgramOrigin = 0

// smPerBlock is the number of state machines in one PIO block
const smPerBlock = 4

type stateMachine struct {
	sm      rp2pio.StateMachine
	pin     machine.Pin
	claimed bool
	routed  bool
}

// RP2040 maps channel n to state machine n%4 of PIO block n/4
type RP2040 struct {
	blocks  [2]*rp2pio.PIO
	offsets [2]uint8
	loaded  [2]bool
	sms     [2 * smPerBlock]stateMachine
}

// NewRP2040 returns the hardware binding for both PIO blocks
func NewRP2040() *RP2040 {
	h := &RP2040{blocks: [2]*rp2pio.PIO{rp2pio.PIO0, rp2pio.PIO1}}
	for ch := range h.sms {
		h.sms[ch].sm = h.blocks[ch/smPerBlock].StateMachine(uint8(ch % smPerBlock))
	}
	return h
}

// NewRP2040Engine returns an engine over n state machines
func NewRP2040Engine(n int) *Engine {
	if n > 2*smPerBlock {
		n = 2 * smPerBlock
	}
	return NewEngine(NewRP2040(), n, core.DefaultMaxPulses)
}

// Configure implements Hardware
func (h *RP2040) Configure(ch int, pin core.Pin, divider uint8) (TxFIFO, error) {
	if ch < 0 || ch >= len(h.sms) {
		return nil, ErrBadChannel
	}
	s := &h.sms[ch]
	blk := ch / smPerBlock
	block := h.blocks[blk]

	if !s.claimed {
		if !s.sm.TryClaim() {
			return nil, ErrNoHardware
		}
		s.claimed = true
	}
	if !h.loaded[blk] {
		program := buildPulseProgram()
		offset, err := block.AddProgram(program, pulseProgramOrigin)
		if err != nil {
			return nil, err
		}
		h.offsets[blk] = offset
		h.loaded[blk] = true
	}
	offset := h.offsets[blk]

	s.pin = machine.Pin(pin)
	s.pin.Configure(machine.PinConfig{Mode: block.PinMode()})
	s.routed = true

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(s.pin, 1)
	cfg.SetOutShift(true, true, 32)
	cfg.SetWrap(offset+uint8(len(buildPulseProgram()))-1, offset)
	whole, frac := ClockDivider(machine.CPUFrequency(), core.DefaultSourceHz, divider)
	cfg.SetClkDivIntFrac(whole, frac)

	s.sm.Init(offset, cfg)
	s.sm.SetPindirsConsecutive(s.pin, 1, true)
	s.sm.SetPinsConsecutive(s.pin, 1, false)
	s.sm.SetEnabled(true)
	return &s.sm, nil
}

// Release implements Hardware
func (h *RP2040) Release(ch int) {
	if ch < 0 || ch >= len(h.sms) {
		return
	}
	s := &h.sms[ch]
	if !s.routed {
		return
	}
	s.sm.SetEnabled(false)
	s.sm.ClearFIFOs()
	s.sm.Restart()

	// Back to plain GPIO so the next strip on this channel starts clean
	s.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	s.pin.Low()
	s.routed = false
}
