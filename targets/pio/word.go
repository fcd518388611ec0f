package pio

import "clockless/core"

// Cycles the pulse program spends outside its delay loops. The high phase
// costs a set plus one loop pass more than its count; the low phase also
// pays for the four outs that fetch the next word.
const (
	highOverhead = 2
	lowOverhead  = 6
)

// Word converts a pulse slot to the word the pulse program consumes:
// high loop count in bits 0-14, low loop count in bits 16-30. The program
// always drives high then low, so the slot's levels are not carried.
func Word(p core.PulseSlot) uint32 {
	return loops(p.Duration0(), highOverhead) | loops(p.Duration1(), lowOverhead)<<16
}

// SlotFromWord recovers the slot durations a word produces on the pin
func SlotFromWord(w uint32) core.PulseSlot {
	return core.MakePulse(true, w&core.MaxPulseTicks+highOverhead, false, (w>>16)&core.MaxPulseTicks+lowOverhead)
}

func loops(ticks, overhead uint32) uint32 {
	if ticks <= overhead {
		return 0
	}
	return (ticks - overhead) & core.MaxPulseTicks
}

// ClockDivider returns the state machine divider, as integer and 1/256
// fraction, that makes one PIO cycle last one pulse tick
func ClockDivider(sysHz, sourceHz uint32, divider uint8) (uint16, uint8) {
	div := uint64(sysHz) * uint64(divider) * 256 / uint64(sourceHz)
	return uint16(div >> 8), uint8(div)
}
