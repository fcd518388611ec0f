//go:build rp2040

package main

import (
	"clockless/core"
	"clockless/targets/firmware"
	"clockless/targets/pio"
)

// Channels in use. Both PIO blocks give eight state machines.
const channels = 8

func main() {
	cfg := core.DefaultConfig()
	cfg.MaxChannels = channels
	firmware.Run(pio.NewRP2040Engine(channels), cfg)
}
