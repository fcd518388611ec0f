//go:build tinygo && !rp2040

package main

import (
	"clockless/core"
	"clockless/targets/firmware"
	"clockless/targets/ws2812"
)

// Strips are written one after another, so one channel is enough
const channels = 1

func main() {
	engine, err := ws2812.NewEngine(channels, core.TimingWS2812, ws2812.OpenPin)
	if err != nil {
		return
	}
	cfg := core.DefaultConfig()
	cfg.MaxChannels = channels
	firmware.Run(engine, cfg)
}
