//go:build tinygo

package ws2812

import (
	"io"
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"clockless/core"
)

// OpenPin configures pin as an output and wraps it in the ws2812 driver
func OpenPin(pin core.Pin) (io.Writer, error) {
	p := machine.Pin(pin)
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	dev := ws2812.New(p)
	return &dev, nil
}
