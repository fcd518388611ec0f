//go:build tinygo

// Package firmware is the main loop shared by the LED firmware targets:
// USB serial in, protocol decoder, strip controller, ACKs and responses out.
package firmware

import (
	"machine"
	"time"

	"clockless/core"
	"clockless/protocol"
)

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	decoder      *protocol.Decoder
	controller   *core.StripController

	// Debug counters
	msgerrors uint32

	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

// Driver is a channel driver with a pump to run on its own goroutine
type Driver interface {
	core.ChannelDriver
	Run(stop <-chan struct{})
}

// Run starts the firmware on driver and never returns
func Run(driver Driver, cfg core.Config) {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()

	sched, err := core.NewScheduler(cfg, driver)
	if err != nil {
		core.DebugPrintln("[LED] scheduler: " + err.Error())
		for {
			time.Sleep(time.Second)
		}
	}
	go driver.Run(nil)

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	decoder = protocol.NewDecoder(outputBuffer, func(cmdID uint16, data *[]byte) error {
		return controller.Dispatch(cmdID, data)
	})
	controller = core.NewStripController(sched, 0, decoder.Respond)
	controller.LinkErrors = func() uint32 {
		return decoder.Scanner().Errors + decoder.CommandErrors + msgerrors
	}

	decoder.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	// ACKs go out before the next command runs; a show can take a while
	decoder.SetFlushCallback(writeUSB)

	go usbReaderLoop()

	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			if inputBuffer.Available() > 0 {
				decoder.Receive(inputBuffer)
			}

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
			}
		}()

		// Yield to the reader and the pump
		time.Sleep(10 * time.Microsecond)
	}
}

// usbReaderLoop runs in a goroutine to continuously read USB data
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(1 * time.Millisecond)
				continue
			}

			// A host reconnecting after a write failure starts from scratch
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				decoder.Reset()
				consecutiveWriteFailures = 0
			}

			if inputBuffer.WriteByte(data) != nil {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB writes available data from the output buffer to USB
func writeUSB() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			// Likely disconnected; drop stale data after repeated failures
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}
