//go:build !tinygo

package core

import "sync"

// irqState stands in for the saved interrupt mask on hosted Go
type irqState uintptr

// irqMask emulates the interrupt mask on hosted Go. The simulated
// interrupt context takes it for every event, so holding it keeps the
// main-line and the interrupt context from touching scheduler state at the
// same time. Not reentrant.
var irqMask sync.Mutex

// disableInterrupts masks the (simulated) transmit interrupt
func disableInterrupts() irqState {
	irqMask.Lock()
	return 0
}

// restoreInterrupts unmasks it again
func restoreInterrupts(state irqState) {
	irqMask.Unlock()
}
