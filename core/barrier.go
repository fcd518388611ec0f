package core

// CompletionBarrier serialises transmit cycles and lets the main-line block
// until the interrupt context reports that the last transmitter finished.
//
// It is a pair of single-slot channels: the token slot is full while a cycle
// is in flight, and the done slot receives exactly one value per cycle.
type CompletionBarrier struct {
	token chan struct{}
	done  chan struct{}
}

// NewCompletionBarrier returns an idle barrier
func NewCompletionBarrier() *CompletionBarrier {
	return &CompletionBarrier{
		token: make(chan struct{}, 1),
		done:  make(chan struct{}, 1),
	}
}

// Begin claims the barrier for a new cycle, blocking while a previous cycle
// has not been waited on yet
func (b *CompletionBarrier) Begin() {
	b.token <- struct{}{}
}

// Release signals the end of the cycle. Safe from interrupt context: it
// never blocks. Call it once per cycle.
func (b *CompletionBarrier) Release() {
	select {
	case b.done <- struct{}{}:
	default:
	}
}

// Wait blocks until Release. The barrier stays claimed so the caller can
// reset per-cycle state before calling End.
func (b *CompletionBarrier) Wait() {
	<-b.done
}

// End frees the barrier for the next Begin
func (b *CompletionBarrier) End() {
	<-b.token
}

// Busy reports whether a cycle currently holds the barrier
func (b *CompletionBarrier) Busy() bool {
	return len(b.token) == 1
}
