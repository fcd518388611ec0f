package core

import "errors"

var (
	ErrTooManyTransmitters = errors.New("transmitter table full")
	ErrBadHandle           = errors.New("invalid transmitter handle")
	ErrAlreadyLoaded       = errors.New("transmitter already loaded this cycle")
	ErrIncompleteCycle     = errors.New("not every transmitter has pixel data")
	ErrNoTransmitters      = errors.New("no transmitters registered")
	ErrBadTiming           = errors.New("timing does not separate zero and one bits")
	ErrDurationRange       = errors.New("pulse duration exceeds 15 bits")
	ErrBufferGeometry      = errors.New("channel buffer cannot hold two fills")
	ErrNoChannels          = errors.New("channel driver has no channels")
	ErrNilSource           = errors.New("pixel source is nil")
	ErrCycleInFlight       = errors.New("a transmit cycle is in progress")
)

// errFrameMismatch is raised (as a panic) when a precomputed frame does not
// contain exactly one fill per pixel. This is a codec bug, never a runtime
// condition.
var errFrameMismatch = errors.New("encoded pulse count does not match frame length")
