package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event captures a scheduling event for post-mortem analysis
type Event struct {
	Type    uint8  // Event type code
	Handle  Handle // Transmitter involved
	Channel uint8  // Hardware channel (0xFF if none)
	Value   uint32 // Context-dependent value
}

// Event type codes
const (
	EvtLoad     = 1 // Pixel data attached to a transmitter
	EvtStart    = 2 // Transmitter bound to a channel and primed
	EvtRefill   = 3 // Threshold interrupt refilled a half
	EvtDone     = 4 // Channel reported transmission complete
	EvtRelease  = 5 // Last transmitter done, barrier released
	EvtSpurious = 6 // Event for a channel with nothing bound
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event ring. Written with interrupts masked only.
	eventRing     [EventRingSize]Event
	eventRingHead uint8
	eventsEnabled bool = true
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// SetEventsEnabled turns event capture on or off
func SetEventsEnabled(enabled bool) {
	eventsEnabled = enabled
}

// recordEvent appends to the ring. Callers hold the interrupt mask.
func recordEvent(evtType uint8, h Handle, ch int, value uint32) {
	if !eventsEnabled {
		return
	}
	c := uint8(0xFF)
	if ch >= 0 {
		c = uint8(ch)
	}
	idx := eventRingHead
	eventRing[idx] = Event{Type: evtType, Handle: h, Channel: c, Value: value}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the ring contents, oldest first
func Events() []Event {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	out := make([]Event, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.Type == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

func eventName(t uint8) string {
	switch t {
	case EvtLoad:
		return "LOAD"
	case EvtStart:
		return "START"
	case EvtRefill:
		return "REFILL"
	case EvtDone:
		return "DONE"
	case EvtRelease:
		return "RELEASE"
	case EvtSpurious:
		return "SPURIOUS!"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing writes the ring through the debug writer. Call it after
// a cycle, never from the interrupt path.
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENTS] " + eventName(evt.Type) +
			" tx=" + itoa(int(evt.Handle)) +
			" ch=" + itoa(int(evt.Channel)) +
			" v=" + utoa(evt.Value))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEventRing empties the ring
func ClearEventRing() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
}
