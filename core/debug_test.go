package core

import (
	"strings"
	"testing"
)

func TestEventRingWraps(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	state := disableInterrupts()
	for i := 0; i < EventRingSize+5; i++ {
		recordEvent(EvtRefill, Handle(1), 2, uint32(i))
	}
	restoreInterrupts(state)

	evts := Events()
	if len(evts) != EventRingSize {
		t.Fatalf("Expected %d events, got %d", EventRingSize, len(evts))
	}
	if evts[0].Value != 5 || evts[len(evts)-1].Value != EventRingSize+4 {
		t.Errorf("Ring not oldest first: %d..%d", evts[0].Value, evts[len(evts)-1].Value)
	}
}

func TestDumpEventRing(t *testing.T) {
	ClearEventRing()
	defer ClearEventRing()

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})

	state := disableInterrupts()
	recordEvent(EvtStart, Handle(3), 1, 1)
	recordEvent(EvtSpurious, NoHandle, -1, 0x10)
	restoreInterrupts(state)

	DumpEventRing()
	if len(lines) != 4 {
		t.Fatalf("Expected header, 2 events and footer, got %q", lines)
	}
	if !strings.Contains(lines[1], "START tx=3 ch=1") {
		t.Errorf("Unexpected start line %q", lines[1])
	}
	if !strings.Contains(lines[2], "SPURIOUS! tx=255 ch=255 v=16") {
		t.Errorf("Unexpected spurious line %q", lines[2])
	}
}

func TestDebugPrintlnGated(t *testing.T) {
	var got []string
	SetDebugWriter(func(s string) { got = append(got, s) })
	defer SetDebugWriter(func(string) {})

	SetDebugEnabled(false)
	DebugPrintln("hidden")
	SetDebugEnabled(true)
	DebugPrintln("shown")
	SetDebugEnabled(false)

	if len(got) != 1 || got[0] != "shown" {
		t.Errorf("Expected only the enabled line, got %q", got)
	}
}
