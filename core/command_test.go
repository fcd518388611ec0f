package core

import (
	"errors"
	"testing"
)

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()

	// Register a command
	var called bool
	handler := func(data *[]byte) error {
		called = true
		*data = (*data)[1:]
		return nil
	}

	id := registry.Register("test_command", "arg=%u", handler)
	if id != 0 {
		t.Errorf("Expected first command to have ID 0, got %d", id)
	}

	// Verify command can be retrieved
	cmd, ok := registry.Get(id)
	if !ok {
		t.Fatal("Failed to retrieve registered command")
	}
	if cmd.Name != "test_command" {
		t.Errorf("Expected command name 'test_command', got '%s'", cmd.Name)
	}

	// Test dispatch
	data := []byte{42, 7}
	if err := registry.Dispatch(id, &data); err != nil {
		t.Errorf("Dispatch failed: %v", err)
	}
	if !called {
		t.Error("Handler was not called")
	}
	if len(data) != 1 {
		t.Errorf("Handler should consume its argument, %d bytes left", len(data))
	}
}

func TestCommandRegistryOrder(t *testing.T) {
	registry := NewCommandRegistry()
	noop := func(data *[]byte) error { return nil }

	a := registry.Register("a", "", noop)
	b := registry.Register("b", "x=%u", noop)
	again := registry.Register("a", "", noop)
	resp := registry.Register("resp", "v=%u", nil)

	if a != 0 || b != 1 || again != 0 || resp != 2 {
		t.Errorf("Unexpected ids a=%d b=%d again=%d resp=%d", a, b, again, resp)
	}
	if registry.Count() != 3 {
		t.Errorf("Expected 3 entries, got %d", registry.Count())
	}
	if id, ok := registry.Lookup("b"); !ok || id != 1 {
		t.Errorf("Lookup(b) = %d, %v", id, ok)
	}
	if _, ok := registry.Lookup("missing"); ok {
		t.Error("Lookup found an unregistered name")
	}

	want := "a\nb x=%u\nresp v=%u\n"
	if got := registry.Dictionary(); got != want {
		t.Errorf("Dictionary:\n%q\nwant\n%q", got, want)
	}
}

func TestCommandDispatchErrors(t *testing.T) {
	registry := NewCommandRegistry()
	fail := errors.New("bad args")
	id := registry.Register("fails", "", func(data *[]byte) error { return fail })
	resp := registry.Register("resp", "", nil)

	if err := registry.Dispatch(id, nil); err != fail {
		t.Errorf("Expected handler error, got %v", err)
	}
	if err := registry.Dispatch(resp, nil); err != ErrUnknownCommand {
		t.Errorf("Expected ErrUnknownCommand for a response, got %v", err)
	}
	if err := registry.Dispatch(99, nil); err != ErrUnknownCommand {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
}
