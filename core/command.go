package core

import (
	"errors"
)

// ErrUnknownCommand is returned for ids nothing was registered under
var ErrUnknownCommand = errors.New("unknown command id")

// CommandHandler decodes its own arguments from data and advances it
type CommandHandler func(data *[]byte) error

// Command is one entry of the firmware's command table
type Command struct {
	ID      uint16
	Name    string
	Format  string // e.g. "strip=%c pin=%u"
	Handler CommandHandler
}

// CommandRegistry assigns ids in registration order, so the order of
// Register calls is the wire contract. Responses (firmware to host) are
// registered with a nil handler to reserve their id.
type CommandRegistry struct {
	commands []Command
	byName   map[string]uint16
}

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{byName: make(map[string]uint16)}
}

// Register adds a command and returns its id. Registering a name twice
// returns the first id.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	if id, ok := r.byName[name]; ok {
		return id
	}
	id := uint16(len(r.commands))
	r.commands = append(r.commands, Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	})
	r.byName[name] = id
	return id
}

// Lookup returns the id of a named command
func (r *CommandRegistry) Lookup(name string) (uint16, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Get returns the command registered under id
func (r *CommandRegistry) Get(id uint16) (*Command, bool) {
	if int(id) >= len(r.commands) {
		return nil, false
	}
	return &r.commands[id], true
}

// Count returns the number of registered entries
func (r *CommandRegistry) Count() int { return len(r.commands) }

// Dispatch runs the handler for id. Responses can't be dispatched.
func (r *CommandRegistry) Dispatch(id uint16, data *[]byte) error {
	cmd, ok := r.Get(id)
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}
	return cmd.Handler(data)
}

// Dictionary lists every entry as "name format", one per line, in id order
func (r *CommandRegistry) Dictionary() string {
	dict := ""
	for _, cmd := range r.commands {
		if cmd.Format != "" {
			dict += cmd.Name + " " + cmd.Format + "\n"
		} else {
			dict += cmd.Name + "\n"
		}
	}
	return dict
}
