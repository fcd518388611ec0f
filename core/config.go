package core

// Mode selects how a transmitter feeds its channel
type Mode uint8

const (
	// ModeIncremental keeps two fills in channel memory and regenerates
	// each one from the refill interrupt while the other is being sent
	ModeIncremental Mode = iota

	// ModePrecompute converts the whole frame up front and hands it to the
	// driver in one shot. Costs one slot per bit of RAM but no refills.
	ModePrecompute
)

func (m Mode) String() string {
	switch m {
	case ModeIncremental:
		return "incremental"
	case ModePrecompute:
		return "precompute"
	default:
		return "unknown"
	}
}

// ParseMode maps a mode name back to its value
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "", "incremental":
		return ModeIncremental, true
	case "precompute", "builtin":
		return ModePrecompute, true
	}
	return ModeIncremental, false
}

// Build-time style limits
const (
	DefaultMaxChannels     = 8
	DefaultMaxTransmitters = 32
	DefaultMaxPulses       = 64 // One memory block per channel
	DefaultBitsPerChannel  = 8
	DefaultColorChannels   = 3
	MaxColorChannels       = 3
)

// Config holds the engine's fixed geometry
type Config struct {
	// MaxChannels caps how many hardware channels are used. Setting it to 1
	// forces fully serial output.
	MaxChannels int

	// MaxTransmitters is the size of the transmitter arena
	MaxTransmitters int

	// MaxPulses is the slot capacity of one channel buffer
	MaxPulses int

	BitsPerChannel int
	ColorChannels  int

	Clock   Clock
	ResetNs uint32
	Mode    Mode
}

// DefaultConfig returns the configuration of the original 8-channel part
func DefaultConfig() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// applyDefaults fills in zero values
func applyDefaults(cfg *Config) {
	if cfg.MaxChannels == 0 {
		cfg.MaxChannels = DefaultMaxChannels
	}
	if cfg.MaxTransmitters == 0 {
		cfg.MaxTransmitters = DefaultMaxTransmitters
	}
	if cfg.MaxPulses == 0 {
		cfg.MaxPulses = DefaultMaxPulses
	}
	if cfg.BitsPerChannel == 0 {
		cfg.BitsPerChannel = DefaultBitsPerChannel
	}
	if cfg.ColorChannels == 0 {
		cfg.ColorChannels = DefaultColorChannels
	}
	if cfg.Clock.SourceHz == 0 {
		cfg.Clock.SourceHz = DefaultSourceHz
	}
	if cfg.Clock.Divider == 0 {
		cfg.Clock.Divider = DefaultDivider
	}
	if cfg.ResetNs == 0 {
		cfg.ResetNs = ResetNs
	}
}

// PulsesPerFill is the number of slots one refill writes (one pixel)
func (cfg *Config) PulsesPerFill() int {
	return cfg.BitsPerChannel * cfg.ColorChannels
}

// Validate checks that the geometry supports double buffering and that
// every colour channel index is one a PixelSource can serve
func (cfg *Config) Validate() error {
	if cfg.BitsPerChannel != 8 {
		return ErrBufferGeometry
	}
	// Pixel sources hand out RGB only
	if cfg.ColorChannels < 1 || cfg.ColorChannels > MaxColorChannels {
		return ErrBufferGeometry
	}
	if 2*cfg.PulsesPerFill() > cfg.MaxPulses {
		return ErrBufferGeometry
	}
	if cfg.MaxTransmitters <= 0 || cfg.MaxTransmitters >= int(NoHandle) {
		return ErrTooManyTransmitters
	}
	if cfg.MaxChannels <= 0 {
		return ErrNoChannels
	}
	return nil
}
