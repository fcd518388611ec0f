// Package layout reads the strip layout file shared by the simulator and
// the firmware link
package layout

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"clockless/core"
)

// Layout is the complete strip configuration
type Layout struct {
	Channels     int     `yaml:"channels"`     // Hardware channels to use (default 8)
	Mode         string  `yaml:"mode"`         // incremental or precompute
	Transmitters int     `yaml:"transmitters"` // Arena size (default: number of strips)
	Strips       []Strip `yaml:"strips"`
}

// Strip is one physical LED strip
type Strip struct {
	Name   string  `yaml:"name"`
	Pin    uint32  `yaml:"pin"`
	Pixels int     `yaml:"pixels"`
	Chip   string  `yaml:"chip,omitempty"`   // ws2812, sk6812, ws2811
	Timing *Timing `yaml:"timing,omitempty"` // Overrides chip
	Order  string  `yaml:"order"`            // rgb, grb, ...
}

// Timing holds explicit phase lengths in nanoseconds
type Timing struct {
	T1 uint32 `yaml:"t1"`
	T2 uint32 `yaml:"t2"`
	T3 uint32 `yaml:"t3"`
}

var chips = map[string]core.Timing{
	"ws2812": core.TimingWS2812,
	"sk6812": core.TimingSK6812,
	"ws2811": core.TimingWS2811,
}

// Load reads and validates a layout file
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read layout")
	}
	return Parse(data)
}

// Parse decodes and validates layout YAML
func Parse(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrap(err, "parse layout")
	}
	l.applyDefaults()
	if err := l.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid layout")
	}
	return &l, nil
}

func (l *Layout) applyDefaults() {
	if l.Channels == 0 {
		l.Channels = core.DefaultMaxChannels
	}
	if l.Transmitters == 0 {
		l.Transmitters = len(l.Strips)
	}
	for i := range l.Strips {
		s := &l.Strips[i]
		if s.Chip == "" && s.Timing == nil {
			s.Chip = "ws2812"
		}
		if s.Order == "" {
			s.Order = "grb"
		}
	}
}

// Validate checks the layout against the engine's limits
func (l *Layout) Validate() error {
	if len(l.Strips) == 0 {
		return errors.New("no strips")
	}
	if l.Channels < 1 || l.Channels > core.MaxStatusChannel {
		return errors.Errorf("channels must be 1..%d, got %d", core.MaxStatusChannel, l.Channels)
	}
	if _, ok := core.ParseMode(l.Mode); !ok {
		return errors.Errorf("unknown mode %q", l.Mode)
	}
	if l.Transmitters < len(l.Strips) || l.Transmitters >= int(core.NoHandle) {
		return errors.Errorf("transmitters must cover %d strips and stay below %d", len(l.Strips), core.NoHandle)
	}

	names := make(map[string]bool)
	pins := make(map[uint32]string)
	for i, s := range l.Strips {
		if s.Name == "" {
			return errors.Errorf("strip %d has no name", i)
		}
		if names[s.Name] {
			return errors.Errorf("duplicate strip name %q", s.Name)
		}
		names[s.Name] = true

		if other, ok := pins[s.Pin]; ok {
			return errors.Errorf("strips %q and %q share pin %d", other, s.Name, s.Pin)
		}
		pins[s.Pin] = s.Name

		if s.Pixels < 0 || 3*s.Pixels > core.DefaultMaxStripBytes {
			return errors.Errorf("strip %q: pixel count %d out of range", s.Name, s.Pixels)
		}
		if _, ok := core.ParseColorOrder(s.Order); !ok {
			return errors.Errorf("strip %q: unknown colour order %q", s.Name, s.Order)
		}
		if s.Timing == nil {
			if _, ok := chips[s.Chip]; !ok {
				return errors.Errorf("strip %q: unknown chip %q", s.Name, s.Chip)
			}
		}
		if _, err := core.NewWaveform(s.ProtocolTiming(), core.DefaultClock(), core.ResetNs); err != nil {
			return errors.Wrapf(err, "strip %q", s.Name)
		}
	}
	return nil
}

// ProtocolTiming returns the strip's phase lengths
func (s *Strip) ProtocolTiming() core.Timing {
	if s.Timing != nil {
		return core.Timing{T1: s.Timing.T1, T2: s.Timing.T2, T3: s.Timing.T3}
	}
	return chips[s.Chip]
}

// ColorOrder returns the parsed colour order
func (s *Strip) ColorOrder() core.ColorOrder {
	o, _ := core.ParseColorOrder(s.Order)
	return o
}

// EngineConfig returns the scheduler configuration for this layout
func (l *Layout) EngineConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.MaxChannels = l.Channels
	cfg.MaxTransmitters = l.Transmitters
	cfg.Mode, _ = core.ParseMode(l.Mode)
	return cfg
}

// Marshal renders the layout back to YAML
func (l *Layout) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(l)
	return data, errors.Wrap(err, "marshal layout")
}
