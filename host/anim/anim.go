// Package anim renders test patterns for LED strips as packed RGB frames
package anim

import (
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Pattern fills dst, three bytes per pixel in RGB order, with frame n of
// an animation
type Pattern interface {
	Render(dst []byte, n int)
}

// PatternFunc adapts a function to Pattern
type PatternFunc func(dst []byte, n int)

func (f PatternFunc) Render(dst []byte, n int) { f(dst, n) }

func put(dst []byte, i int, c colorful.Color) {
	dst[3*i], dst[3*i+1], dst[3*i+2] = c.Clamped().RGB255()
}

// Solid lights every pixel with one colour
func Solid(c colorful.Color) Pattern {
	return PatternFunc(func(dst []byte, n int) {
		for i := 0; i < len(dst)/3; i++ {
			put(dst, i, c)
		}
	})
}

// Rainbow spreads the hue wheel over the strip and rotates it by step
// degrees per frame
type Rainbow struct {
	Step  float64
	Value float64
}

func (r Rainbow) Render(dst []byte, n int) {
	pixels := len(dst) / 3
	if pixels == 0 {
		return
	}
	v := r.Value
	if v <= 0 {
		v = 1
	}
	for i := 0; i < pixels; i++ {
		h := math.Mod(float64(i)*360/float64(pixels)+float64(n)*r.Step, 360)
		put(dst, i, colorful.Hsv(h, 1, v))
	}
}

// Gradient blends From into To along the strip in Lab space, sliding the
// blend by one pixel per frame
type Gradient struct {
	From, To colorful.Color
}

func (g Gradient) Render(dst []byte, n int) {
	pixels := len(dst) / 3
	for i := 0; i < pixels; i++ {
		// Triangle wave so the strip wraps without a seam
		pos := (i + n) % (2 * pixels)
		if pos >= pixels {
			pos = 2*pixels - 1 - pos
		}
		t := 0.0
		if pixels > 1 {
			t = float64(pos) / float64(pixels-1)
		}
		put(dst, i, g.From.BlendLab(g.To, t))
	}
}

// Chase runs a single lit pixel along a dark strip
type Chase struct {
	Color colorful.Color
}

func (c Chase) Render(dst []byte, n int) {
	for i := range dst {
		dst[i] = 0
	}
	if pixels := len(dst) / 3; pixels > 0 {
		put(dst, n%pixels, c.Color)
	}
}

var builders = map[string]func(from, to colorful.Color) Pattern{
	"solid":    func(from, to colorful.Color) Pattern { return Solid(from) },
	"rainbow":  func(from, to colorful.Color) Pattern { return Rainbow{Step: 5} },
	"gradient": func(from, to colorful.Color) Pattern { return Gradient{From: from, To: to} },
	"chase":    func(from, to colorful.Color) Pattern { return Chase{Color: from} },
}

// Names lists the patterns ByName accepts
func Names() []string {
	names := make([]string, 0, len(builders))
	for n := range builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByName builds a pattern from its name and two "#rrggbb" colours. Patterns
// that need one colour use the first.
func ByName(name, from, to string) (Pattern, error) {
	build, ok := builders[name]
	if !ok {
		return nil, errors.Errorf("unknown pattern %q", name)
	}
	c1, err := colorful.Hex(from)
	if err != nil {
		return nil, errors.Wrapf(err, "pattern colour %q", from)
	}
	c2, err := colorful.Hex(to)
	if err != nil {
		return nil, errors.Wrapf(err, "pattern colour %q", to)
	}
	return build(c1, c2), nil
}
