package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-stack/stack"
	"github.com/google/uuid"
	logxi "github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"

	"clockless/host/anim"
	"clockless/host/layout"
)

var (
	logger = logxi.New("clockless")

	layoutFile = flag.String("layout", "", "YAML strip layout (default: built-in demo)")
	device     = flag.String("device", "", "Serial device path; empty runs the simulator")
	baud       = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	frames     = flag.Int("frames", 10, "Frames to send")
	fps        = flag.Int("fps", 30, "Frame rate")
	pattern    = flag.String("pattern", "rainbow", "Pattern: "+strings.Join(anim.Names(), ", "))
	color1     = flag.String("color", "#ff4000", "First pattern colour")
	color2     = flag.String("color2", "#0020ff", "Second pattern colour")
	dump       = flag.Bool("dump", false, "Print the effective layout and exit")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

const demoLayout = `
channels: 2
mode: incremental
strips:
  - {name: desk,  pin: 2, pixels: 60, chip: ws2812, order: grb}
  - {name: shelf, pin: 3, pixels: 30, chip: sk6812, order: grb}
  - {name: sign,  pin: 4, pixels: 12, chip: ws2811, order: rgb}
`

func usage() {
	fmt.Fprintln(os.Stderr, path.Base(os.Args[0]))
	fmt.Fprintln(os.Stderr, "usage: ", os.Args[0], "[options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Drives clockless LED strips, either on the firmware over USB serial")
	fmt.Fprintln(os.Stderr, "or on a simulated RMT peripheral that checks every frame it sends.")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "log levels are handled by the LOGXI env variables, these are documented at https://github.com/mgutz/logxi")
}

func init() {
	flag.Usage = usage
}

func main() {
	flag.Parse()

	if *verbose {
		logger.SetLevel(logxi.LevelDebug)
	}

	session := uuid.New().String()
	logger.Debug("starting", "session", session, "pattern", *pattern)

	if err := run(session); err != nil {
		kv := []interface{}{"session", session, "err", err}
		if f, ok := err.(*failure); ok {
			kv = append(kv, "at", f.trace)
		}
		logger.Error("failed", kv...)
		os.Exit(1)
	}
}

// failure records where run gave up
type failure struct {
	error
	trace stack.CallStack
}

// fail captures the caller's stack, dropping fail itself
func fail(err error) error {
	if err == nil {
		return nil
	}
	return &failure{
		error: err,
		trace: stack.Trace().TrimBelow(stack.Caller(1)).TrimRuntime(),
	}
}

func run(session string) error {
	lay, err := loadLayout()
	if err != nil {
		return fail(err)
	}

	if *dump {
		out, err := lay.Marshal()
		if err != nil {
			return fail(err)
		}
		os.Stdout.Write(out)
		return nil
	}

	pat, err := anim.ByName(*pattern, *color1, *color2)
	if err != nil {
		return fail(err)
	}

	r := newRenderer(lay, pat)
	var out output
	if *device == "" {
		out, err = newSimOutput(lay, logger)
	} else {
		out, err = newDeviceOutput(lay, *device, *baud, logger)
	}
	if err != nil {
		return fail(err)
	}
	defer out.Close()

	tick := time.NewTicker(time.Second / time.Duration(max(*fps, 1)))
	defer tick.Stop()

	start := time.Now()
	for n := 0; n < *frames; n++ {
		if err := out.Show(r.Frame(n)); err != nil {
			return fail(errors.Wrapf(err, "frame %d", n))
		}
		if n+1 < *frames {
			<-tick.C
		}
	}

	summary, err := out.Summary()
	if err != nil {
		return fail(err)
	}
	logger.Info("done", "session", session, "frames", *frames,
		"elapsed", time.Since(start).Round(time.Millisecond), "summary", summary)
	return nil
}

func loadLayout() (*layout.Layout, error) {
	if *layoutFile == "" {
		return layout.Parse([]byte(demoLayout))
	}
	return layout.Load(*layoutFile)
}

// renderer keeps one RGB frame buffer per strip
type renderer struct {
	pat    anim.Pattern
	frames [][]byte
}

func newRenderer(lay *layout.Layout, pat anim.Pattern) *renderer {
	r := &renderer{pat: pat, frames: make([][]byte, len(lay.Strips))}
	for i, s := range lay.Strips {
		r.frames[i] = make([]byte, 3*s.Pixels)
	}
	return r
}

func (r *renderer) Frame(n int) [][]byte {
	for _, f := range r.frames {
		r.pat.Render(f, n)
	}
	return r.frames
}

// output is where rendered frames go
type output interface {
	Show(frames [][]byte) error
	Summary() (string, error)
	Close() error
}
