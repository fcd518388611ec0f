package main

import (
	"fmt"

	logxi "github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"

	"clockless/core"
	"clockless/host/layout"
	"clockless/host/link"
	"clockless/host/rmtsim"
	"clockless/host/serial"
	"clockless/protocol"
)

// simOutput runs the engine against the simulated peripheral and decodes
// every frame back off the wire
type simOutput struct {
	logger  logxi.Logger
	periph  *rmtsim.Peripheral
	sched   *core.Scheduler
	strips  []layout.Strip
	handles []core.Handle
	srcs    []core.PixelBuffer
	checked int
}

func newSimOutput(lay *layout.Layout, logger logxi.Logger) (*simOutput, error) {
	periph := rmtsim.New(lay.Channels, core.DefaultMaxPulses)
	sched, err := core.NewScheduler(lay.EngineConfig(), periph)
	if err != nil {
		periph.Close()
		return nil, errors.Wrap(err, "start scheduler")
	}

	core.SetDebugWriter(func(msg string) { logger.Debug(msg) })
	core.SetDebugEnabled(logger.IsDebug())

	o := &simOutput{
		logger: logger,
		periph: periph,
		sched:  sched,
		strips: lay.Strips,
		srcs:   make([]core.PixelBuffer, len(lay.Strips)),
	}
	for i, s := range lay.Strips {
		h, err := sched.Register(core.Pin(s.Pin), s.ProtocolTiming())
		if err != nil {
			periph.Close()
			return nil, errors.Wrapf(err, "register strip %s", s.Name)
		}
		o.handles = append(o.handles, h)
		o.srcs[i] = *core.NewPixelBuffer(nil, s.ColorOrder())
	}
	logger.Info("simulating", "strips", len(lay.Strips), "channels", sched.Channels(), "mode", sched.Config().Mode)
	return o, nil
}

func (o *simOutput) Show(frames [][]byte) error {
	for i, f := range frames {
		o.srcs[i].Reset(f)
		if err := o.sched.Load(o.handles[i], &o.srcs[i]); err != nil {
			return errors.Wrapf(err, "load strip %s", o.strips[i].Name)
		}
	}
	if err := o.sched.Show(); err != nil {
		return errors.Wrap(err, "show")
	}

	for i, f := range frames {
		w := o.sched.Transmitter(o.handles[i]).Waveform()
		got := w.DecodeFrame(o.periph.LastFrame(core.Pin(o.strips[i].Pin)))
		want := reorder(f, o.strips[i].ColorOrder())
		if string(got) != string(want) {
			return errors.Errorf("strip %s: wire data does not match the frame", o.strips[i].Name)
		}
		o.checked++
	}
	o.logger.Debug("frame verified", "busy", o.sched.Stats().MaxBusy, "waves", o.sched.Stats().Waves)
	return nil
}

func (o *simOutput) Summary() (string, error) {
	if o.logger.IsDebug() {
		core.DumpEventRing()
	}
	st := o.sched.Stats()
	return fmt.Sprintf("cycles=%d completions=%d refills=%d waves=%d checked=%d slots=%d",
		st.Cycles, st.Completions, st.Refills, st.Waves, o.checked, o.periph.Emitted()), nil
}

func (o *simOutput) Close() error { return o.periph.Close() }

// reorder puts RGB triples into wire order
func reorder(rgb []byte, order core.ColorOrder) []byte {
	out := make([]byte, len(rgb))
	for i := 0; i+2 < len(rgb); i += 3 {
		for k := 0; k < 3; k++ {
			out[i+k] = rgb[i+int(order[k])]
		}
	}
	return out
}

// deviceOutput sends frames to the firmware
type deviceOutput struct {
	logger logxi.Logger
	link   *link.Link
	sent   int
}

func newDeviceOutput(lay *layout.Layout, dev string, baud int, logger logxi.Logger) (*deviceOutput, error) {
	cfg := serial.DefaultConfig(dev)
	cfg.Baud = baud

	l, err := link.Open(cfg, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", dev)
	}
	if err := l.Reset(); err != nil {
		l.Close()
		return nil, err
	}
	for i, s := range lay.Strips {
		t := s.ProtocolTiming()
		cmd := protocol.ConfigStrip{
			Strip: uint8(i),
			Pin:   s.Pin,
			T1:    t.T1,
			T2:    t.T2,
			T3:    t.T3,
			Order: s.ColorOrder().Index(),
		}
		if err := l.ConfigStrip(cmd); err != nil {
			l.Close()
			return nil, err
		}
	}
	logger.Info("connected", "device", dev, "strips", len(lay.Strips))
	return &deviceOutput{logger: logger, link: l}, nil
}

func (o *deviceOutput) Show(frames [][]byte) error {
	for i, f := range frames {
		if err := o.link.LoadPixels(uint8(i), f); err != nil {
			return err
		}
	}
	if err := o.link.Show(); err != nil {
		return err
	}
	o.sent++
	return nil
}

func (o *deviceOutput) Summary() (string, error) {
	st, err := o.link.Stats()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sent=%d cycles=%d completions=%d spurious=%d faults=%d link_errors=%d retransmits=%d",
		o.sent, st.Cycles, st.Completions, st.Spurious, st.Faults, st.Errors, o.link.Retransmits), nil
}

func (o *deviceOutput) Close() error { return o.link.Close() }
