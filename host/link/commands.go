package link

import (
	"time"

	"github.com/pkg/errors"

	"clockless/protocol"
)

// Reset clears every strip on the firmware and restarts the sequence
func (l *Link) Reset() error {
	l.sendMu.Lock()
	l.enc.Reset()
	l.sendMu.Unlock()
	return errors.Wrap(l.Send(protocol.CmdReset, nil), "reset")
}

// ConfigStrip registers a strip. Strips must be configured in index order
// before the first frame.
func (l *Link) ConfigStrip(c protocol.ConfigStrip) error {
	return errors.Wrapf(l.Send(protocol.CmdConfigStrip, c.Encode), "configure strip %d", c.Strip)
}

// LoadPixels sends a strip's whole frame, split into chunks that fit one
// message each
func (l *Link) LoadPixels(strip uint8, rgb []byte) error {
	if len(rgb) == 0 {
		cmd := protocol.LoadPixels{Strip: strip}
		return errors.Wrapf(l.Send(protocol.CmdLoadPixels, cmd.Encode), "load strip %d", strip)
	}

	for off := 0; off < len(rgb); off += protocol.MaxPixelChunk {
		end := off + protocol.MaxPixelChunk
		if end > len(rgb) {
			end = len(rgb)
		}
		cmd := protocol.LoadPixels{
			Strip:  strip,
			Offset: uint32(off),
			Data:   rgb[off:end],
		}
		if err := l.Send(protocol.CmdLoadPixels, cmd.Encode); err != nil {
			return errors.Wrapf(err, "load strip %d at offset %d", strip, off)
		}
	}
	return nil
}

// Show latches every loaded strip. The firmware acknowledges once the
// transmit cycle has completed.
func (l *Link) Show() error {
	return errors.Wrap(l.Send(protocol.CmdShow, nil), "show")
}

// Stats asks the firmware for its counters
func (l *Link) Stats() (protocol.Stats, error) {
	if err := l.Send(protocol.CmdGetStats, nil); err != nil {
		return protocol.Stats{}, errors.Wrap(err, "get stats")
	}

	deadline := time.Now().Add(l.AckTimeout)
	for {
		payload, err := l.Receive(time.Until(deadline))
		if err != nil {
			return protocol.Stats{}, errors.Wrap(err, "wait for stats")
		}
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil || uint16(id) != protocol.CmdStats {
			l.logger.Debug("skipping response", "id", id)
			continue
		}
		st, err := protocol.DecodeStats(&payload)
		return st, errors.Wrap(err, "decode stats")
	}
}
