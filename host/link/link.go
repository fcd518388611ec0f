// Package link drives LED firmware over a serial port: it frames commands,
// waits for each acknowledgement and retransmits on NAK or timeout.
package link

import (
	"io"
	"sync"
	"time"

	logxi "github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"

	"clockless/host/serial"
	"clockless/protocol"
)

// Defaults
const (
	DefaultAckTimeout = 2 * time.Second
	DefaultRetries    = 3
)

var (
	ErrClosed  = errors.New("link closed")
	ErrTimeout = errors.New("timed out waiting for firmware")
)

// Link is the host end of the firmware protocol. Commands are sent one
// frame at a time; Send returns once the firmware acknowledged the frame.
type Link struct {
	port   io.ReadWriteCloser
	logger logxi.Logger

	enc     *protocol.Encoder
	scanner *protocol.Scanner
	input   *protocol.FifoBuffer

	ackCh  chan uint8
	respCh chan []byte

	sendMu sync.Mutex

	AckTimeout time.Duration
	Retries    int

	// Counters, sender goroutine only
	Retransmits uint32

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens the serial device and starts a link over it
func Open(cfg *serial.Config, logger logxi.Logger) (*Link, error) {
	if logger == nil {
		logger = logxi.New("link")
	}
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		logger.Warn("could not flush serial input", "device", cfg.Device, "err", err)
	}
	return New(port, logger), nil
}

// New starts a link on an open port. The link owns the port from here on.
func New(port io.ReadWriteCloser, logger logxi.Logger) *Link {
	if logger == nil {
		logger = logxi.New("link")
	}
	l := &Link{
		port:       port,
		logger:     logger,
		enc:        protocol.NewEncoder(),
		scanner:    protocol.NewScanner(),
		input:      protocol.NewFifoBuffer(4 * protocol.MessageLengthMax),
		ackCh:      make(chan uint8, 4),
		respCh:     make(chan []byte, 16),
		AckTimeout: DefaultAckTimeout,
		Retries:    DefaultRetries,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	go l.readLoop()
	return l
}

// Send transmits one command and waits for the firmware to accept it
func (l *Link) Send(cmdID uint16, args func(out protocol.OutputBuffer)) error {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()

	msg, err := l.enc.Encode(cmdID, args)
	if err != nil {
		return errors.Wrapf(err, "encode command %d", cmdID)
	}
	want := protocol.NextSeq(l.enc.Seq())

	for attempt := 0; attempt <= l.Retries; attempt++ {
		l.drainAcks()
		if attempt > 0 {
			l.Retransmits++
			l.logger.Debug("retransmit", "cmd", cmdID, "seq", l.enc.Seq(), "attempt", attempt)
		}

		if _, err := l.port.Write(msg); err != nil {
			return errors.Wrap(err, "write frame")
		}

		got, err := l.waitAck()
		if err == ErrTimeout {
			continue
		}
		if err != nil {
			return err
		}
		if got == want {
			l.enc.Advance()
			return nil
		}
		l.logger.Debug("nak", "cmd", cmdID, "want", want, "got", got)
	}
	return errors.Wrapf(ErrTimeout, "command %d not acknowledged after %d attempts", cmdID, l.Retries+1)
}

func (l *Link) waitAck() (uint8, error) {
	timer := time.NewTimer(l.AckTimeout)
	defer timer.Stop()

	select {
	case seq := <-l.ackCh:
		return seq, nil
	case <-timer.C:
		return 0, ErrTimeout
	case <-l.stopCh:
		return 0, ErrClosed
	}
}

func (l *Link) drainAcks() {
	for {
		select {
		case <-l.ackCh:
		default:
			return
		}
	}
}

// Receive waits for the next unsolicited frame from the firmware and
// returns its payload
func (l *Link) Receive(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-l.respCh:
		return resp, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-l.stopCh:
		return nil, ErrClosed
	}
}

func (l *Link) readLoop() {
	defer close(l.doneCh)

	buf := make([]byte, 256)
	for {
		select {
		case <-l.stopCh:
			return
		default:
		}

		n, err := l.port.Read(buf)
		if n > 0 {
			l.feed(buf[:n])
		}
		if err == io.EOF || err == io.ErrClosedPipe {
			return
		}
		if err != nil {
			l.logger.Debug("serial read", "err", err)
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (l *Link) feed(data []byte) {
	for len(data) > 0 {
		n := l.input.Write(data)
		data = data[n:]
		l.scanner.Scan(l.input, l.dispatch)
		if n == 0 && len(data) > 0 {
			// Nothing framed in a full buffer; start over
			l.input.Reset()
			l.scanner.Reset()
		}
	}
}

// dispatch routes a frame: an empty payload is an ACK, anything else a
// response
func (l *Link) dispatch(f protocol.Frame) {
	if len(f.Payload) == 0 {
		select {
		case l.ackCh <- f.Sequence:
		default:
		}
		return
	}

	payload := append([]byte(nil), f.Payload...)
	select {
	case l.respCh <- payload:
	default:
		l.logger.Warn("response dropped", "len", len(payload))
	}
}

// Close stops the reader and closes the port
func (l *Link) Close() error {
	select {
	case <-l.stopCh:
		return nil
	default:
	}
	close(l.stopCh)
	err := l.port.Close()
	<-l.doneCh
	return errors.Wrap(err, "close link")
}
