package protocol

// CommandHandler receives one decoded command. data points at the
// command's arguments; the handler must consume exactly those.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Decoder is the firmware end of the link. It takes frames off the serial
// stream, runs the commands they carry and answers each frame with an ACK
// holding the next sequence number it expects.
type Decoder struct {
	scanner *Scanner
	nextSeq uint8
	output  OutputBuffer
	handler CommandHandler

	resetCallback func()
	flushCallback func()

	// Handler failures, counted and otherwise ignored
	CommandErrors uint32
}

// NewDecoder creates a Decoder writing ACKs and responses to output
func NewDecoder(output OutputBuffer, handler CommandHandler) *Decoder {
	return &Decoder{
		scanner: NewScanner(),
		nextSeq: MessageDest,
		output:  output,
		handler: handler,
	}
}

// Receive processes everything complete in input
func (d *Decoder) Receive(input InputBuffer) {
	d.scanner.Scan(input, d.handleFrame)
}

func (d *Decoder) handleFrame(f Frame) {
	// A host that restarts begins again at the first sequence number
	if f.Sequence == MessageDest && d.nextSeq != MessageDest {
		d.nextSeq = MessageDest
		if d.resetCallback != nil {
			d.resetCallback()
		}
	}

	// Out of order frames are not run; the ACK doubles as a NAK
	if f.Sequence == d.nextSeq {
		d.nextSeq = NextSeq(f.Sequence)
		d.dispatch(f.Payload)
	}
	d.sendAck()
}

// dispatch runs every command in a payload. A malformed id ends the frame.
func (d *Decoder) dispatch(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.CommandErrors++
		}
	}()

	for len(payload) > 0 {
		id, err := DecodeVLQUint(&payload)
		if err != nil {
			d.CommandErrors++
			return
		}
		if d.handler == nil {
			return
		}
		if err := d.handler(uint16(id), &payload); err != nil {
			// The rest of the frame can't be parsed without this
			// command's arguments
			d.CommandErrors++
			return
		}
	}
}

func (d *Decoder) sendAck() {
	msg := appendTrailer([]byte{MessageLengthMin, d.nextSeq})
	d.output.Output(msg)
	if d.flushCallback != nil {
		d.flushCallback()
	}
}

// Respond sends a command back to the host in its own frame
func (d *Decoder) Respond(cmdID uint16, args func(output OutputBuffer)) {
	start := d.output.CurPosition()
	d.output.Output([]byte{0, d.nextSeq})
	EncodeVLQUint(d.output, uint32(cmdID))
	if args != nil {
		args(d.output)
	}

	n := len(d.output.DataSince(start))
	d.output.Update(start, uint8(n+MessageTrailerSize))
	crc := CRC16(d.output.DataSince(start))
	d.output.Output([]byte{byte(crc >> 8), byte(crc), MessageValueSync})
}

// Reset puts the decoder back to its power-on state
func (d *Decoder) Reset() {
	d.scanner.Reset()
	d.nextSeq = MessageDest
	if d.resetCallback != nil {
		d.resetCallback()
	}
}

// SetResetCallback is called when the host restarts its sequence
func (d *Decoder) SetResetCallback(callback func()) {
	d.resetCallback = callback
}

// SetFlushCallback is called after every ACK so it can be pushed out
// before the next command runs
func (d *Decoder) SetFlushCallback(callback func()) {
	d.flushCallback = callback
}

// Scanner exposes the framing counters
func (d *Decoder) Scanner() *Scanner { return d.scanner }

// NextSequence returns the sequence number the decoder expects next
func (d *Decoder) NextSequence() uint8 { return d.nextSeq }

// Encoder builds host frames. It tracks the sequence number; the caller
// advances it once the firmware has acknowledged a frame.
type Encoder struct {
	seq     uint8
	scratch ScratchOutput
}

// NewEncoder starts at the first sequence number
func NewEncoder() *Encoder {
	return &Encoder{seq: MessageDest}
}

// Encode builds one frame holding a single command
func (e *Encoder) Encode(cmdID uint16, args func(output OutputBuffer)) ([]byte, error) {
	e.scratch.Reset()
	e.scratch.Output([]byte{0, e.seq})
	EncodeVLQUint(&e.scratch, uint32(cmdID))
	if args != nil {
		args(&e.scratch)
	}
	if e.scratch.Full() || e.scratch.CurPosition()+MessageTrailerSize > MessageLengthMax {
		return nil, ErrFrameTooLong
	}

	msg := make([]byte, e.scratch.CurPosition(), e.scratch.CurPosition()+MessageTrailerSize)
	copy(msg, e.scratch.Result())
	msg[MessagePositionLen] = uint8(len(msg) + MessageTrailerSize)
	return appendTrailer(msg), nil
}

// Seq returns the sequence number of the next frame
func (e *Encoder) Seq() uint8 { return e.seq }

// Advance moves to the next sequence number
func (e *Encoder) Advance() { e.seq = NextSeq(e.seq) }

// Reset starts over at the first sequence number
func (e *Encoder) Reset() { e.seq = MessageDest }
