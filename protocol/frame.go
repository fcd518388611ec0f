package protocol

import "errors"

var (
	ErrFrameTooLong = errors.New("frame exceeds maximum length")
	ErrFraming      = errors.New("bad frame header or trailer")
	ErrCRC          = errors.New("frame CRC mismatch")

	// errShort means the frame is not complete yet
	errShort = errors.New("incomplete frame")
)

// Frame is one checked message
type Frame struct {
	Sequence uint8
	Payload  []byte
}

// ScanFrame checks the message at the start of data. It returns the number
// of bytes the message occupies. The payload aliases data.
func ScanFrame(data []byte) (int, Frame, error) {
	if len(data) < MessageLengthMin {
		return 0, Frame{}, errShort
	}

	msgLen := int(data[MessagePositionLen])
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax {
		return 0, Frame{}, ErrFraming
	}
	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return 0, Frame{}, ErrFraming
	}
	if len(data) < msgLen {
		return 0, Frame{}, errShort
	}
	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return 0, Frame{}, ErrFraming
	}

	crc := uint16(data[msgLen-MessageTrailerCRC])<<8 | uint16(data[msgLen-MessageTrailerCRC+1])
	if crc != CRC16(data[:msgLen-MessageTrailerSize]) {
		return 0, Frame{}, ErrCRC
	}

	return msgLen, Frame{
		Sequence: seq,
		Payload:  data[MessageHeaderSize : msgLen-MessageTrailerSize],
	}, nil
}

// IsIncomplete reports whether ScanFrame needs more bytes
func IsIncomplete(err error) bool {
	return err == errShort
}

// Scanner splits a byte stream into checked frames, skipping garbage up
// to the next sync byte after any framing or CRC error
type Scanner struct {
	synced bool

	// Counters
	Frames  uint32
	Errors  uint32
	Resyncs uint32
}

// NewScanner returns a scanner that assumes the stream starts on a frame
func NewScanner() *Scanner {
	return &Scanner{synced: true}
}

// Scan consumes complete frames from input and calls fn for each one.
// Bytes of a partial frame stay in input for the next call.
func (s *Scanner) Scan(input InputBuffer, fn func(Frame)) {
	data := input.Data()
	total := len(data)

	for len(data) > 0 {
		if !s.synced {
			i := indexSync(data)
			if i < 0 {
				data = nil
				break
			}
			data = data[i+1:]
			s.synced = true
			s.Resyncs++
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		n, frame, err := ScanFrame(data)
		if err == errShort {
			break
		}
		if err != nil {
			s.synced = false
			s.Errors++
			continue
		}
		data = data[n:]
		s.Frames++
		fn(frame)
	}

	input.Pop(total - len(data))
}

// Synchronized reports whether the scanner is aligned to frame boundaries
func (s *Scanner) Synchronized() bool { return s.synced }

// Reset forgets any error state
func (s *Scanner) Reset() {
	s.synced = true
}

func indexSync(data []byte) int {
	for i, b := range data {
		if b == MessageValueSync {
			return i
		}
	}
	return -1
}
