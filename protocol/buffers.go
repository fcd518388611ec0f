package protocol

// InputBuffer is the receive side of a byte stream as the decoder sees it
type InputBuffer interface {
	// Data returns the unread bytes as one contiguous slice
	Data() []byte

	// Available returns the number of unread bytes
	Available() int

	// Pop discards n bytes from the front
	Pop(n int)
}

// OutputBuffer collects outgoing bytes. Frames are built in place: the
// length byte is patched with Update once the payload is known.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
}

// SliceInputBuffer is an InputBuffer over a fixed byte slice
type SliceInputBuffer struct {
	data []byte
}

// NewSliceInputBuffer wraps data without copying it
func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte   { return s.data }
func (s *SliceInputBuffer) Available() int { return len(s.data) }

func (s *SliceInputBuffer) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// ScratchOutput is an OutputBuffer over a fixed array big enough for one
// frame. Writes past the end are dropped.
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int
}

// NewScratchOutput returns an empty scratch buffer
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	s.pos += copy(s.buf[s.pos:], data)
}

func (s *ScratchOutput) CurPosition() int { return s.pos }

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < s.pos {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns everything written since the last Reset
func (s *ScratchOutput) Result() []byte { return s.buf[:s.pos] }

// Full reports whether the last write was truncated or the buffer is full
func (s *ScratchOutput) Full() bool { return s.pos == len(s.buf) }

// Reset empties the buffer
func (s *ScratchOutput) Reset() { s.pos = 0 }

// FifoBuffer queues received bytes for the decoder. Unread bytes are kept
// contiguous by sliding them to the front when the tail runs out of room,
// so Data never allocates.
type FifoBuffer struct {
	buf   []byte
	read  int
	write int
}

// NewFifoBuffer allocates a FIFO holding up to capacity bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write appends as much of data as fits and returns the count stored
func (f *FifoBuffer) Write(data []byte) int {
	if len(data) > len(f.buf)-f.write && f.read > 0 {
		f.compact()
	}
	n := copy(f.buf[f.write:], data)
	f.write += n
	return n
}

// WriteByte appends a single byte
func (f *FifoBuffer) WriteByte(b byte) error {
	if f.write == len(f.buf) {
		f.compact()
		if f.write == len(f.buf) {
			return ErrBufferTooSmall
		}
	}
	f.buf[f.write] = b
	f.write++
	return nil
}

// Read copies unread bytes into data and consumes them
func (f *FifoBuffer) Read(data []byte) int {
	n := copy(data, f.buf[f.read:f.write])
	f.Pop(n)
	return n
}

func (f *FifoBuffer) compact() {
	n := copy(f.buf, f.buf[f.read:f.write])
	f.read = 0
	f.write = n
}

func (f *FifoBuffer) Available() int { return f.write - f.read }

// Free returns how many bytes can still be written
func (f *FifoBuffer) Free() int { return len(f.buf) - f.Available() }

func (f *FifoBuffer) Data() []byte { return f.buf[f.read:f.write] }

func (f *FifoBuffer) Pop(n int) {
	if n > f.Available() {
		n = f.Available()
	}
	f.read += n
	if f.read == f.write {
		f.read = 0
		f.write = 0
	}
}

func (f *FifoBuffer) IsEmpty() bool { return f.read == f.write }

// Reset discards everything
func (f *FifoBuffer) Reset() {
	f.read = 0
	f.write = 0
}
