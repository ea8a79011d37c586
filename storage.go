package dgus

import "fmt"

// Storage is the output medium a Request writes its frame into.
//
// Implementations never grow past Cap; a write that does not fit fails with
// ErrBufferOverflow and leaves the storage unchanged.
type Storage interface {
	// Write appends p in full or not at all.
	Write(p []byte) (int, error)
	// WriteByte appends a single byte.
	WriteByte(c byte) error
	// Len returns the number of bytes written so far.
	Len() int
	// Cap returns the maximum number of bytes the storage can hold.
	Cap() int
	// Bytes returns the written bytes. The slice aliases the storage and
	// stays valid until the next write or truncate.
	Bytes() []byte
	// Truncate discards all but the first n written bytes.
	Truncate(n int)
}

// Slice is a Storage backed by a caller-owned buffer.
type Slice struct {
	buf []byte
	pos int
}

// NewSlice returns a Storage writing into buf. Its capacity is len(buf),
// clamped to MaxFrameSize.
func NewSlice(buf []byte) *Slice {
	if len(buf) > MaxFrameSize {
		buf = buf[:MaxFrameSize]
	}
	return &Slice{buf: buf}
}

func (s *Slice) Write(p []byte) (int, error) {
	if len(p) > len(s.buf)-s.pos {
		return 0, fmt.Errorf("%w: %d bytes do not fit in %d", ErrBufferOverflow, len(p), len(s.buf)-s.pos)
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += n
	return n, nil
}

func (s *Slice) WriteByte(c byte) error {
	if s.pos >= len(s.buf) {
		return ErrBufferOverflow
	}
	s.buf[s.pos] = c
	s.pos++
	return nil
}

func (s *Slice) Len() int      { return s.pos }
func (s *Slice) Cap() int      { return len(s.buf) }
func (s *Slice) Bytes() []byte { return s.buf[:s.pos] }

func (s *Slice) Truncate(n int) {
	if n >= 0 && n < s.pos {
		s.pos = n
	}
}

// Vec is a Storage that grows on demand up to a fixed limit.
type Vec struct {
	buf   []byte
	limit int
}

// NewVec returns a growable Storage bounded by limit bytes, clamped to
// MaxFrameSize.
func NewVec(limit int) *Vec {
	if limit > MaxFrameSize {
		limit = MaxFrameSize
	}
	if limit < 0 {
		limit = 0
	}
	return &Vec{limit: limit}
}

func (v *Vec) Write(p []byte) (int, error) {
	if len(p) > v.limit-len(v.buf) {
		return 0, fmt.Errorf("%w: %d bytes do not fit in %d", ErrBufferOverflow, len(p), v.limit-len(v.buf))
	}
	v.buf = append(v.buf, p...)
	return len(p), nil
}

func (v *Vec) WriteByte(c byte) error {
	if len(v.buf) >= v.limit {
		return ErrBufferOverflow
	}
	v.buf = append(v.buf, c)
	return nil
}

func (v *Vec) Len() int      { return len(v.buf) }
func (v *Vec) Cap() int      { return v.limit }
func (v *Vec) Bytes() []byte { return v.buf }

func (v *Vec) Truncate(n int) {
	if n >= 0 && n < len(v.buf) {
		v.buf = v.buf[:n]
	}
}

var (
	_ Storage = (*Slice)(nil)
	_ Storage = (*Vec)(nil)
)
