package dgus

import (
	"bytes"
	"fmt"
)

// State is the position of an Accumulator within the current frame.
type State int

const (
	// StateSearching scans for the header magic.
	StateSearching State = iota
	// StateHaveLength holds the header and waits for the length byte.
	StateHaveLength
	// StateAccumulating collects the rest of a frame of known size.
	StateAccumulating
	// StateReady holds a complete frame until the next Feed.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "Searching"
	case StateHaveLength:
		return "HaveLength"
	case StateAccumulating:
		return "Accumulating"
	case StateReady:
		return "Ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FeedStatus tells what stopped a Feed call.
type FeedStatus int

const (
	// FeedConsumed means all input was consumed without completing a frame.
	FeedConsumed FeedStatus = iota
	// FeedFrame means a frame completed and was decoded.
	FeedFrame
	// FeedError means a frame was discarded. The accumulator is searching again.
	FeedError
)

// FeedResult is the outcome of a Feed call.
type FeedResult struct {
	Status FeedStatus
	// Response is set for FeedFrame. It borrows the accumulator buffer and is
	// valid until the next Feed or Reset.
	Response Response
	// Err is set for FeedError.
	Err error
}

// MinAccumulatorSize is the smallest buffer able to hold a frame.
const MinAccumulatorSize = PrefixSize + MinLength

// Accumulator reassembles frames from a byte stream delivered in arbitrary
// chunks. Its buffer is allocated once and reused for every frame.
//
// Corrupt, oversized or truncated frames are discarded and reported as
// FeedError; the accumulator then resumes searching with the next unread
// byte, so it stays usable for the lifetime of the stream.
type Accumulator struct {
	buf     []byte
	n       int
	want    int
	crc     bool
	state   State
	dropped uint64
}

// NewAccumulator returns an accumulator holding frames of up to size bytes.
// crc selects whether frames carry a trailing checksum.
func NewAccumulator(size int, crc bool) (*Accumulator, error) {
	least := PrefixSize + minLength(crc)
	if size < least || size > MaxFrameSize {
		return nil, fmt.Errorf("%w: accumulator size %d outside [%d, %d]", ErrBufferTooSmall, size, least, MaxFrameSize)
	}
	return &Accumulator{buf: make([]byte, size), crc: crc}, nil
}

// State returns the current state.
func (a *Accumulator) State() State { return a.state }

// Len returns the number of bytes held for the current frame.
func (a *Accumulator) Len() int { return a.n }

// Cap returns the largest frame the accumulator can hold.
func (a *Accumulator) Cap() int { return len(a.buf) }

// Dropped returns the number of bytes discarded while searching for a header.
func (a *Accumulator) Dropped() uint64 { return a.dropped }

// Frame returns the raw bytes of the ready frame, or nil when no frame is
// ready.
func (a *Accumulator) Frame() []byte {
	if a.state != StateReady {
		return nil
	}
	return a.buf[:a.n]
}

// Reset discards any partial frame and starts searching again.
func (a *Accumulator) Reset() {
	a.n = 0
	a.want = 0
	a.state = StateSearching
}

// Feed consumes input until a frame completes, a frame is discarded, or the
// input runs out. It returns the event and the unread rest of input, which
// should be fed next.
func (a *Accumulator) Feed(input []byte) (FeedResult, []byte) {
	if a.state == StateReady {
		a.Reset()
	}

	for len(input) > 0 {
		switch a.state {
		case StateSearching:
			if a.n == 0 {
				i := bytes.IndexByte(input, headerHi)
				if i < 0 {
					a.dropped += uint64(len(input))
					return FeedResult{Status: FeedConsumed}, nil
				}
				a.dropped += uint64(i)
				a.buf[0] = headerHi
				a.n = 1
				input = input[i+1:]
				continue
			}
			b := input[0]
			input = input[1:]
			switch b {
			case headerLo:
				a.buf[1] = b
				a.n = 2
				a.state = StateHaveLength
			case headerHi:
				// The held byte was noise; this one may start the header.
				a.dropped++
			default:
				a.dropped += 2
				a.n = 0
			}

		case StateHaveLength:
			length := int(input[0])
			input = input[1:]
			if length < minLength(a.crc) {
				a.Reset()
				return a.fail(fmt.Errorf("%w: length %d below minimum %d", ErrLengthMismatch, length, minLength(a.crc))), input
			}
			if PrefixSize+length > len(a.buf) {
				a.Reset()
				return a.fail(fmt.Errorf("%w: frame of %d bytes exceeds %d", ErrBufferOverflow, PrefixSize+length, len(a.buf))), input
			}
			a.buf[HeaderSize] = byte(length)
			a.n = PrefixSize
			a.want = PrefixSize + length
			a.state = StateAccumulating

		case StateAccumulating:
			k := copy(a.buf[a.n:a.want], input)
			a.n += k
			input = input[k:]
			if a.n < a.want {
				continue
			}
			return a.complete(), input
		}
	}
	return FeedResult{Status: FeedConsumed}, nil
}

// FeedAll feeds a whole chunk, calling fn for every frame or discarded frame
// in arrival order. A response passed to fn is only valid during the call.
func (a *Accumulator) FeedAll(input []byte, fn func(Response, error)) {
	for {
		res, rest := a.Feed(input)
		switch res.Status {
		case FeedFrame:
			fn(res.Response, nil)
		case FeedError:
			fn(nil, res.Err)
		default:
			return
		}
		input = rest
	}
}

func (a *Accumulator) complete() FeedResult {
	content := a.buf[PrefixSize:a.n]
	if a.crc {
		if !VerifyChecksum(content) {
			a.Reset()
			return a.fail(ErrChecksumMismatch)
		}
		content = content[:len(content)-CRCSize]
	}
	resp, err := ParseContent(content)
	if err != nil {
		a.Reset()
		return a.fail(err)
	}
	a.state = StateReady
	return FeedResult{Status: FeedFrame, Response: resp}
}

func (a *Accumulator) fail(err error) FeedResult {
	return FeedResult{Status: FeedError, Err: err}
}
