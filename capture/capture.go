// Package capture records raw link traffic as a stream of CBOR records and
// reads it back for inspection or replay.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("capture: cbor encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("capture: cbor decoder mode: %v", err))
	}
}

// Direction tells which way a chunk travelled.
type Direction uint8

const (
	// DirectionIn is data read from the display.
	DirectionIn Direction = 0
	// DirectionOut is data written to the display.
	DirectionOut Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Record is one captured chunk. Inbound records hold bytes as read from the
// port, which need not align with frames.
type Record struct {
	Time      time.Time `cbor:"1,keyasint"`
	Session   string    `cbor:"2,keyasint"`
	Direction Direction `cbor:"3,keyasint"`
	Data      []byte    `cbor:"4,keyasint"`
	// Err holds the message of a frame error the link reported after this
	// chunk.
	Err string `cbor:"5,keyasint,omitempty"`
}

// Recorder appends records to a writer. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	enc    *cbor.Encoder
	closer io.Closer
	closed bool
}

// NewRecorder returns a recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	r := &Recorder{enc: encMode.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r
}

// Create opens path for appending and returns a recorder writing to it.
func Create(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return NewRecorder(f), nil
}

// Record writes rec. Calls after Close are ignored.
func (r *Recorder) Record(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("write capture record: %w", err)
	}
	return nil
}

// Close closes the underlying writer if it is an io.Closer. It is safe to
// call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Reader iterates over the records of a capture.
type Reader struct {
	dec    *cbor.Decoder
	closer io.Closer
}

// NewReader returns a reader decoding records from r.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{dec: decMode.NewDecoder(r)}
	if c, ok := r.(io.Closer); ok {
		rd.closer = c
	}
	return rd
}

// Open returns a reader over the capture file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	return NewReader(f), nil
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("read capture record: %w", err)
	}
	return rec, nil
}

// Close closes the underlying reader if it is an io.Closer.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
