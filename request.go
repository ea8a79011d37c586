package dgus

import (
	"encoding/binary"
	"fmt"
)

// Request builds one outbound frame into a Storage.
//
//	buf := make([]byte, 64)
//	req, _ := dgus.WithSlice(buf, dgus.CommandWriteVP, 0x1234)
//	_ = req.Push(uint16(0x5A00))
//	_ = req.Push([2]byte{0x12, 0x34})
//	frame, _ := req.Finalize(true)
type Request struct {
	out       Storage
	cmd       Command
	addr      uint32
	wlen      uint8
	base      int // offset of the header within the storage
	payload   int
	finalized bool
	scratch   [MaxData]byte
}

// NewRequest returns a builder for a write command with the header, command
// and address already staged.
func NewRequest(out Storage, cmd Command, addr uint16) (*Request, error) {
	if !cmd.IsWrite() {
		return nil, fmt.Errorf("%w: %s is not a write command", ErrUnknownCommand, cmd)
	}
	if cmd.AddressWidth() != AddressSize {
		return nil, fmt.Errorf("%w: %s does not take a 16-bit address", ErrUnknownCommand, cmd)
	}
	return newRequest(out, cmd, uint32(addr), 0)
}

// NewReadRequest returns a builder for a read command asking for wlen words.
func NewReadRequest(out Storage, cmd Command, addr uint16, wlen uint8) (*Request, error) {
	if !cmd.IsRead() {
		return nil, fmt.Errorf("%w: %s is not a read command", ErrUnknownCommand, cmd)
	}
	if cmd.AddressWidth() != AddressSize {
		return nil, fmt.Errorf("%w: %s does not take a 16-bit address", ErrUnknownCommand, cmd)
	}
	return newRequest(out, cmd, uint32(addr), wlen)
}

// NewCurveRequest returns a builder appending samples to curve channel ch.
func NewCurveRequest(out Storage, ch uint8) (*Request, error) {
	return newRequest(out, CommandWriteCurve, uint32(ch), 0)
}

// NewDwordRequest returns a builder for a write at a 32-bit address.
func NewDwordRequest(out Storage, addr uint32) (*Request, error) {
	return newRequest(out, CommandWriteDword, addr, 0)
}

// NewDwordReadRequest returns a builder for a read of wlen words at a 32-bit
// address.
func NewDwordReadRequest(out Storage, addr uint32, wlen uint8) (*Request, error) {
	return newRequest(out, CommandReadDword, addr, wlen)
}

// WithSlice returns a write request building into buf.
func WithSlice(buf []byte, cmd Command, addr uint16) (*Request, error) {
	return NewRequest(NewSlice(buf), cmd, addr)
}

// WithVec returns a write request building into a growable buffer of at most
// limit bytes.
func WithVec(limit int, cmd Command, addr uint16) (*Request, error) {
	return NewRequest(NewVec(limit), cmd, addr)
}

func newRequest(out Storage, cmd Command, addr uint32, wlen uint8) (*Request, error) {
	width := cmd.AddressWidth()
	overhead := PrefixSize + 1 + width
	if cmd.IsRead() {
		overhead++
	}
	if out.Cap()-out.Len() < overhead {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, overhead, out.Cap()-out.Len())
	}

	r := &Request{out: out, cmd: cmd, addr: addr, wlen: wlen, base: out.Len()}
	var hdr [PrefixSize + 1 + 4 + 1]byte
	hdr[0], hdr[1], hdr[3] = headerHi, headerLo, byte(cmd)
	n := PrefixSize + 1
	switch width {
	case 1:
		hdr[n] = byte(addr)
	case AddressSize:
		binary.BigEndian.PutUint16(hdr[n:], uint16(addr))
	default:
		binary.BigEndian.PutUint32(hdr[n:], addr)
	}
	n += width
	if cmd.IsRead() {
		hdr[n] = wlen
		n++
	}
	if _, err := out.Write(hdr[:n]); err != nil {
		return nil, err
	}
	return r, nil
}

// Command returns the command of the request.
func (r *Request) Command() Command { return r.cmd }

// Address returns the word address the next pushed value lands on. Two
// consecutive single-byte pushes share one address.
func (r *Request) Address() uint16 {
	return uint16(r.Address32())
}

// Address32 is Address for requests built with a 32-bit address. For curve
// requests it is the channel.
func (r *Request) Address32() uint32 {
	if r.cmd == CommandWriteCurve {
		return r.addr
	}
	return r.addr + uint32(r.payload/2)
}

// Len returns the number of payload bytes pushed so far.
func (r *Request) Len() int { return r.payload }

// Push encodes v and appends it to the payload. If v does not fit in the
// frame nothing is written.
func (r *Request) Push(v any) error {
	if r.finalized {
		return ErrAlreadyFinalized
	}
	if r.cmd.IsRead() {
		return ErrPayloadNotAllowed
	}
	n, err := Size(v)
	if err != nil {
		return err
	}
	if limit := r.cmd.MaxPayload(); r.payload+n > limit {
		return fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrBufferOverflow, r.payload+n, limit)
	}
	if _, err := Encode(r.scratch[:n], v); err != nil {
		return err
	}
	if _, err := r.out.Write(r.scratch[:n]); err != nil {
		return err
	}
	r.payload += n
	return nil
}

// CopyFrom encodes v as the whole payload.
func (r *Request) CopyFrom(v any) error {
	if r.finalized {
		return ErrAlreadyFinalized
	}
	if r.payload != 0 {
		return ErrPayloadNotEmpty
	}
	return r.Push(v)
}

// Finalize pads a trailing half word, writes the length byte, optionally
// appends the CRC and returns the frame. The returned slice aliases the
// storage.
func (r *Request) Finalize(crc bool) ([]byte, error) {
	if r.finalized {
		return nil, ErrAlreadyFinalized
	}
	mark := r.out.Len()

	// A lone trailing byte is the high half of a word; the device expects
	// whole words.
	if r.payload%2 == 1 {
		if err := r.out.WriteByte(0); err != nil {
			return nil, fmt.Errorf("pad half word: %w", err)
		}
	}
	if crc {
		var sum [CRCSize]byte
		AppendChecksum(sum[:0], r.out.Bytes()[r.base+PrefixSize:])
		if _, err := r.out.Write(sum[:]); err != nil {
			r.out.Truncate(mark)
			return nil, fmt.Errorf("append crc: %w", err)
		}
	}

	frame := r.out.Bytes()[r.base:]
	frame[HeaderSize] = byte(len(frame) - PrefixSize)
	r.finalized = true
	return frame, nil
}

// Bytes returns the finalized frame, or nil before Finalize.
func (r *Request) Bytes() []byte {
	if !r.finalized {
		return nil
	}
	return r.out.Bytes()[r.base:]
}
