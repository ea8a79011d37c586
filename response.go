package dgus

import (
	"encoding/binary"
	"fmt"
)

// Response is a decoded inbound frame: either an *Ack or a *WordData.
type Response interface {
	fmt.Stringer
	isResponse()
}

// Ack acknowledges a successful write.
type Ack struct {
	Command Command
}

func (*Ack) isResponse() {}

func (a *Ack) String() string {
	return fmt.Sprintf("Ack{Command:%s}", a.Command)
}

// WordData carries the data words of a response.
type WordData struct {
	Command Command
	// Address is the first word address of Data for commands with a 16-bit
	// address.
	Address uint16
	// Address32 is the first word address of Data. Dword commands carry it
	// on the wire; for 16-bit commands it mirrors Address.
	Address32 uint32
	// Channel is the curve channel of CommandWriteCurve frames.
	Channel uint8
	// WordLen is the word count of read responses.
	WordLen uint8
	// HasWordLen is set for read commands, which carry a word length byte.
	HasWordLen bool
	// Data is a view over the raw payload.
	Data View
}

func (*WordData) isResponse() {}

func (w *WordData) String() string {
	var addr string
	switch w.Command.AddressWidth() {
	case 1:
		addr = fmt.Sprintf("Channel:%d", w.Channel)
	case 4:
		addr = fmt.Sprintf("Address:0x%08X", w.Address32)
	default:
		addr = fmt.Sprintf("Address:0x%04X", w.Address)
	}
	if w.HasWordLen {
		return fmt.Sprintf("WordData{Command:%s %s WordLen:%d Data:% X}", w.Command, addr, w.WordLen, w.Data.data)
	}
	return fmt.Sprintf("WordData{Command:%s %s Data:% X}", w.Command, addr, w.Data.data)
}

// View is a read-only window over payload bytes. Every decode starts at the
// first byte of the window; reading never advances it.
type View struct {
	data []byte
}

// NewView returns a view over b.
func NewView(b []byte) View { return View{data: b} }

// Len returns the number of bytes in the window.
func (v View) Len() int { return len(v.data) }

// Bytes returns the raw window. Callers must not modify it.
func (v View) Bytes() []byte { return v.data }

// Decode reinterprets the window as the value pointed to by out.
func (v View) Decode(out any) error {
	return Decode(v.data, out)
}

// From returns the view starting offset bytes into the window.
func (v View) From(offset int) (View, error) {
	if offset < 0 || offset > len(v.data) {
		return View{}, fmt.Errorf("%w: offset %d in %d bytes", ErrInsufficientData, offset, len(v.data))
	}
	return View{data: v.data[offset:]}, nil
}

// Words returns the number of whole words in the window.
func (v View) Words() int { return len(v.data) / 2 }

// Word returns the i-th big-endian word of the window.
func (v View) Word(i int) (uint16, error) {
	if i < 0 || 2*i+2 > len(v.data) {
		return 0, fmt.Errorf("%w: word %d in %d bytes", ErrInsufficientData, i, len(v.data))
	}
	return binary.BigEndian.Uint16(v.data[2*i:]), nil
}

// As reinterprets the window as a T.
func As[T any](v View) (T, error) {
	return Extract[T](v.data)
}

// Parse validates one complete frame and decodes it. The returned response
// borrows buf.
func Parse(buf []byte, crc bool) (Response, error) {
	content, rest, err := splitFrame(buf, crc)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrLengthMismatch, len(rest))
	}
	return ParseContent(content)
}

// ParsePrefix decodes the frame at the start of buf and returns the bytes
// following it.
func ParsePrefix(buf []byte, crc bool) (Response, []byte, error) {
	content, rest, err := splitFrame(buf, crc)
	if err != nil {
		return nil, buf, err
	}
	resp, err := ParseContent(content)
	return resp, rest, err
}

// splitFrame checks the header, length and checksum of the frame at the
// start of buf. It returns the Command..Data section and what follows the
// frame.
func splitFrame(buf []byte, crc bool) (content, rest []byte, err error) {
	if len(buf) < PrefixSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(buf))
	}
	if buf[0] != headerHi || buf[1] != headerLo {
		return nil, nil, fmt.Errorf("%w: 0x%02X%02X", ErrBadHeader, buf[0], buf[1])
	}
	length := int(buf[HeaderSize])
	if length < minLength(crc) {
		return nil, nil, fmt.Errorf("%w: length %d below minimum %d", ErrFrameTooShort, length, minLength(crc))
	}
	if length > len(buf)-PrefixSize {
		return nil, nil, fmt.Errorf("%w: length %d, have %d bytes", ErrLengthMismatch, length, len(buf)-PrefixSize)
	}

	content = buf[PrefixSize : PrefixSize+length]
	rest = buf[PrefixSize+length:]
	if crc {
		if !VerifyChecksum(content) {
			return nil, nil, ErrChecksumMismatch
		}
		content = content[:len(content)-CRCSize]
	}
	return content, rest, nil
}

// ParseContent decodes the Command..Data section of a frame whose header,
// length and checksum were already checked. The address field is one byte
// for curve frames, four for dword frames and two otherwise.
func ParseContent(content []byte) (Response, error) {
	if len(content) < MinLength {
		return nil, fmt.Errorf("%w: %d content bytes", ErrFrameTooShort, len(content))
	}
	cmd := Command(content[0])
	if !cmd.Valid() {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, content[0])
	}
	if cmd.IsWrite() && len(content) == 1+len(AckLiteral) && string(content[1:]) == AckLiteral {
		return &Ack{Command: cmd}, nil
	}

	width := cmd.AddressWidth()
	if len(content) < 1+width {
		return nil, fmt.Errorf("%w: %s needs a %d-byte address", ErrFrameTooShort, cmd, width)
	}
	wd := &WordData{Command: cmd}
	switch width {
	case 1:
		wd.Channel = content[1]
	case AddressSize:
		wd.Address = binary.BigEndian.Uint16(content[1:])
		wd.Address32 = uint32(wd.Address)
	default:
		wd.Address32 = binary.BigEndian.Uint32(content[1:])
	}
	data := content[1+width:]
	if cmd.IsRead() {
		if len(data) < 1 {
			return nil, fmt.Errorf("%w: %s without word length", ErrFrameTooShort, cmd)
		}
		wd.WordLen = data[0]
		wd.HasWordLen = true
		data = data[1:]
	}
	wd.Data = View{data: data}
	return wd, nil
}
