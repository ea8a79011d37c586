package dgus

import "fmt"

// Serial commands
type Command byte

const (
	// CommandWriteRegister writes to a control register page
	CommandWriteRegister Command = 0x80
	// CommandReadRegister reads from a control register page
	CommandReadRegister Command = 0x81
	// CommandWriteVP writes to variable memory
	CommandWriteVP Command = 0x82
	// CommandReadVP reads from variable memory
	CommandReadVP Command = 0x83
	// CommandWriteCurve appends samples to a curve channel
	CommandWriteCurve Command = 0x84
	// CommandWriteDword writes to variable memory at a 32-bit address
	CommandWriteDword Command = 0x86
	// CommandReadDword reads from variable memory at a 32-bit address
	CommandReadDword Command = 0x87
)

func (c Command) String() string {
	switch c {
	case CommandWriteRegister:
		return "WriteRegister"
	case CommandReadRegister:
		return "ReadRegister"
	case CommandWriteVP:
		return "WriteVP"
	case CommandReadVP:
		return "ReadVP"
	case CommandWriteCurve:
		return "WriteCurve"
	case CommandWriteDword:
		return "WriteDword"
	case CommandReadDword:
		return "ReadDword"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", byte(c))
	}
}

// Valid reports whether c belongs to the closed command set.
func (c Command) Valid() bool {
	return c.AddressWidth() != 0
}

// IsRead reports whether frames with this command carry a word length byte.
func (c Command) IsRead() bool {
	return c == CommandReadRegister || c == CommandReadVP || c == CommandReadDword
}

// IsWrite reports whether a successful response may be a bare "OK" ack.
func (c Command) IsWrite() bool {
	return c == CommandWriteRegister || c == CommandWriteVP || c == CommandWriteCurve || c == CommandWriteDword
}

// AddressWidth returns the size in bytes of the address field that follows
// the command: a curve channel, a 16-bit or a 32-bit address. It is 0 for
// commands outside the set.
func (c Command) AddressWidth() int {
	switch c {
	case CommandWriteRegister, CommandReadRegister, CommandWriteVP, CommandReadVP:
		return AddressSize
	case CommandWriteCurve:
		return 1
	case CommandWriteDword, CommandReadDword:
		return 4
	default:
		return 0
	}
}

// MaxPayload returns the largest payload a frame with this command may carry.
// A wider address takes its extra bytes from the payload so every frame fits
// MaxLength.
func (c Command) MaxPayload() int {
	if w := c.AddressWidth(); w > AddressSize {
		return MaxData - (w - AddressSize)
	}
	return MaxData
}

// RegisterAddress packs a register page and in-page address into the 16-bit
// address field used by the register commands.
func RegisterAddress(page, addr uint8) uint16 {
	return uint16(page)<<8 | uint16(addr)
}

// Frame layout constants.
const (
	// Header is the frame magic, sent big-endian.
	Header uint16 = 0x5AA5
	// HeaderSize is the size of the frame magic in bytes.
	HeaderSize = 2
	// PrefixSize is the header plus the length byte.
	PrefixSize = HeaderSize + 1
	// AddressSize is the size of the address field in bytes.
	AddressSize = 2
	// CRCSize is the size of the optional trailing checksum.
	CRCSize = 2
	// MaxData is the largest payload a frame with a 16-bit address may carry.
	MaxData = 246
	// MaxLength is the largest value of the length byte.
	MaxLength = 1 + AddressSize + 1 + MaxData + CRCSize
	// MaxFrameSize is the largest complete frame, header included.
	MaxFrameSize = PrefixSize + MaxLength
	// MinLength is the smallest length byte of a frame without CRC:
	// a command followed by an address or the "OK" literal.
	MinLength = 1 + AddressSize
)

// AckLiteral is the payload of a successful write acknowledgement.
const AckLiteral = "OK"

const (
	headerHi = byte(Header >> 8)
	headerLo = byte(Header & 0xFF)
)

// minLength returns the smallest valid length byte.
func minLength(crc bool) int {
	if crc {
		return MinLength + CRCSize
	}
	return MinLength
}
