package dgus

import "fmt"

// Enum is implemented by closed sets of payload-free cases. A case travels as
// its 16-bit index.
//
// SetEnumIndex is called on a pointer while decoding and should reject
// indices outside the set.
type Enum interface {
	EnumIndex() uint16
	SetEnumIndex(i uint16) error
}

// Uint128 is an unsigned 128-bit integer. It encodes as 16 big-endian bytes.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

func (u Uint128) String() string {
	if u.Hi == 0 {
		return fmt.Sprintf("0x%X", u.Lo)
	}
	return fmt.Sprintf("0x%X%016X", u.Hi, u.Lo)
}

// Int128 is a two's complement signed 128-bit integer. It encodes as 16
// big-endian bytes.
type Int128 struct {
	Hi int64
	Lo uint64
}

// Int128From64 sign-extends v.
func Int128From64(v int64) Int128 {
	if v < 0 {
		return Int128{Hi: -1, Lo: uint64(v)}
	}
	return Int128{Lo: uint64(v)}
}

// Unit is a marker value that encodes to zero bytes.
type Unit struct{}
