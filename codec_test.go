package dgus_test

import (
	"errors"
	"math"
	"testing"

	"github.com/OpenPSG/dgus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Mode uint8

const (
	ModeIdle Mode = iota
	ModeRun
	ModeFault
)

var errBadMode = errors.New("bad mode")

func (m Mode) EnumIndex() uint16 { return uint16(m) }

func (m *Mode) SetEnumIndex(i uint16) error {
	if i > uint16(ModeFault) {
		return errBadMode
	}
	*m = Mode(i)
	return nil
}

type Demo struct {
	AMsb uint8
	ALsb uint8
	B    uint16
	C    uint32
}

type Padded struct {
	A uint8
	_ uint8
	B uint16
}

type Celsius struct {
	Value int16
}

func roundTrip[T any](t *testing.T, v T, want []byte) {
	t.Helper()

	n, err := dgus.Size(v)
	require.NoError(t, err)
	assert.Equal(t, len(want), n)

	buf := make([]byte, n)
	written, err := dgus.Encode(buf, v)
	require.NoError(t, err)
	assert.Equal(t, n, written)
	assert.Equal(t, want, buf)

	got, err := dgus.Extract[T](buf)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestCodecPrimitives(t *testing.T) {
	roundTrip(t, int8(-2), []byte{0xFE})
	roundTrip(t, uint8(0xAB), []byte{0xAB})
	roundTrip(t, int16(-2), []byte{0xFF, 0xFE})
	roundTrip(t, uint16(0x1234), []byte{0x12, 0x34})
	roundTrip(t, int32(-2), []byte{0xFF, 0xFF, 0xFF, 0xFE})
	roundTrip(t, uint32(0x12345678), []byte{0x12, 0x34, 0x56, 0x78})
	roundTrip(t, int64(-2), []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFE})
	roundTrip(t, uint64(0x0102030405060708), []byte{1, 2, 3, 4, 5, 6, 7, 8})
	roundTrip(t, float32(4.0), []byte{0x40, 0x80, 0x00, 0x00})
	roundTrip(t, float64(5.0), []byte{0x40, 0x14, 0, 0, 0, 0, 0, 0})
	roundTrip(t, true, []byte{0x00, 0x01})
	roundTrip(t, false, []byte{0x00, 0x00})
}

func TestCodecFloatSpecialValues(t *testing.T) {
	roundTrip(t, float32(math.Inf(-1)), []byte{0xFF, 0x80, 0x00, 0x00})
	roundTrip(t, math.MaxFloat64, []byte{0x7F, 0xEF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
}

func TestCodec128(t *testing.T) {
	roundTrip(t, dgus.Uint128{Hi: 0x0102030405060708, Lo: 0x090A0B0C0D0E0F10},
		[]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})

	minusTwo := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFE}
	roundTrip(t, dgus.Int128From64(-2), minusTwo)
	assert.Equal(t, dgus.Int128{Lo: 7}, dgus.Int128From64(7))
	assert.Equal(t, "0x10000000000000000", dgus.Uint128{Hi: 1}.String())
	assert.Equal(t, "0xFF", dgus.Uint128{Lo: 0xFF}.String())
}

func TestCodecComposites(t *testing.T) {
	roundTrip(t, Demo{AMsb: 0x10, ALsb: 0x02, B: 0x1003, C: 0x10041005},
		[]byte{0x10, 0x02, 0x10, 0x03, 0x10, 0x04, 0x10, 0x05})
	roundTrip(t, [3]uint16{1, 2, 3}, []byte{0, 1, 0, 2, 0, 3})
	roundTrip(t, [3]byte{0xAA, 0xBB, 0xCC}, []byte{0xAA, 0xBB, 0xCC})
	roundTrip(t, [2]Demo{{B: 1}, {C: 2}},
		[]byte{0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2})
	roundTrip(t, Celsius{Value: -40}, []byte{0xFF, 0xD8})
	roundTrip(t, dgus.Unit{}, []byte{})
	roundTrip(t, struct{}{}, []byte{})
}

func TestCodecEnum(t *testing.T) {
	roundTrip(t, ModeFault, []byte{0x00, 0x02})
	roundTrip(t, [2]Mode{ModeRun, ModeIdle}, []byte{0, 1, 0, 0})

	_, err := dgus.Extract[Mode]([]byte{0x00, 0x03})
	assert.ErrorIs(t, err, errBadMode)
}

func TestCodecBlankFields(t *testing.T) {
	buf := make([]byte, 4)
	_, err := dgus.Encode(buf, Padded{A: 1, B: 2})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x02}, buf)

	got, err := dgus.Extract[Padded]([]byte{0x01, 0xFF, 0x00, 0x02})
	require.NoError(t, err)
	assert.Equal(t, Padded{A: 1, B: 2}, got)
}

func TestEncodeAcceptsPointer(t *testing.T) {
	v := Demo{B: 0xBEEF}
	buf := make([]byte, 8)
	n, err := dgus.Encode(buf, &v)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{0, 0, 0xBE, 0xEF, 0, 0, 0, 0}, buf)

	_, err = dgus.Encode(buf, (*Demo)(nil))
	assert.ErrorIs(t, err, dgus.ErrUnsupportedType)
	_, err = dgus.Encode(buf, nil)
	assert.ErrorIs(t, err, dgus.ErrUnsupportedType)
}

func TestEncodeOverflowWritesNothing(t *testing.T) {
	buf := []byte{0xEE, 0xEE, 0xEE}
	_, err := dgus.Encode(buf, uint32(1))
	assert.ErrorIs(t, err, dgus.ErrBufferOverflow)
	assert.Equal(t, []byte{0xEE, 0xEE, 0xEE}, buf)
}

func TestAppend(t *testing.T) {
	out, err := dgus.Append([]byte{0x5A}, uint16(0xA5A5))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x5A, 0xA5, 0xA5}, out)

	out, err = dgus.Append(out, "text")
	assert.ErrorIs(t, err, dgus.ErrUnsupportedType)
	assert.Equal(t, []byte{0x5A, 0xA5, 0xA5}, out)
}

func TestCodecUnsupportedTypes(t *testing.T) {
	x := 1
	values := []any{
		1,
		uint(1),
		uintptr(1),
		"text",
		[]byte{1},
		map[string]int{},
		complex64(1),
		struct{ P *int }{&x},
		struct{ hidden uint16 }{},
		struct{ S []uint8 }{},
		[2]string{},
		make(chan int),
	}
	buf := make([]byte, 64)
	for _, v := range values {
		_, err := dgus.Size(v)
		assert.ErrorIs(t, err, dgus.ErrUnsupportedType, "%T", v)
		_, err = dgus.Encode(buf, v)
		assert.ErrorIs(t, err, dgus.ErrUnsupportedType, "%T", v)
	}

	_, err := dgus.SizeOf[error]()
	assert.ErrorIs(t, err, dgus.ErrUnsupportedType)
}

func TestDecodeRequiresPointer(t *testing.T) {
	var v uint16
	assert.ErrorIs(t, dgus.Decode([]byte{0, 1}, v), dgus.ErrUnsupportedType)
	assert.ErrorIs(t, dgus.Decode([]byte{0, 1}, (*uint16)(nil)), dgus.ErrUnsupportedType)
}

func TestDecodeInsufficientData(t *testing.T) {
	v := uint32(7)
	err := dgus.Decode([]byte{1, 2, 3}, &v)
	assert.ErrorIs(t, err, dgus.ErrInsufficientData)
	assert.Equal(t, uint32(7), v)
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	v, err := dgus.Extract[uint16]([]byte{0x12, 0x34, 0x56})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)
}

func TestDecodeInvalidBoolLeavesTargetUntouched(t *testing.T) {
	v := struct {
		N  uint16
		On bool
	}{N: 9}
	err := dgus.Decode([]byte{0x00, 0x01, 0x00, 0x02}, &v)
	assert.ErrorIs(t, err, dgus.ErrInvalidBool)
	assert.Equal(t, uint16(9), v.N)
	assert.False(t, v.On)
}

func TestSize(t *testing.T) {
	n, err := dgus.SizeOf[Demo]()
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = dgus.SizeOf[[4]bool]()
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	n, err = dgus.Size(&Padded{})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = dgus.SizeOf[dgus.Int128]()
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}
