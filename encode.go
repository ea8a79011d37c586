package dgus

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// Encode writes the big-endian encoding of v into buf and returns the number
// of bytes written. Nothing is written if v is unsupported or does not fit.
func Encode(buf []byte, v any) (int, error) {
	rv, err := indirect(v)
	if err != nil {
		return 0, err
	}
	n, err := typeSize(rv.Type())
	if err != nil {
		return 0, err
	}
	if n > len(buf) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferOverflow, n, len(buf))
	}
	e := encoder{buf: buf[:n]}
	e.value(rv)
	return n, nil
}

// Append appends the encoding of v to dst.
func Append(dst []byte, v any) ([]byte, error) {
	n, err := Size(v)
	if err != nil {
		return dst, err
	}
	start := len(dst)
	dst = append(dst, make([]byte, n)...)
	if _, err := Encode(dst[start:], v); err != nil {
		return dst[:start], err
	}
	return dst, nil
}

// encoder fills a buffer already sized by typeSize, so it cannot run out.
type encoder struct {
	buf []byte
	off int
}

func (e *encoder) next(n int) []byte {
	b := e.buf[e.off : e.off+n]
	e.off += n
	return b
}

func (e *encoder) value(v reflect.Value) {
	if isEnum(v.Type()) {
		binary.BigEndian.PutUint16(e.next(2), enumValue(v).EnumIndex())
		return
	}

	switch v.Kind() {
	case reflect.Bool:
		var w uint16
		if v.Bool() {
			w = 1
		}
		binary.BigEndian.PutUint16(e.next(2), w)
	case reflect.Int8:
		e.next(1)[0] = byte(v.Int())
	case reflect.Uint8:
		e.next(1)[0] = byte(v.Uint())
	case reflect.Int16:
		binary.BigEndian.PutUint16(e.next(2), uint16(v.Int()))
	case reflect.Uint16:
		binary.BigEndian.PutUint16(e.next(2), uint16(v.Uint()))
	case reflect.Int32:
		binary.BigEndian.PutUint32(e.next(4), uint32(v.Int()))
	case reflect.Uint32:
		binary.BigEndian.PutUint32(e.next(4), uint32(v.Uint()))
	case reflect.Int64:
		binary.BigEndian.PutUint64(e.next(8), uint64(v.Int()))
	case reflect.Uint64:
		binary.BigEndian.PutUint64(e.next(8), v.Uint())
	case reflect.Float32:
		binary.BigEndian.PutUint32(e.next(4), math.Float32bits(float32(v.Float())))
	case reflect.Float64:
		binary.BigEndian.PutUint64(e.next(8), math.Float64bits(v.Float()))
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 && !isEnum(v.Type().Elem()) {
			e.bytes(v)
			return
		}
		for i := range v.Len() {
			e.value(v.Index(i))
		}
	case reflect.Struct:
		t := v.Type()
		for i := range v.NumField() {
			if t.Field(i).Name == "_" {
				e.zero(t.Field(i).Type)
				continue
			}
			e.value(v.Field(i))
		}
	}
}

// bytes copies a [N]byte verbatim.
func (e *encoder) bytes(v reflect.Value) {
	dst := e.next(v.Len())
	if v.CanAddr() {
		copy(dst, v.Bytes())
		return
	}
	for i := range dst {
		dst[i] = byte(v.Index(i).Uint())
	}
}

func (e *encoder) zero(t reflect.Type) {
	n, _ := typeSize(t)
	clear(e.next(n))
}

// enumValue returns v as an Enum, copying it when only the pointer carries
// the methods and v is not addressable.
func enumValue(v reflect.Value) Enum {
	if en, ok := v.Interface().(Enum); ok {
		return en
	}
	if v.CanAddr() {
		return v.Addr().Interface().(Enum)
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p.Interface().(Enum)
}
