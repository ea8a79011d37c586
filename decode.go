package dgus

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// Decode reads the value pointed to by v from the front of src. The width
// comes from the type of v; bytes past it are ignored. v is left untouched
// when decoding fails.
func Decode(src []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: decode target must be a non-nil pointer, got %T", ErrUnsupportedType, v)
	}
	t := rv.Type().Elem()
	n, err := typeSize(t)
	if err != nil {
		return err
	}
	if n > len(src) {
		return fmt.Errorf("%w: %s needs %d bytes, have %d", ErrInsufficientData, t, n, len(src))
	}

	tmp := reflect.New(t).Elem()
	d := decoder{buf: src[:n]}
	if err := d.value(tmp); err != nil {
		return err
	}
	rv.Elem().Set(tmp)
	return nil
}

// Extract decodes a T from the front of src.
func Extract[T any](src []byte) (T, error) {
	var v T
	err := Decode(src, &v)
	return v, err
}

// decoder walks a buffer already checked against typeSize.
type decoder struct {
	buf []byte
	off int
}

func (d *decoder) next(n int) []byte {
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) value(v reflect.Value) error {
	if isEnum(v.Type()) {
		idx := binary.BigEndian.Uint16(d.next(2))
		if err := v.Addr().Interface().(Enum).SetEnumIndex(idx); err != nil {
			return fmt.Errorf("%s index %d: %w", v.Type(), idx, err)
		}
		return nil
	}

	switch v.Kind() {
	case reflect.Bool:
		switch w := binary.BigEndian.Uint16(d.next(2)); w {
		case 0:
			v.SetBool(false)
		case 1:
			v.SetBool(true)
		default:
			return fmt.Errorf("%w: 0x%04X", ErrInvalidBool, w)
		}
	case reflect.Int8:
		v.SetInt(int64(int8(d.next(1)[0])))
	case reflect.Uint8:
		v.SetUint(uint64(d.next(1)[0]))
	case reflect.Int16:
		v.SetInt(int64(int16(binary.BigEndian.Uint16(d.next(2)))))
	case reflect.Uint16:
		v.SetUint(uint64(binary.BigEndian.Uint16(d.next(2))))
	case reflect.Int32:
		v.SetInt(int64(int32(binary.BigEndian.Uint32(d.next(4)))))
	case reflect.Uint32:
		v.SetUint(uint64(binary.BigEndian.Uint32(d.next(4))))
	case reflect.Int64:
		v.SetInt(int64(binary.BigEndian.Uint64(d.next(8))))
	case reflect.Uint64:
		v.SetUint(binary.BigEndian.Uint64(d.next(8)))
	case reflect.Float32:
		v.SetFloat(float64(math.Float32frombits(binary.BigEndian.Uint32(d.next(4)))))
	case reflect.Float64:
		v.SetFloat(math.Float64frombits(binary.BigEndian.Uint64(d.next(8))))
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 && !isEnum(v.Type().Elem()) {
			copy(v.Bytes(), d.next(v.Len()))
			return nil
		}
		for i := range v.Len() {
			if err := d.value(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := range v.NumField() {
			if t.Field(i).Name == "_" {
				n, _ := typeSize(t.Field(i).Type)
				d.next(n)
				continue
			}
			if err := d.value(v.Field(i)); err != nil {
				return err
			}
		}
	}
	return nil
}
