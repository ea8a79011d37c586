package dgus

import (
	"fmt"
	"reflect"
)

var enumType = reflect.TypeFor[Enum]()

// isEnum reports whether values of t travel as a 16-bit case index.
func isEnum(t reflect.Type) bool {
	return reflect.PointerTo(t).Implements(enumType)
}

// typeSize returns the encoded width of t. Width depends on the type only,
// never on a value.
func typeSize(t reflect.Type) (int, error) {
	if isEnum(t) {
		return 2, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return 2, nil
	case reflect.Int8, reflect.Uint8:
		return 1, nil
	case reflect.Int16, reflect.Uint16:
		return 2, nil
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4, nil
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8, nil
	case reflect.Array:
		n, err := typeSize(t.Elem())
		if err != nil {
			return 0, err
		}
		return n * t.Len(), nil
	case reflect.Struct:
		sum := 0
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() && f.Name != "_" {
				return 0, fmt.Errorf("%w: unexported field %s.%s", ErrUnsupportedType, t, f.Name)
			}
			n, err := typeSize(f.Type)
			if err != nil {
				return 0, err
			}
			sum += n
		}
		return sum, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// Size returns how many bytes Encode writes for v.
func Size(v any) (int, error) {
	rv, err := indirect(v)
	if err != nil {
		return 0, err
	}
	return typeSize(rv.Type())
}

// SizeOf returns the encoded width of T.
func SizeOf[T any]() (int, error) {
	return typeSize(reflect.TypeFor[T]())
}

// indirect unwraps one level of pointer so callers may pass either a value
// or a pointer to it.
func indirect(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return reflect.Value{}, fmt.Errorf("%w: nil", ErrUnsupportedType)
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil %s", ErrUnsupportedType, rv.Type())
		}
		rv = rv.Elem()
	}
	return rv, nil
}
