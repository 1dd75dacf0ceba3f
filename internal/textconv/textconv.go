// Package textconv converts textual request values (path segments, query
// parameters, header values) into typed Go values.
package textconv

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

var textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()

// ErrUnsupported is returned when the destination kind has no text form.
var ErrUnsupported = errors.New("textconv: unsupported type")

// Set parses s into v. v must be settable. Pointers are allocated and
// followed. Types implementing encoding.TextUnmarshaler take precedence over
// the builtin kinds.
func Set(v reflect.Value, s string) error {
	if !v.IsValid() || !v.CanSet() {
		return errors.New("textconv: destination is not settable")
	}
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}

	// Pointer receivers first: most custom types implement UnmarshalText on *T.
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return u.UnmarshalText([]byte(s))
		}
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
		return nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, v.Type())
}

// Supported reports whether values of type t can be produced by Set.
func Supported(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Parse returns a new value of type t parsed from s.
func Parse(t reflect.Type, s string) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	if err := Set(v, s); err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}
