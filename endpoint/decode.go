package endpoint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/mnehpets/onerpc/internal/textconv"
)

// defaultFieldLimit bounds query and header values; defaultBodyLimit bounds
// the request body. Override per field with a maxLength tag.
var (
	defaultFieldLimit       = 16 * 1024
	defaultBodyLimit  int64 = 1 << 20
)

// Unmarshal populates dst, a non-nil pointer to a struct (or to a pointer to
// a struct), from the request.
//
// Supported tags:
//   - `body:""`: the raw request body. string and []byte fields receive it
//     verbatim; any other type is decoded as JSON, which requires a JSON
//     Content-Type. At most one body field.
//   - `query:"name"`: URL query parameter. Slice fields collect every value.
//   - `header:"name"`: request header. Slice fields collect every value.
//   - `maxLength:"n"`: byte limit for the field's value; "0" disables it.
//
// A name left empty defaults to the lower-cased field name; "-" skips the
// field. Fields with no data are left unchanged. Untagged struct fields are
// descended into.
func Unmarshal(r *http.Request, dst any) error {
	if r == nil {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: nil request"))
	}
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must be a non-nil pointer"))
	}
	root := v.Elem()
	if root.Kind() == reflect.Pointer {
		if root.IsNil() {
			root.Set(reflect.New(root.Type().Elem()))
		}
		root = root.Elem()
	}
	if root.Kind() != reflect.Struct {
		return Error(http.StatusInternalServerError, "", errors.New("endpoint: decode: dst must point to a struct"))
	}
	d := &decoder{r: r}
	return d.decodeStruct(root)
}

type decoder struct {
	r        *http.Request
	bodySeen bool
}

type sourceTag struct {
	source string
	name   string
	limit  int64
}

func (d *decoder) decodeStruct(sv reflect.Value) error {
	t := sv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fv := sv.Field(i)

		tag, ok, err := fieldSource(sf)
		if err != nil {
			return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: field %s: %w", sf.Name, err))
		}
		if !ok {
			if ft := indirectType(sf.Type); ft.Kind() == reflect.Struct && !textconv.Supported(ft) {
				if fv.Kind() == reflect.Pointer && fv.IsNil() {
					fv.Set(reflect.New(ft))
				}
				if err := d.decodeStruct(reflect.Indirect(fv)); err != nil {
					return err
				}
			}
			continue
		}
		if tag.name == "-" {
			continue
		}

		switch tag.source {
		case "body":
			if d.bodySeen {
				return Error(http.StatusInternalServerError, "", fmt.Errorf("endpoint: decode: multiple body fields (%s)", sf.Name))
			}
			d.bodySeen = true
			err = d.setBody(fv, tag)
		case "query":
			err = setValues(fv, tag, d.r.URL.Query()[tag.name])
		case "header":
			err = setValues(fv, tag, d.r.Header.Values(tag.name))
		}
		if err != nil {
			return Error(http.StatusBadRequest, "", fmt.Errorf("endpoint: decode: %s %q -> %s: %w", tag.source, tag.name, sf.Name, err))
		}
	}
	return nil
}

// fieldSource returns the single source tag of a field.
func fieldSource(sf reflect.StructField) (sourceTag, bool, error) {
	var found sourceTag
	has := false
	for _, src := range []string{"body", "query", "header"} {
		val, ok := sf.Tag.Lookup(src)
		if !ok {
			continue
		}
		if has {
			return sourceTag{}, false, fmt.Errorf("both %s and %s tags", found.source, src)
		}
		name, _, _ := strings.Cut(val, ",")
		name = strings.TrimSpace(name)
		if name == "" {
			name = strings.ToLower(sf.Name)
		}
		found = sourceTag{source: src, name: name}
		has = true
	}
	if !has {
		return found, false, nil
	}

	found.limit = int64(defaultFieldLimit)
	if found.source == "body" {
		found.limit = defaultBodyLimit
	}
	if ml, ok := sf.Tag.Lookup("maxLength"); ok {
		ml = strings.TrimSpace(ml)
		if ml == "" {
			found.limit = 0
		} else {
			n, err := strconv.ParseInt(ml, 10, 64)
			if err != nil || n < 0 {
				return sourceTag{}, false, fmt.Errorf("maxLength: invalid value %q", ml)
			}
			found.limit = n
		}
	}
	return found, true, nil
}

func (d *decoder) setBody(fv reflect.Value, tag sourceTag) error {
	r := d.r
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	var src io.Reader = r.Body
	if tag.limit > 0 {
		src = io.LimitReader(r.Body, tag.limit+1)
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	if tag.limit > 0 && int64(len(b)) > tag.limit {
		return Error(http.StatusRequestEntityTooLarge, "", fmt.Errorf("body exceeds %d bytes", tag.limit))
	}

	ft := indirectType(fv.Type())
	switch {
	case ft.Kind() == reflect.String:
		return textconv.Set(fv, string(b))
	case ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.Uint8:
		for fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				fv.Set(reflect.New(fv.Type().Elem()))
			}
			fv = fv.Elem()
		}
		fv.SetBytes(b)
		return nil
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if !IsJSON(r) {
		return Error(http.StatusUnsupportedMediaType, "", fmt.Errorf("unsupported media type %q", mediaType(r)))
	}
	return json.Unmarshal(b, fv.Addr().Interface())
}

func setValues(fv reflect.Value, tag sourceTag, values []string) error {
	if len(values) == 0 {
		return nil
	}
	for _, s := range values {
		if tag.limit > 0 && int64(len(s)) > tag.limit {
			return fmt.Errorf("value exceeds max length %d", tag.limit)
		}
	}
	if fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() != reflect.Uint8 {
		out := reflect.MakeSlice(fv.Type(), len(values), len(values))
		for i, s := range values {
			if err := textconv.Set(out.Index(i), s); err != nil {
				return err
			}
		}
		fv.Set(out)
		return nil
	}
	if fv.Kind() == reflect.Slice {
		fv.SetBytes([]byte(values[0]))
		return nil
	}
	return textconv.Set(fv, values[0])
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// IsJSON reports whether the request declares a JSON body
// (application/json or any +json type).
func IsJSON(r *http.Request) bool {
	mt := mediaType(r)
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func mediaType(r *http.Request) string {
	ct := strings.TrimSpace(r.Header.Get("Content-Type"))
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(ct)
	}
	return strings.ToLower(mt)
}
