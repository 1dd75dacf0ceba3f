package jsonrpc

import (
	"encoding/json"
	"reflect"

	"github.com/mnehpets/onerpc/internal/textconv"
)

// bound is the result of binding one request.
type bound struct {
	args []any
	// body is the bound body argument, or nil when none was declared.
	body    any
	hasBody bool
}

// bind produces the handler arguments for m, in declared order.
//
// The body argument is decoded from params. Path arguments are captured from
// tail with the method's compiled route: when tail matches no prefix of the
// route, every path parameter is absent.
func bind(m *Method, tail string, params json.RawMessage) (*bound, error) {
	out := &bound{args: make([]any, len(m.Params))}

	captured := m.route.match(tail)

	for i, p := range m.Params {
		switch p.Kind {
		case BodyParam:
			v, err := decodeBody(p.Type, params)
			if err != nil {
				return nil, err
			}
			out.args[i] = v
			out.body = v
			out.hasBody = true
		case PathParam:
			v, err := bindPath(p, captured)
			if err != nil {
				return nil, err
			}
			out.args[i] = v
		}
	}
	return out, nil
}

func bindPath(p Param, captured map[string]string) (any, error) {
	s, ok := captured[p.Name]
	if !ok {
		if p.Required {
			return nil, &MissingPathParameterError{Name: p.Name}
		}
		// Typed nil pointer: the explicit "no value" marker.
		return reflect.Zero(reflect.PointerTo(p.Type)).Interface(), nil
	}

	t := p.Type
	if !p.Required {
		t = reflect.PointerTo(p.Type)
	}
	v, err := textconv.Parse(t, s)
	if err != nil {
		return nil, &ConversionError{Param: p.Name, Err: err}
	}
	return v.Interface(), nil
}
