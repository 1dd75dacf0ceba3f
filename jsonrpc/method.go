package jsonrpc

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/mnehpets/onerpc/internal/textconv"
)

// Handler invokes a method with its bound arguments, in declared order.
type Handler func(ctx context.Context, args []any) (any, error)

// ParamKind distinguishes the two sources of a bound argument.
type ParamKind int

const (
	// BodyParam binds the request's params value.
	BodyParam ParamKind = iota
	// PathParam binds a segment captured from the tail of the method name.
	PathParam
)

func (k ParamKind) String() string {
	if k == PathParam {
		return "path"
	}
	return "body"
}

// Param declares one handler argument.
//
// A required path parameter binds a value of Type. An optional one binds a
// *Type, nil when the segment is absent.
type Param struct {
	Kind     ParamKind
	Name     string
	Type     reflect.Type
	Required bool
}

// Method describes one invocable RPC method. Treat it as immutable once it
// has been registered.
type Method struct {
	// Name is the fully-qualified method name, e.g. "users.get".
	Name string
	// Route is the path template matched against the tail of the request's
	// method name, e.g. "/{userId}/{field}". Derived from the path params
	// when empty. Trailing segments may be omitted by the caller; their
	// params are then absent.
	Route   string
	Params  []Param
	Handler Handler

	route *route
}

// NewMethod builds a descriptor from explicit parameter declarations.
func NewMethod(name, route string, h Handler, params ...Param) *Method {
	return &Method{Name: name, Route: route, Params: params, Handler: h}
}

// RequiresBody reports whether the method declares a body argument.
func (m *Method) RequiresBody() bool {
	for _, p := range m.Params {
		if p.Kind == BodyParam {
			return true
		}
	}
	return false
}

// PathParams returns the declared path parameters in order.
func (m *Method) PathParams() []Param {
	var out []Param
	for _, p := range m.Params {
		if p.Kind == PathParam {
			out = append(out, p)
		}
	}
	return out
}

// Body declares a body argument of type T.
func Body[T any]() Param {
	return Param{Kind: BodyParam, Type: reflect.TypeFor[T](), Required: true}
}

// Path declares a required path argument of type T.
func Path[T any](name string) Param {
	return Param{Kind: PathParam, Name: name, Type: reflect.TypeFor[T](), Required: true}
}

// OptionalPath declares an optional path argument; the handler receives a *T.
func OptionalPath[T any](name string) Param {
	return Param{Kind: PathParam, Name: name, Type: reflect.TypeFor[T]()}
}

// Arg returns bound argument i as a T. It panics on a type mismatch, which
// the dispatcher reports as an internal error.
func Arg[T any](args []any, i int) T {
	if args[i] == nil {
		var zero T
		return zero
	}
	return args[i].(T)
}

// Func builds a descriptor for a handler taking the whole params value as P.
func Func[P, R any](name string, fn func(ctx context.Context, params P) (R, error)) *Method {
	return NewMethod(name, "", func(ctx context.Context, args []any) (any, error) {
		return fn(ctx, Arg[P](args, 0))
	}, Body[P]())
}

// Func0 builds a descriptor for a handler that takes no params.
func Func0[R any](name string, fn func(ctx context.Context) (R, error)) *Method {
	return NewMethod(name, "", func(ctx context.Context, _ []any) (any, error) {
		return fn(ctx)
	})
}

func validParamType(p Param) bool {
	if p.Type == nil {
		return false
	}
	if p.Kind == PathParam {
		return textconv.Supported(p.Type)
	}
	return true
}

// decodeBody converts raw params into a fresh value of t.
func decodeBody(t reflect.Type, raw json.RawMessage) (any, error) {
	v := reflect.New(t)
	if err := json.Unmarshal(raw, v.Interface()); err != nil {
		return nil, &ConversionError{Err: err}
	}
	return v.Elem().Interface(), nil
}
