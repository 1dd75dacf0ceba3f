package jsonrpc

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
)

// Excluder is implemented by services that hide some of their exported
// methods from discovery.
type Excluder interface {
	ExcludedMethods() []string
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Discover enumerates the eligible exported methods of receiver and returns
// their descriptors, named namespace + "." + method name (or just the method
// name when namespace is empty).
//
// Eligible methods have one of these shapes:
//
//	func(ctx context.Context) error
//	func(ctx context.Context) (R, error)
//	func(ctx context.Context, params P) error
//	func(ctx context.Context, params P) (R, error)
//
// and may also omit the results entirely. Other exported methods are skipped.
//
// P is bound from the whole params value, unless P is a struct with fields
// tagged `path:"name"` or `body:""`. Those fields then form the parameter
// list in field order, and a `_` field may carry the route template:
//
//	type GetFieldParams struct {
//	    _      struct{} `route:"/{userId}/{field}"`
//	    UserID string   `path:"userId"`
//	    Field  *string  `path:"field"` // optional: nil when absent
//	    Patch  Patch    `body:""`
//	}
//
// A `jsonrpc:"name"` tag on the `_` field overrides the method name and
// `jsonrpc:"-"` excludes the method.
func Discover(namespace string, receiver any) ([]*Method, error) {
	if receiver == nil {
		return nil, &InvalidMethodError{Name: namespace, Reason: "nil receiver"}
	}
	val := reflect.ValueOf(receiver)
	typ := val.Type()

	var excluded []string
	if ex, ok := receiver.(Excluder); ok {
		excluded = ex.ExcludedMethods()
	}

	var methods []*Method
	for i := 0; i < typ.NumMethod(); i++ {
		rm := typ.Method(i)
		if !rm.IsExported() || slices.Contains(excluded, rm.Name) {
			continue
		}
		m, ok, err := parseMethod(val.Method(i), rm.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if namespace != "" {
			m.Name = namespace + "." + m.Name
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// parseMethod builds a descriptor from a bound method value. ok is false
// for ineligible or excluded methods.
func parseMethod(fn reflect.Value, name string) (m *Method, ok bool, err error) {
	ft := fn.Type()
	if ft.NumIn() < 1 || ft.NumIn() > 2 || ft.In(0) != contextType {
		return nil, false, nil
	}
	switch ft.NumOut() {
	case 0, 1:
	case 2:
		if ft.Out(1) != errorType {
			return nil, false, nil
		}
	default:
		return nil, false, nil
	}

	m = &Method{Name: name}
	if ft.NumIn() == 1 {
		m.Handler = reflectHandler(m, fn, nil)
		return m, true, nil
	}

	pt := ft.In(1)
	if pt.Kind() == reflect.Struct {
		if sf, has := pt.FieldByName("_"); has {
			switch tag := sf.Tag.Get("jsonrpc"); tag {
			case "-":
				return nil, false, nil
			case "":
			default:
				m.Name = tag
			}
			m.Route = sf.Tag.Get("route")
		}
	}

	params, fields, err := structParams(pt)
	if err != nil {
		return nil, false, &InvalidMethodError{Name: m.Name, Reason: err.Error()}
	}
	if params == nil {
		// Mode A: the whole params value is the argument.
		m.Params = []Param{{Kind: BodyParam, Type: pt, Required: true}}
		m.Handler = reflectHandler(m, fn, nil)
		return m, true, nil
	}
	m.Params = params
	m.Handler = reflectHandler(m, fn, &paramStruct{typ: pt, fields: fields})
	return m, true, nil
}

// paramStruct assembles a Mode B params struct from bound arguments.
type paramStruct struct {
	typ    reflect.Type
	fields []int
}

func (ps *paramStruct) build(args []any) reflect.Value {
	v := reflect.New(ps.typ).Elem()
	for i, idx := range ps.fields {
		if args[i] == nil {
			continue
		}
		v.Field(idx).Set(reflect.ValueOf(args[i]))
	}
	return v
}

// structParams returns the declared params of a Mode B struct, or nil
// params when t is not one.
func structParams(t reflect.Type) ([]Param, []int, error) {
	if t.Kind() != reflect.Struct {
		return nil, nil, nil
	}
	var params []Param
	var fields []int
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag, has := sf.Tag.Lookup("path"); has {
			name, opts, _ := strings.Cut(tag, ",")
			if name == "" {
				name = sf.Name
			}
			p := Param{Kind: PathParam, Name: name, Type: sf.Type, Required: true}
			if sf.Type.Kind() == reflect.Pointer {
				p.Type = sf.Type.Elem()
				p.Required = false
			} else if opts == "optional" {
				return nil, nil, errors.New("optional path field " + sf.Name + " must be a pointer")
			}
			params = append(params, p)
			fields = append(fields, i)
			continue
		}
		if _, has := sf.Tag.Lookup("body"); has {
			params = append(params, Param{Kind: BodyParam, Type: sf.Type, Required: true})
			fields = append(fields, i)
		}
	}
	return params, fields, nil
}

// reflectHandler adapts a bound method value to a Handler. Failures returned
// by the method are wrapped in an *InvocationError.
func reflectHandler(m *Method, fn reflect.Value, ps *paramStruct) Handler {
	ft := fn.Type()
	return func(ctx context.Context, args []any) (any, error) {
		in := []reflect.Value{reflect.ValueOf(ctx)}
		switch {
		case ps != nil:
			in = append(in, ps.build(args))
		case ft.NumIn() == 2:
			in = append(in, argValue(ft.In(1), args[0]))
		}

		out := fn.Call(in)

		var result any
		var err error
		switch len(out) {
		case 1:
			if ft.Out(0) == errorType {
				err, _ = out[0].Interface().(error)
			} else {
				result = out[0].Interface()
			}
		case 2:
			result = out[0].Interface()
			err, _ = out[1].Interface().(error)
		}
		if err != nil {
			return nil, &InvocationError{Method: m.Name, Err: err}
		}
		return result, nil
	}
}

func argValue(t reflect.Type, a any) reflect.Value {
	if a == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(a)
}
