package jsonrpc

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Validator checks the declared constraints of a bound body and returns one
// message per violation. No messages means the value is valid.
type Validator interface {
	Validate(v any) []string
}

// ValidatorFunc adapts a function to a Validator.
type ValidatorFunc func(v any) []string

func (f ValidatorFunc) Validate(v any) []string { return f(v) }

// StructValidator validates `validate:"..."` struct tags.
//
// Besides the builtin constraints it understands:
//   - notblank: string has at least one non-whitespace character
//   - pattern=<regexp>: string matches the regular expression
//
// Every failing constraint of a field is reported, not only the first.
// Fields are reported by their JSON names.
//
// Tags use go-playground's grammar, where ',' separates constraints and '|'
// separates alternatives. Write them as 0x2C and 0x7C inside a pattern:
// `validate:"pattern=^(a0x7Cb)$"`.
type StructValidator struct {
	v        *validator.Validate
	patterns sync.Map // string -> *regexp.Regexp
}

// NewValidator creates the default body validator.
func NewValidator() *StructValidator {
	sv := &StructValidator{v: validator.New(validator.WithRequiredStructEnabled())}
	sv.v.RegisterTagNameFunc(jsonFieldName)
	// Registration only fails for empty tags or nil funcs.
	_ = sv.v.RegisterValidation("notblank", validators.NotBlank)
	_ = sv.v.RegisterValidation("pattern", sv.matchPattern)
	return sv
}

// Validate implements Validator. Values that are not structs (or pointers
// to structs) carry no constraints.
func (sv *StructValidator) Validate(v any) []string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := sv.v.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	var msgs []string
	for _, fe := range verrs {
		msgs = append(msgs, sv.fieldViolations(rv.Type(), fe)...)
	}
	return msgs
}

// fieldViolations re-checks each constraint declared on the field behind
// fe, since the validator stops at a field's first failure.
func (sv *StructValidator) fieldViolations(root reflect.Type, fe validator.FieldError) []string {
	field := fieldPath(fe)
	first := []string{describe(field, fe.Tag(), fe.Param())}

	sf, ok := structField(root, fe.StructNamespace())
	if !ok {
		return first
	}
	var msgs []string
	for _, tag := range constraints(sf.Tag.Get("validate")) {
		failed, ok := sv.check(fe.Value(), tag)
		if !ok {
			return first
		}
		for _, f := range failed {
			// An absent value is not checked against its other constraints.
			if f.Tag() == "required" {
				return []string{describe(field, f.Tag(), f.Param())}
			}
			msgs = append(msgs, describe(field, f.Tag(), f.Param()))
		}
	}
	if len(msgs) == 0 {
		return first
	}
	return msgs
}

// check evaluates a single constraint against value. ok is false when the
// constraint cannot be evaluated outside its struct, e.g. cross-field tags.
func (sv *StructValidator) check(value any, tag string) (failed validator.ValidationErrors, ok bool) {
	defer func() {
		if recover() != nil {
			failed, ok = nil, false
		}
	}()
	err := sv.v.Var(value, tag)
	if err == nil {
		return nil, true
	}
	if !errors.As(err, &failed) {
		return nil, false
	}
	return failed, true
}

// constraints splits a validate tag into its top-level constraints. Tags
// that only modify the others, and everything from "dive" on (element
// constraints), are left out.
func constraints(tag string) []string {
	var out []string
	for _, c := range strings.Split(tag, ",") {
		switch c {
		case "", "omitempty", "omitnil", "required_struct":
			continue
		case "dive", "keys":
			return out
		}
		out = append(out, c)
	}
	return out
}

// structField finds the field named by a struct namespace such as
// "signup.Owner.Name".
func structField(root reflect.Type, namespace string) (reflect.StructField, bool) {
	parts := strings.Split(namespace, ".")
	if len(parts) < 2 {
		return reflect.StructField{}, false
	}
	t := root
	var sf reflect.StructField
	for _, name := range parts[1:] {
		if strings.ContainsRune(name, '[') {
			return reflect.StructField{}, false
		}
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return reflect.StructField{}, false
		}
		var ok bool
		if sf, ok = t.FieldByName(name); !ok {
			return reflect.StructField{}, false
		}
		t = sf.Type
	}
	return sf, true
}

func (sv *StructValidator) matchPattern(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	expr := fl.Param()
	re, ok := sv.patterns.Load(expr)
	if !ok {
		compiled, err := regexp.Compile(expr)
		if err != nil {
			return false
		}
		re, _ = sv.patterns.LoadOrStore(expr, compiled)
	}
	return re.(*regexp.Regexp).MatchString(field.String())
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// fieldPath is the violating field's JSON path without the root type.
func fieldPath(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	return field
}

// describe renders a violation as "<field>: <constraint>".
func describe(field, tag, param string) string {
	var what string
	switch tag {
	case "required":
		what = "is required"
	case "notblank":
		what = "must not be blank"
	case "pattern":
		what = fmt.Sprintf("must match %q", param)
	case "eq":
		what = fmt.Sprintf("must equal %q", param)
	case "min", "gte":
		what = "must be at least " + param
	case "max", "lte":
		what = "must be at most " + param
	case "gt":
		what = "must be greater than " + param
	case "lt":
		what = "must be less than " + param
	case "len":
		what = "must have length " + param
	case "oneof":
		what = "must be one of [" + param + "]"
	case "email":
		what = "must be a well-formed email address"
	default:
		what = "failed constraint " + tag
		if param != "" {
			what += "=" + param
		}
	}
	return field + ": " + what
}
