package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
)

func routed(t *testing.T, route string, params ...Param) *Method {
	t.Helper()
	m := NewMethod("users.field", route, func(ctx context.Context, args []any) (any, error) { return args, nil }, params...)
	if err := prepare(m); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	return m
}

func TestBindPath(t *testing.T) {
	m := routed(t, "/{userId}/{field}", Path[string]("userId"), Path[string]("field"))

	b, err := bind(m, "/42/name", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := Arg[string](b.args, 0); got != "42" {
		t.Errorf("userId = %q, want 42", got)
	}
	if got := Arg[string](b.args, 1); got != "name" {
		t.Errorf("field = %q, want name", got)
	}
	if b.hasBody {
		t.Error("hasBody set without a body param")
	}
}

func TestBindPathDerivedRoute(t *testing.T) {
	m := routed(t, "", Path[int]("id"))
	if m.route == nil {
		t.Fatal("route not compiled")
	}
	b, err := bind(m, "/7/", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := Arg[int](b.args, 0); got != 7 {
		t.Errorf("id = %d, want 7", got)
	}
}

func TestBindPathLiteralSegments(t *testing.T) {
	m := routed(t, "/users/{id}", Path[string]("id"))

	if b, err := bind(m, "/users/9", nil); err != nil || Arg[string](b.args, 0) != "9" {
		t.Errorf("bind(/users/9) = %v, %v", b, err)
	}
	_, err := bind(m, "/groups/9", nil)
	var missing *MissingPathParameterError
	if !errors.As(err, &missing) {
		t.Errorf("got %v, want MissingPathParameterError", err)
	}
}

func TestBindPathMissing(t *testing.T) {
	m := routed(t, "/{userId}/{field}", Path[string]("userId"), Path[string]("field"))

	tests := []struct {
		tail    string
		missing string
	}{
		{"/42", "field"},
		{"/42/", "field"},
		{"", "userId"},
	}
	for _, tt := range tests {
		_, err := bind(m, tt.tail, nil)
		var missing *MissingPathParameterError
		if !errors.As(err, &missing) {
			t.Errorf("tail %q: got %v, want MissingPathParameterError", tt.tail, err)
			continue
		}
		if missing.Name != tt.missing {
			t.Errorf("tail %q: got missing %q, want %q", tt.tail, missing.Name, tt.missing)
		}
	}
}

func TestBindPathTrailingOptional(t *testing.T) {
	m := routed(t, "/{userId}/{field}", Path[int]("userId"), OptionalPath[string]("field"))

	b, err := bind(m, "/42", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := Arg[int](b.args, 0); got != 42 {
		t.Errorf("userId = %d, want 42", got)
	}
	if got := Arg[*string](b.args, 1); got != nil {
		t.Errorf("field = %q, want nil", *got)
	}
}

func TestBindPathOptional(t *testing.T) {
	m := routed(t, "/{field}", OptionalPath[string]("field"))

	b, err := bind(m, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := Arg[*string](b.args, 0); got != nil {
		t.Errorf("field = %q, want nil", *got)
	}

	b, err = bind(m, "/name", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := Arg[*string](b.args, 0); got == nil || *got != "name" {
		t.Errorf("field = %v, want name", got)
	}
}

func TestBindPathSegmentCharacters(t *testing.T) {
	m := routed(t, "/{userId}/{field}", Path[string]("userId"), Path[string]("field"))

	tests := []struct {
		tail   string
		userID string
	}{
		{"/alice@example.com/name", "alice@example.com"},
		{"/a b/name", "a b"},
		{"/José/name", "José"},
		{"/a:b/name", "a:b"},
		{"/100%/name", "100%"},
		{"/a,b/name", "a,b"},
		{"/%41/name", "%41"},
		{"/tag+x?y=1#z/name", "tag+x?y=1#z"},
	}
	for _, tt := range tests {
		t.Run(tt.tail, func(t *testing.T) {
			b, err := bind(m, tt.tail, nil)
			if err != nil {
				t.Fatal(err)
			}
			if got := Arg[string](b.args, 0); got != tt.userID {
				t.Errorf("userId = %q, want %q", got, tt.userID)
			}
			if got := Arg[string](b.args, 1); got != "name" {
				t.Errorf("field = %q, want name", got)
			}
		})
	}
}

func TestEscapeTail(t *testing.T) {
	tests := map[string]string{
		"/42/name":      "/42/name",
		"/a b/x":        "/a%20b/x",
		"/é":            "/%C3%A9",
		"/a-b.c_d~e":    "/a-b.c_d~e",
		"/alice@ex.com": "/alice%40ex.com",
	}
	for in, want := range tests {
		if got := escapeTail(in); got != want {
			t.Errorf("escapeTail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBindPathConversion(t *testing.T) {
	m := routed(t, "/{id}", Path[int]("id"))

	_, err := bind(m, "/abc", nil)
	var conv *ConversionError
	if !errors.As(err, &conv) {
		t.Fatalf("got %v, want ConversionError", err)
	}
	if conv.Param != "id" {
		t.Errorf("got param %q, want id", conv.Param)
	}
}

func TestBindBody(t *testing.T) {
	m := NewMethod("math.add", "", func(ctx context.Context, args []any) (any, error) { return nil, nil }, Body[addParams]())
	if err := prepare(m); err != nil {
		t.Fatal(err)
	}

	b, err := bind(m, "", json.RawMessage(`{"a":1,"b":2}`))
	if err != nil {
		t.Fatal(err)
	}
	if !b.hasBody {
		t.Fatal("hasBody not set")
	}
	if got := Arg[addParams](b.args, 0); got != (addParams{A: 1, B: 2}) {
		t.Errorf("got %+v", got)
	}

	_, err = bind(m, "", json.RawMessage(`{"a":"x"}`))
	var conv *ConversionError
	if !errors.As(err, &conv) || conv.Param != "" {
		t.Errorf("got %v, want body ConversionError", err)
	}
}

func TestSplitSegments(t *testing.T) {
	tests := map[string][]string{
		"{a}/{b}":        {"{a}", "{b}"},
		"users/{id}":     {"users", "{id}"},
		"{id}{/field}":   {"{id}{/field}"},
		"{id}/x{/a,b}/y": {"{id}", "x{/a,b}", "y"},
	}
	for in, want := range tests {
		if got := splitSegments(in); !slices.Equal(got, want) {
			t.Errorf("splitSegments(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	tests := []struct {
		in, name, tail string
	}{
		{"users.get", "users.get", ""},
		{"users.get/42", "users.get", "/42"},
		{"users.get/42/name/", "users.get", "/42/name/"},
	}
	for _, tt := range tests {
		name, tail := splitMethod(tt.in)
		if name != tt.name || tail != tt.tail {
			t.Errorf("splitMethod(%q) = (%q, %q), want (%q, %q)", tt.in, name, tail, tt.name, tt.tail)
		}
	}
}
