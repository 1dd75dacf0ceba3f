package textconv

import (
	"errors"
	"net/netip"
	"reflect"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		typ     reflect.Type
		in      string
		want    any
		wantErr bool
	}{
		{"string", reflect.TypeFor[string](), "abc", "abc", false},
		{"int", reflect.TypeFor[int](), "42", 42, false},
		{"int8 overflow", reflect.TypeFor[int8](), "300", nil, true},
		{"uint", reflect.TypeFor[uint32](), "7", uint32(7), false},
		{"negative uint", reflect.TypeFor[uint](), "-1", nil, true},
		{"bool", reflect.TypeFor[bool](), "true", true, false},
		{"bad bool", reflect.TypeFor[bool](), "yes", nil, true},
		{"float", reflect.TypeFor[float64](), "1.5", 1.5, false},
		{"text unmarshaler", reflect.TypeFor[netip.Addr](), "10.0.0.1", netip.MustParseAddr("10.0.0.1"), false},
		{"time", reflect.TypeFor[time.Time](), "2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.typ, tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := v.Interface(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSetAllocatesPointers(t *testing.T) {
	var p *int
	if err := Set(reflect.ValueOf(&p).Elem(), "12"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil || *p != 12 {
		t.Fatalf("got %v, want pointer to 12", p)
	}
}

func TestUnsupported(t *testing.T) {
	_, err := Parse(reflect.TypeFor[[]string](), "a")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("got %v, want ErrUnsupported", err)
	}
	if Supported(reflect.TypeFor[map[string]int]()) {
		t.Error("map should not be supported")
	}
	if !Supported(reflect.TypeFor[*int64]()) {
		t.Error("*int64 should be supported")
	}
	if !Supported(reflect.TypeFor[netip.Addr]()) {
		t.Error("netip.Addr should be supported")
	}
}
