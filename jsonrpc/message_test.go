package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestResponseMarshal(t *testing.T) {
	ok, err := NewResultResponse(StringID("a"), map[string]int{"n": 1})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		resp *Response
		want string
	}{
		{"result", ok, `{"jsonrpc":"2.0","id":"a","result":{"n":1}}`},
		{"null result", &Response{ID: NumberID(3)}, `{"jsonrpc":"2.0","id":3,"result":null}`},
		{"error", NewErrorResponse(nil, NewError(CodeParseError, MessageParseError)), `{"jsonrpc":"2.0","id":null,"error":{"code":"parse_error","message":"Parse error"}}`},
		{"error with data", NewErrorResponse(NumberID(1), NewError("domain_error", "No").WithData([]string{"x"})), `{"jsonrpc":"2.0","id":1,"error":{"code":"domain_error","message":"No","data":["x"]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatal(err)
			}
			if string(b) != tt.want {
				t.Errorf("got %s, want %s", b, tt.want)
			}
		})
	}
}

func TestResponseUnmarshalRejectsBoth(t *testing.T) {
	var r Response
	err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":1,"result":1,"error":{"code":"x","message":"y"}}`), &r)
	if err == nil {
		t.Error("expected error")
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		in           string
		notification bool
		id           string
	}{
		{`{"jsonrpc":"2.0","method":"m","id":"abc"}`, false, "abc"},
		{`{"jsonrpc":"2.0","method":"m","id":7}`, false, "7"},
		{`{"jsonrpc":"2.0","method":"m","id":null}`, true, ""},
		{`{"jsonrpc":"2.0","method":"m"}`, true, ""},
	}
	for _, tt := range tests {
		var req Request
		if err := json.Unmarshal([]byte(tt.in), &req); err != nil {
			t.Fatal(err)
		}
		if req.IsNotification() != tt.notification || req.ID.String() != tt.id {
			t.Errorf("%s: got (%v, %q)", tt.in, req.IsNotification(), req.ID.String())
		}
	}
}

func TestHasParams(t *testing.T) {
	for raw, want := range map[string]bool{"": false, "null": false, " null ": false, "{}": true, "[]": true, "0": true} {
		r := &Request{Params: json.RawMessage(raw)}
		if got := r.hasParams(); got != want {
			t.Errorf("hasParams(%q) = %v, want %v", raw, got, want)
		}
	}
}
