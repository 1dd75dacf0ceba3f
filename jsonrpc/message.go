package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ProtocolVersion is the only supported value of the "jsonrpc" member.
const ProtocolVersion = "2.0"

// ID is the raw JSON value of a request id. A nil ID (absent or null in the
// request) marks a notification.
type ID json.RawMessage

// StringID returns the ID for a string id.
func StringID(s string) ID {
	b, _ := json.Marshal(s)
	return ID(b)
}

// NumberID returns the ID for a numeric id.
func NumberID(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// IsZero reports whether the id is absent.
func (id ID) IsZero() bool { return len(id) == 0 }

// String returns the id as text: strings unquoted, numbers verbatim.
func (id ID) String() string {
	if len(id) == 0 {
		return ""
	}
	if id[0] == '"' {
		var s string
		if err := json.Unmarshal(id, &s); err == nil {
			return s
		}
	}
	return string(id)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if len(id) == 0 {
		return []byte("null"), nil
	}
	return id, nil
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = nil
		return nil
	}
	*id = append((*id)[0:0], b...)
	return nil
}

// Request is a single inbound JSON-RPC call.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      ID              `json:"id,omitempty"`
}

// IsNotification reports whether the caller expects no response.
func (r *Request) IsNotification() bool { return r.ID.IsZero() }

// hasParams reports whether params carry a non-null value.
func (r *Request) hasParams() bool {
	p := bytes.TrimSpace(r.Params)
	return len(p) > 0 && !bytes.Equal(p, []byte("null"))
}

// Response is a JSON-RPC response. Exactly one of Result and Error is
// emitted on the wire.
type Response struct {
	JSONRPC string
	ID      ID
	Result  json.RawMessage
	Error   *Error
}

type resultWire struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Result  json.RawMessage `json:"result"`
}

type errorWire struct {
	JSONRPC string `json:"jsonrpc"`
	ID      ID     `json:"id"`
	Error   *Error `json:"error"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	version := r.JSONRPC
	if version == "" {
		version = ProtocolVersion
	}
	if r.Error != nil {
		return json.Marshal(errorWire{JSONRPC: version, ID: r.ID, Error: r.Error})
	}
	result := r.Result
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return json.Marshal(resultWire{JSONRPC: version, ID: r.ID, Result: result})
}

func (r *Response) UnmarshalJSON(b []byte) error {
	var w struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      ID              `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *Error          `json:"error"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Error != nil && len(w.Result) > 0 {
		return fmt.Errorf("jsonrpc: response carries both result and error")
	}
	*r = Response{JSONRPC: w.JSONRPC, ID: w.ID, Result: w.Result, Error: w.Error}
	return nil
}

// NewResultResponse builds a successful response.
func NewResultResponse(id ID, result any) (*Response, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: marshal result: %w", err)
	}
	return &Response{JSONRPC: ProtocolVersion, ID: id, Result: b}, nil
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id ID, err *Error) *Response {
	return &Response{JSONRPC: ProtocolVersion, ID: id, Error: err}
}
