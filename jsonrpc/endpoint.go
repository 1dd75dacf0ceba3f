package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elnormous/contenttype"

	"github.com/mnehpets/onerpc/endpoint"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// Endpoint serves a Dispatcher over HTTP. Every request on the mounted path
// is a JSON-RPC call, whatever its method name.
//
//	e := jsonrpc.NewEndpoint(d)
//	mux.Handle("/rpc", endpoint.Handler(e.Endpoint, processors...))
type Endpoint struct {
	dispatcher *Dispatcher
	envelope   Validator
	allowGET   bool
	timeout    time.Duration
	logger     *slog.Logger
}

// EndpointOption configures an Endpoint.
type EndpointOption func(*Endpoint)

// WithAllowGET also accepts GET requests, carrying the call either in the
// body or in the jsonrpc, method, id and params query parameters.
func WithAllowGET(allow bool) EndpointOption {
	return func(e *Endpoint) { e.allowGET = allow }
}

// WithTimeout bounds each dispatch. Zero means no bound beyond the
// request's own context.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithEndpointLogger sets the logger. Defaults to slog.Default().
func WithEndpointLogger(l *slog.Logger) EndpointOption {
	return func(e *Endpoint) { e.logger = l }
}

// NewEndpoint creates an HTTP endpoint for d.
func NewEndpoint(d *Dispatcher, opts ...EndpointOption) *Endpoint {
	e := &Endpoint{dispatcher: d, envelope: NewValidator()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// HTTPParams holds the raw call as decoded by the endpoint package. The body
// is parsed inside Endpoint because JSON-RPC reports malformed JSON as a
// parse_error response, not as an HTTP error.
type HTTPParams struct {
	Body []byte `body:""`

	JSONRPC string `query:"jsonrpc"`
	Method  string `query:"method"`
	ID      string `query:"id"`
	Params  string `query:"params"`
}

// Endpoint is the endpoint.EndpointFunc serving JSON-RPC calls.
func (e *Endpoint) Endpoint(w http.ResponseWriter, r *http.Request, params HTTPParams) (endpoint.Renderer, error) {
	switch r.Method {
	case http.MethodPost:
	case http.MethodGet:
		if !e.allowGET {
			return nil, endpoint.Error(http.StatusMethodNotAllowed, "JSON-RPC requires POST method", nil)
		}
	default:
		return nil, endpoint.Error(http.StatusMethodNotAllowed, "JSON-RPC requires POST method", nil)
	}

	if r.Header.Get("Content-Type") != "" {
		ct, err := contenttype.GetMediaType(r)
		if err != nil || !(ct.Matches(jsonMediaType) || strings.HasSuffix(ct.Subtype, "+json")) {
			return nil, endpoint.Error(http.StatusUnsupportedMediaType, "Content-Type must be application/json", err)
		}
	}

	body := params.Body
	if r.Method == http.MethodGet && len(bytes.TrimSpace(body)) == 0 {
		q, ok := params.queryBody()
		if !ok {
			return &endpoint.JSONRenderer{Value: NewErrorResponse(nil, NewError(CodeParseError, MessageParseError))}, nil
		}
		body = q
	}

	req, errResp := e.decode(body)
	if errResp != nil {
		e.logger.DebugContext(r.Context(), "jsonrpc: rejected request", "code", errResp.Error.Code, "data", errResp.Error.Data)
		return &endpoint.JSONRenderer{Value: errResp}, nil
	}
	return e.serve(r.Context(), req)
}

// queryBody rebuilds a request object from query parameters. ok is false
// when params is not valid JSON.
func (p HTTPParams) queryBody() ([]byte, bool) {
	obj := map[string]any{}
	if p.JSONRPC != "" {
		obj["jsonrpc"] = p.JSONRPC
	}
	if p.Method != "" {
		obj["method"] = p.Method
	}
	if p.ID != "" {
		obj["id"] = p.ID
	}
	if p.Params != "" {
		if !json.Valid([]byte(p.Params)) {
			return nil, false
		}
		obj["params"] = json.RawMessage(p.Params)
	}
	b, err := json.Marshal(obj)
	return b, err == nil
}

// envelope is the request schema. Violations are reported as
// invalid_request diagnostics.
type envelope struct {
	JSONRPC string          `json:"jsonrpc" validate:"eq=2.0"`
	Method  string          `json:"method" validate:"notblank"`
	Params  json.RawMessage `json:"params"`
	ID      ID              `json:"id"`
}

// decode parses body into a Request. On failure it returns the error
// response instead: parse_error for malformed JSON, invalid_request for
// JSON that is not a valid request object.
func (e *Endpoint) decode(body []byte) (*Request, *Response) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		return nil, NewErrorResponse(nil, NewError(CodeParseError, MessageParseError))
	}
	invalid := func(id ID, data any) *Response {
		return NewErrorResponse(id, NewError(CodeInvalidRequest, MessageInvalidRequest).WithData(data))
	}
	switch body[0] {
	case '{':
	case '[':
		return nil, invalid(nil, "batch requests are not supported")
	default:
		return nil, invalid(nil, "request must be a JSON object")
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, invalid(nil, err.Error())
	}

	violations := e.envelope.Validate(&env)
	echo := env.ID
	if msg := checkID(env.ID); msg != "" {
		violations = append(violations, msg)
		echo = nil
	}
	if len(violations) > 0 {
		return nil, invalid(echo, violations)
	}
	return &Request{JSONRPC: env.JSONRPC, Method: env.Method, Params: env.Params, ID: env.ID}, nil
}

// checkID accepts an absent id, a non-blank string or a number.
func checkID(id ID) string {
	if id.IsZero() {
		return ""
	}
	switch c := id[0]; {
	case c == '"':
		if strings.TrimSpace(id.String()) == "" {
			return "id: must not be blank"
		}
		return ""
	case c == '-' || (c >= '0' && c <= '9'):
		return ""
	}
	return "id: must be a string or a number"
}

func (e *Endpoint) serve(ctx context.Context, req *Request) (endpoint.Renderer, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.dispatcher.Dispatch(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, endpoint.Error(http.StatusGatewayTimeout, "JSON-RPC call timed out", err)
		}
		return nil, endpoint.Error(http.StatusServiceUnavailable, "JSON-RPC call cancelled", err)
	}
	if resp == nil {
		return &endpoint.NoContentRenderer{}, nil
	}
	return &endpoint.JSONRenderer{Value: resp}, nil
}
