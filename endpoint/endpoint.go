// Package endpoint provides typed HTTP handlers.
//
// A request passes through three phases:
//
//  1. Decode: EndpointHandler decodes the request (body, query, headers) into
//     a typed params value using struct tags. See Unmarshal.
//  2. Endpoint: the EndpointFunc runs with the decoded params and returns a
//     Renderer. It never writes the response itself.
//  3. Render: the Renderer writes status, headers and body.
//
// Processors run before the EndpointFunc, in order, and may short-circuit.
package endpoint

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// EndpointError is an error that carries the HTTP status to answer with.
type EndpointError struct {
	Status int
	// Message is short and safe to show to the client.
	Message string
	Cause   error
}

func (e *EndpointError) Error() string {
	if e == nil {
		return "endpoint: error: <nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if msg == "" {
		msg = "unknown error"
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *EndpointError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Error returns an *EndpointError, unless err already is one.
func Error(status int, message string, err error) error {
	var ee *EndpointError
	if errors.As(err, &ee) {
		return err
	}
	return &EndpointError{Status: status, Message: message, Cause: err}
}

// Renderer writes a complete response. Render must call WriteHeader and may
// set Content-Type before doing so. A returned error means the response could
// not be written.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// RendererFunc adapts a function to a Renderer.
type RendererFunc func(w http.ResponseWriter, r *http.Request) error

func (f RendererFunc) Render(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// Processor is middleware that runs before the endpoint.
//
// A processor calls next to continue the chain, or returns without calling it
// to short-circuit. It may set headers but must not call WriteHeader or write
// the body, except when short-circuiting. A non-nil error stops the chain.
type Processor interface {
	Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error
}

// ProcessorFunc adapts a function to a Processor.
type ProcessorFunc func(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error

func (f ProcessorFunc) Process(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error {
	return f(w, r, next)
}

// EndpointFunc handles a request given its decoded params and returns the
// Renderer for the response.
type EndpointFunc[P any] func(w http.ResponseWriter, r *http.Request, params P) (Renderer, error)

// EndpointHandler is the http.Handler for an EndpointFunc.
type EndpointHandler[P any] struct {
	Endpoint   EndpointFunc[P]
	Processors []Processor
	// Logger receives failures to write a response. Defaults to slog.Default().
	Logger *slog.Logger
}

// Handler constructs an EndpointHandler, inferring P from fn.
func Handler[P any](fn EndpointFunc[P], processors ...Processor) *EndpointHandler[P] {
	return &EndpointHandler[P]{Endpoint: fn, Processors: processors}
}

// HandleFunc is like Handler but returns an http.HandlerFunc.
func HandleFunc[P any](fn EndpointFunc[P], processors ...Processor) http.HandlerFunc {
	return Handler(fn, processors...).ServeHTTP
}

func (h *EndpointHandler[P]) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// ServeHTTP implements http.Handler.
func (h *EndpointHandler[P]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Endpoint == nil {
		http.Error(w, "endpoint: nil EndpointFunc", http.StatusInternalServerError)
		return
	}

	var run func(i int, w http.ResponseWriter, r *http.Request) error
	run = func(i int, w http.ResponseWriter, r *http.Request) error {
		if i < len(h.Processors) {
			p := h.Processors[i]
			if p == nil {
				return errors.New("endpoint: nil processor")
			}
			return p.Process(w, r, func(w http.ResponseWriter, r *http.Request) error {
				return run(i+1, w, r)
			})
		}

		var params P
		if err := Unmarshal(r, &params); err != nil {
			return err
		}
		renderer, err := h.Endpoint(w, r, params)
		if err != nil {
			return err
		}
		if renderer == nil {
			return errors.New("endpoint: nil renderer")
		}
		if c, ok := renderer.(io.Closer); ok {
			defer c.Close()
		}
		return renderer.Render(w, r)
	}

	err := run(0, w, r)
	if err == nil {
		return
	}

	status := http.StatusInternalServerError
	message := err.Error()
	var ee *EndpointError
	if errors.As(err, &ee) && ee != nil {
		if ee.Status >= 100 {
			status = ee.Status
		}
		message = ee.Message
		if message == "" {
			message = http.StatusText(status)
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger().ErrorContext(r.Context(), "endpoint: request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	http.Error(w, message, status)
}
