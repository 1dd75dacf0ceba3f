package jsonrpc

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// TraceContext correlates everything a single handler invocation logs.
type TraceContext struct {
	// ID is the request id. Notifications carry none, so they get a random one.
	ID string
	// Generated is set when ID was minted rather than taken from the request.
	Generated bool
}

type traceKey struct{}

// newTrace returns the trace for a request.
func newTrace(req *Request) TraceContext {
	if req.IsNotification() {
		return TraceContext{ID: uuid.NewString(), Generated: true}
	}
	return TraceContext{ID: req.ID.String()}
}

// ContextWithTrace returns a copy of ctx carrying tc.
func ContextWithTrace(ctx context.Context, tc TraceContext) context.Context {
	return context.WithValue(ctx, traceKey{}, tc)
}

// TraceFromContext returns the trace attached by the dispatcher.
func TraceFromContext(ctx context.Context) (TraceContext, bool) {
	tc, ok := ctx.Value(traceKey{}).(TraceContext)
	return tc, ok
}

// TraceID returns the trace id in ctx, or "".
func TraceID(ctx context.Context) string {
	tc, _ := TraceFromContext(ctx)
	return tc.ID
}

// TraceHandler decorates a slog.Handler with the trace id found in the
// record's context.
type TraceHandler struct {
	slog.Handler
}

// NewTraceHandler wraps h.
func NewTraceHandler(h slog.Handler) *TraceHandler {
	return &TraceHandler{Handler: h}
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if tc, ok := TraceFromContext(ctx); ok {
		r.AddAttrs(slog.String("trace_id", tc.ID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}
