package jsonrpc

import (
	"context"
	"fmt"
	"log/slog"
)

// Dispatcher resolves, binds, validates and invokes single JSON-RPC
// requests against a frozen Registry.
type Dispatcher struct {
	registry  *Registry
	validator Validator
	mapError  ErrorMapper
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithValidator replaces the body validator. A nil validator disables
// validation.
func WithValidator(v Validator) Option {
	return func(d *Dispatcher) { d.validator = v }
}

// WithErrorMapper replaces MapError for handler failures.
func WithErrorMapper(m ErrorMapper) Option {
	return func(d *Dispatcher) { d.mapError = m }
}

// NewDispatcher creates a dispatcher and freezes reg.
func NewDispatcher(reg *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:  reg,
		validator: NewValidator(),
		mapError:  MapError,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.mapError == nil {
		d.mapError = MapError
	}
	reg.Freeze()
	return d
}

// Registry returns the dispatcher's registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch handles one request.
//
// It returns a nil response for notifications, whatever the outcome. If ctx
// ends while the handler runs, the handler's context is cancelled and
// Dispatch returns ctx.Err() without a response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	trace := newTrace(req)
	ctx = ContextWithTrace(ctx, trace)

	result, rpcErr, err := d.run(ctx, req)
	if err != nil {
		d.logger.DebugContext(ctx, "jsonrpc: dispatch cancelled", "method", req.Method, "error", err)
		return nil, err
	}

	if req.IsNotification() {
		if rpcErr != nil {
			d.logger.DebugContext(ctx, "jsonrpc: notification failed", "method", req.Method, "code", rpcErr.Code, "message", rpcErr.Message)
		}
		return nil, nil
	}

	if rpcErr != nil {
		return NewErrorResponse(req.ID, rpcErr), nil
	}
	resp, merr := NewResultResponse(req.ID, result)
	if merr != nil {
		d.logger.ErrorContext(ctx, "jsonrpc: result not serializable", "method", req.Method, "error", merr)
		return NewErrorResponse(req.ID, NewError(CodeInternalError, MessageInternalError)), nil
	}
	return resp, nil
}

// run executes the dispatch states in order. The first two results are the
// outcome; the error is non-nil only when ctx ended during invocation.
func (d *Dispatcher) run(ctx context.Context, req *Request) (any, *Error, error) {
	// Resolved
	m, tail, ok := d.registry.resolve(req.Method)
	if !ok {
		return nil, NewError(CodeMethodNotFound, MessageMethodNotFound), nil
	}

	// ParamsChecked
	if m.RequiresBody() && !req.hasParams() {
		return nil, NewError(CodeInvalidParams, MessageParamsRequired), nil
	}

	// Bound
	b, err := bind(m, tail, req.Params)
	if err != nil {
		return nil, MapError(err), nil
	}

	// Validated
	if b.hasBody && d.validator != nil {
		if violations := d.validator.Validate(b.body); len(violations) > 0 {
			return nil, NewError(CodeInvalidParams, MessageValidationFailed).WithData(violations), nil
		}
	}

	// Invoked
	result, err := d.invoke(ctx, m, b.args)
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return nil, nil, ctxErr
	}

	// Completed
	if err != nil {
		mapped := d.mapError(err)
		if mapped == nil {
			mapped = NewError(CodeInternalError, MessageInternalError)
		}
		if isInternal(mapped) {
			d.logger.ErrorContext(ctx, "jsonrpc: handler failed", "method", m.Name, "error", err)
		}
		return nil, mapped, nil
	}
	return result, nil, nil
}

type outcome struct {
	result any
	err    error
}

// invoke runs the handler as its own task and waits for it, or for ctx.
func (d *Dispatcher) invoke(ctx context.Context, m *Method, args []any) (any, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		var o outcome
		defer func() {
			if r := recover(); r != nil {
				o = outcome{err: &panicError{value: r}}
			}
			done <- o
		}()
		o.result, o.err = m.Handler(ctx, args)
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("jsonrpc: %s: %w", m.Name, context.Cause(ctx))
	}
}
