// Package jsonrpc dispatches single JSON-RPC 2.0 requests to registered
// handlers.
//
// # Registering methods
//
// Methods live in a Registry. Register descriptors explicitly:
//
//	reg := jsonrpc.NewRegistry()
//	reg.MustRegister(jsonrpc.Func("math.add", func(ctx context.Context, p AddParams) (int, error) {
//	    return p.A + p.B, nil
//	}))
//
// or discover them from the exported methods of a service value:
//
//	reg.RegisterService("users", &UserService{})  // -> "users.Get", ...
//
// Discovered methods take a context and at most one params value; see
// Discover for the accepted shapes.
//
// # Path parameters
//
// A method may declare named path parameters. They are read from segments
// appended to the method name and matched against the method's route
// template:
//
//	{"method": "users.field/42/name", ...}  // route "/{userId}/{field}"
//
// Missing required path parameters and unconvertible values are reported as
// invalid_params.
//
// # Dispatch
//
// NewDispatcher freezes the registry; after that lookups take no locks.
// Dispatch resolves the method, checks that params are present when a body is
// declared, binds and validates the arguments, then runs the handler in its
// own goroutine and waits for it. The handler's context carries a
// TraceContext holding the request id:
//
//	slog.InfoContext(ctx, "loading user")  // trace_id attached by TraceHandler
//
// Requests without an id are notifications: the handler runs, but no
// response is produced, even on error.
//
// # Errors
//
// Error codes are strings: parse_error, invalid_request, method_not_found,
// invalid_params and internal_error. Handlers report their own codes by
// returning an *Error:
//
//	return nil, jsonrpc.NewError("domain_error", "Not allowed").WithData(map[string]string{"reason": "x"})
//
// Any other handler error becomes internal_error; its detail is logged, never
// returned.
//
// # HTTP
//
// Endpoint serves a Dispatcher through the endpoint package:
//
//	e := jsonrpc.NewEndpoint(jsonrpc.NewDispatcher(reg))
//	http.Handle("/rpc", endpoint.Handler(e.Endpoint))
//
// Malformed JSON yields parse_error and a body that is not a valid request
// object yields invalid_request with field diagnostics. Batches are not
// supported.
package jsonrpc
