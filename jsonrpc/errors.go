package jsonrpc

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a JSON-RPC error. Codes are stable string identifiers.
type ErrorCode string

const (
	CodeParseError     ErrorCode = "parse_error"
	CodeInvalidRequest ErrorCode = "invalid_request"
	CodeMethodNotFound ErrorCode = "method_not_found"
	CodeInvalidParams  ErrorCode = "invalid_params"
	CodeInternalError  ErrorCode = "internal_error"
)

const (
	MessageParseError       = "Parse error"
	MessageInvalidRequest   = "Invalid request"
	MessageMethodNotFound   = "Method not found"
	MessageInvalidParams    = "Invalid params"
	MessageInternalError    = "Internal error"
	MessageParamsRequired   = "Params can't be null"
	MessageValidationFailed = "Request didn't pass validation"
)

// Error is a JSON-RPC error object.
//
// Handlers return (or wrap) an *Error to report an application-defined
// failure; its code and data reach the caller unchanged.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "jsonrpc: error: <nil>"
	}
	return string(e.Code) + ": " + e.Message
}

// NewError creates an error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithData returns a copy of e carrying data.
func (e *Error) WithData(data any) *Error {
	cp := *e
	cp.Data = data
	return &cp
}

// ErrRegistryFrozen is returned by Register once the registry has been frozen.
var ErrRegistryFrozen = errors.New("jsonrpc: registry is frozen")

// DuplicateMethodError reports a second registration under the same name.
type DuplicateMethodError struct {
	Name string
}

func (e *DuplicateMethodError) Error() string {
	return "jsonrpc: duplicate method: " + e.Name
}

// InvalidMethodError reports a descriptor that cannot be registered.
type InvalidMethodError struct {
	Name   string
	Reason string
}

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("jsonrpc: invalid method %q: %s", e.Name, e.Reason)
}

// MissingPathParameterError reports a required path parameter that did not
// resolve from the request's method name.
type MissingPathParameterError struct {
	Name string
}

func (e *MissingPathParameterError) Error() string {
	return "missing required path parameter: " + e.Name
}

// ConversionError reports params or a path segment that could not be
// converted to the declared type.
type ConversionError struct {
	// Param is the path parameter name, or empty for the body.
	Param string
	Err   error
}

func (e *ConversionError) Error() string {
	if e.Param == "" {
		return "cannot convert params: " + e.Err.Error()
	}
	return fmt.Sprintf("cannot convert path parameter %q: %v", e.Param, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// InvocationError wraps a failure raised while calling a handler through
// reflection. The mapper unwraps exactly one level of it.
type InvocationError struct {
	Method string
	Err    error
}

func (e *InvocationError) Error() string {
	return "jsonrpc: invoke " + e.Method + ": " + e.Err.Error()
}

func (e *InvocationError) Unwrap() error { return e.Err }

// panicError carries a recovered handler panic.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("jsonrpc: handler panic: %v", e.value)
}

// ErrorMapper converts a failure into the error object returned to the caller.
type ErrorMapper func(err error) *Error

// MapError is the default ErrorMapper.
//
// An *Error anywhere in the chain is returned as is. Binding failures become
// invalid_params with their diagnostic as data. Everything else becomes
// internal_error without data, so handler internals never reach the caller.
func MapError(err error) *Error {
	if err == nil {
		return nil
	}
	var ie *InvocationError
	if errors.As(err, &ie) && ie.Err != nil {
		err = ie.Err
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) && rpcErr != nil {
		return rpcErr
	}

	var missing *MissingPathParameterError
	if errors.As(err, &missing) {
		return NewError(CodeInvalidParams, MessageInvalidParams).WithData(missing.Error())
	}
	var conv *ConversionError
	if errors.As(err, &conv) {
		return NewError(CodeInvalidParams, MessageInvalidParams).WithData(conv.Error())
	}

	return NewError(CodeInternalError, MessageInternalError)
}

// isInternal reports whether mapped hides err from the caller.
func isInternal(mapped *Error) bool {
	return mapped != nil && mapped.Code == CodeInternalError && mapped.Data == nil
}
