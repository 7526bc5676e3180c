// Package apierr defines the error taxonomy surfaced to the Panel over
// HTTP and gRPC, following the kind/status mapping the daemon has always
// used.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind classifies an error for transport-specific status mapping.
type Kind string

const (
	KindRuntime         Kind = "Runtime"
	KindIO              Kind = "IO"
	KindPathTraversal   Kind = "PathTraversal"
	KindNotFound        Kind = "NotFound"
	KindPayloadTooLarge Kind = "PayloadTooLarge"
	KindConfig          Kind = "Config"
	KindAuth            Kind = "Auth"
)

// Error is the typed error surfaced to callers. Cause, when present, is
// wrapped and reachable via errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func Runtime(msg string, cause error) *Error { return newError(KindRuntime, msg, cause) }
func IO(msg string, cause error) *Error      { return newError(KindIO, msg, cause) }
func PathTraversal(msg string) *Error        { return newError(KindPathTraversal, msg, nil) }
func NotFound(msg string) *Error             { return newError(KindNotFound, msg, nil) }
func PayloadTooLarge(msg string) *Error      { return newError(KindPayloadTooLarge, msg, nil) }
func Config(msg string) *Error               { return newError(KindConfig, msg, nil) }
func Auth(msg string) *Error                 { return newError(KindAuth, msg, nil) }

// As extracts an *Error from err, if any is in its chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps a Kind to the HTTP status the handlers respond with.
func HTTPStatus(k Kind) int {
	switch k {
	case KindRuntime, KindIO, KindConfig:
		return http.StatusInternalServerError
	case KindPathTraversal:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps a Kind to the gRPC status code the RPC handlers respond with.
func GRPCCode(k Kind) codes.Code {
	switch k {
	case KindRuntime, KindIO:
		return codes.Internal
	case KindPathTraversal:
		return codes.InvalidArgument
	case KindNotFound:
		return codes.NotFound
	case KindPayloadTooLarge:
		return codes.OutOfRange
	case KindConfig:
		return codes.InvalidArgument
	case KindAuth:
		return codes.Unauthenticated
	default:
		return codes.Internal
	}
}

// HTTPStatusFor inspects err and returns the best matching HTTP status,
// defaulting to 500 for errors outside the taxonomy.
func HTTPStatusFor(err error) int {
	if e, ok := As(err); ok {
		return HTTPStatus(e.Kind)
	}
	return http.StatusInternalServerError
}

// GRPCCodeFor inspects err and returns the best matching gRPC code,
// defaulting to Internal for errors outside the taxonomy.
func GRPCCodeFor(err error) codes.Code {
	if e, ok := As(err); ok {
		return GRPCCode(e.Kind)
	}
	return codes.Internal
}
