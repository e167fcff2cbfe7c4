package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorKind classifies provider failures by how the pipeline reacts to them.
type ErrorKind string

// Provider error kinds.
const (
	KindAuth        ErrorKind = "auth"
	KindRateLimit   ErrorKind = "rate_limit"
	KindTimeout     ErrorKind = "timeout"
	KindNetwork     ErrorKind = "network"
	KindUnavailable ErrorKind = "unavailable"
	KindBadRequest  ErrorKind = "bad_request"
	KindParse       ErrorKind = "parse"
)

// Sentinels matched by ProviderError.Is.
var (
	ErrAuth           = errors.New("provider rejected credentials")
	ErrRateLimit      = errors.New("provider rate limit or quota exceeded")
	ErrTimeout        = errors.New("provider call timed out")
	ErrNetwork        = errors.New("provider unreachable")
	ErrUnavailable    = errors.New("provider unavailable")
	ErrBadRequest     = errors.New("provider rejected request")
	ErrParse          = errors.New("unparseable provider response")
	ErrNoHealthyKeys  = errors.New("no healthy credentials")
	ErrNoCategories   = errors.New("no candidate categories")
	ErrUnknownDialect = errors.New("unknown provider dialect")
)

var kindSentinels = map[ErrorKind]error{
	KindAuth:        ErrAuth,
	KindRateLimit:   ErrRateLimit,
	KindTimeout:     ErrTimeout,
	KindNetwork:     ErrNetwork,
	KindUnavailable: ErrUnavailable,
	KindBadRequest:  ErrBadRequest,
	KindParse:       ErrParse,
}

// ProviderError is returned by every failed provider call.
type ProviderError struct {
	Err        error
	Provider   string
	Kind       ErrorKind
	StatusCode int
	ViaProxy   bool
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s error", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind.
func (e *ProviderError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// PenalizesKey reports whether the credential used should be put on cooldown.
func (e *ProviderError) PenalizesKey() bool {
	return e.Kind == KindAuth || e.Kind == KindRateLimit
}

// KindOf returns the kind of a provider error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// kindForStatus maps an HTTP status code onto an error kind.
func kindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests || code == http.StatusPaymentRequired:
		return KindRateLimit
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code == http.StatusProxyAuthRequired:
		return KindNetwork
	case code >= 500:
		return KindUnavailable
	default:
		return KindBadRequest
	}
}

// kindForGRPC maps a gRPC status code onto an error kind.
func kindForGRPC(code codes.Code) ErrorKind {
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		return KindAuth
	case codes.ResourceExhausted:
		return KindRateLimit
	case codes.DeadlineExceeded:
		return KindTimeout
	case codes.Unavailable, codes.Internal, codes.Unknown:
		return KindUnavailable
	default:
		return KindBadRequest
	}
}

// classifyTransportError turns a failed round trip into a ProviderError.
func classifyTransportError(provider string, err error) *ProviderError {
	pe := &ProviderError{Provider: provider, Err: err, Kind: KindNetwork}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		pe.StatusCode = gErr.Code
		pe.Kind = kindForStatus(gErr.Code)
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		pe.Kind = KindTimeout
		return pe
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		pe.Kind = KindTimeout
		return pe
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		pe.Kind = kindForGRPC(st.Code())
		return pe
	}
	return pe
}
