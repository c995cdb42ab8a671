package shared

import (
	"errors"
	"fmt"
)

// Kind names where in the request pipeline a failure originated. The kind
// travels with the error to the response boundary so callers can dispatch
// on it without parsing messages.
type Kind string

const (
	KindUnauthorized              Kind = "Unauthorized"
	KindMalformedRequest          Kind = "MalformedRequest"
	KindUpstreamUnavailable       Kind = "UpstreamUnavailable"
	KindUpstreamRejected          Kind = "UpstreamRejected"
	KindUpstreamServerError       Kind = "UpstreamServerError"
	KindUpstreamMalformedResponse Kind = "UpstreamMalformedResponse"
	KindResponseMappingError      Kind = "ResponseMappingError"
)

// GatewayError is used when we want a specific failure kind surfaced to the
// caller. Sane defaults are listed below. For call sites that need custom
// messages, a gateway error can be built inline and the handler returns the
// exact message inside the error.
//
// Kinds should be bubbled where the message is expected to reach the user.
// If the user should see a generic message but the error chain should carry
// more detail for logging, join the detail with errors.Join instead.
type GatewayError struct {
	Kind Kind
	Err  error
}

func (g *GatewayError) Error() string {
	return fmt.Sprintf("%s: %v", g.Kind, g.Err)
}

func (g *GatewayError) Unwrap() error {
	return g.Err
}

var (
	ErrMissingAuth   = &GatewayError{Kind: KindUnauthorized, Err: errors.New("missing authorization header")}
	ErrInvalidFormat = &GatewayError{Kind: KindUnauthorized, Err: errors.New("invalid authentication format")}
	ErrUnauthorized  = &GatewayError{Kind: KindUnauthorized, Err: errors.New("unauthorized")}

	ErrInvalidRequest = &GatewayError{Kind: KindMalformedRequest, Err: errors.New("invalid request body")}

	ErrUpstreamTimeout   = &GatewayError{Kind: KindUpstreamUnavailable, Err: errors.New("upstream request timed out")}
	ErrUpstreamFailedReq = &GatewayError{Kind: KindUpstreamUnavailable, Err: errors.New("failed to send http request to model")}
	ErrUpstreamRejected  = &GatewayError{Kind: KindUpstreamRejected, Err: errors.New("model rejected the request")}
	ErrUpstreamServer    = &GatewayError{Kind: KindUpstreamServerError, Err: errors.New("model responded with a server error")}
	ErrUpstreamMalformed = &GatewayError{Kind: KindUpstreamMalformedResponse, Err: errors.New("failed to read model response")}

	ErrResponseMapping = &GatewayError{Kind: KindResponseMappingError, Err: errors.New("failed to map model response")}
)

// KindOf walks the error chain and reports the failure kind, if any.
func KindOf(err error) (Kind, bool) {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return "", false
}
