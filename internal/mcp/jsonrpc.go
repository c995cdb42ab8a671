// Package mcp implements the gateway's Model Context Protocol surface:
// JSON-RPC 2.0 envelopes over HTTP POST, with initialize, tools/list and
// tools/call methods.
package mcp

import (
	"encoding/json"
	"fmt"

	"agent-gateway/internal/shared"
)

// JSONRPCVersion is the only valid JSON-RPC version string.
const JSONRPCVersion = "2.0"

// Request is a JSON-RPC 2.0 request object.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"` // string | int | null
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response object.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object. Data always carries the failure
// kind so callers can dispatch without parsing the message.
type RPCError struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

type ErrorData struct {
	Kind shared.Kind `json:"kind"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700 // Invalid JSON
	CodeInvalidRequest = -32600 // Not a valid Request object
	CodeMethodNotFound = -32601 // Method does not exist
	CodeInvalidParams  = -32602 // Invalid method parameters
	CodeInternalError  = -32603 // Internal error
)

// Gateway-specific error codes, one per failure kind in the taxonomy.
const (
	CodeUnauthorized              = -32001
	CodeUpstreamUnavailable       = -32002
	CodeUpstreamRejected          = -32003
	CodeUpstreamServerError       = -32004
	CodeUpstreamMalformedResponse = -32005
	CodeResponseMappingError      = -32006
)

func kindCode(kind shared.Kind) int {
	switch kind {
	case shared.KindUnauthorized:
		return CodeUnauthorized
	case shared.KindUpstreamUnavailable:
		return CodeUpstreamUnavailable
	case shared.KindUpstreamRejected:
		return CodeUpstreamRejected
	case shared.KindUpstreamServerError:
		return CodeUpstreamServerError
	case shared.KindUpstreamMalformedResponse:
		return CodeUpstreamMalformedResponse
	case shared.KindResponseMappingError:
		return CodeResponseMappingError
	case shared.KindMalformedRequest:
		return CodeInvalidRequest
	}
	return CodeInternalError
}

func errResponse(id any, code int, kind shared.Kind, message string) Response {
	return Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &RPCError{
			Code:    code,
			Message: message,
			Data:    &ErrorData{Kind: kind},
		},
	}
}

// NewParseError creates a parse error response.
func NewParseError(id any) Response {
	return errResponse(id, CodeParseError, shared.KindMalformedRequest, "Parse error")
}

// NewInvalidRequest creates an invalid request error response.
func NewInvalidRequest(id any, detail string) Response {
	return errResponse(id, CodeInvalidRequest, shared.KindMalformedRequest, fmt.Sprintf("Invalid Request: %s", detail))
}

// NewMethodNotFound creates a method-not-found error response.
func NewMethodNotFound(id any, method string) Response {
	return errResponse(id, CodeMethodNotFound, shared.KindMalformedRequest, fmt.Sprintf("Method not found: %s", method))
}

// NewInvalidParams creates an invalid params error response.
func NewInvalidParams(id any, detail string) Response {
	return errResponse(id, CodeInvalidParams, shared.KindMalformedRequest, fmt.Sprintf("Invalid params: %s", detail))
}

// NewKindError creates an error response for a classified pipeline failure.
func NewKindError(id any, kind shared.Kind, message string) Response {
	return errResponse(id, kindCode(kind), kind, message)
}

// NewResult creates a successful response with the given result.
func NewResult(id any, result any) (Response, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return Response{}, fmt.Errorf("marshal result: %w", err)
	}
	return Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  data,
	}, nil
}
