package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agent-gateway/internal/auth"
	"agent-gateway/internal/metrics"
	"agent-gateway/internal/shared"
	"agent-gateway/internal/upstream"

	"github.com/aidarkhanov/nanoid"
	"go.uber.org/zap"
)

// Completer is the single upstream call the handler depends on. Satisfied by
// *upstream.Client; tests substitute a stub.
type Completer interface {
	Complete(ctx context.Context, req upstream.CompletionRequest) (*upstream.CompletionResult, error)
}

// Handler turns one inbound MCP request into one response. It holds only
// process-wide immutable collaborators; nothing request-scoped survives a
// call, so a single Handler is safe to share across connections.
type Handler struct {
	guard *auth.Guard
	model Completer
	log   *zap.SugaredLogger
}

func NewHandler(guard *auth.Guard, model Completer, log *zap.SugaredLogger) *Handler {
	return &Handler{guard: guard, model: model, log: log}
}

// Meta reports what the handler decoded, for request logging only.
type Meta struct {
	Method string
	Tool   string
}

// Handle runs the pipeline: parse, credential guard, dispatch, map result.
// Every failure comes back as a well-formed error envelope. The guard always
// runs before any upstream call.
func (h *Handler) Handle(ctx context.Context, token string, body []byte) (Response, Meta) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return NewParseError(nil), Meta{}
	}
	meta := Meta{Method: req.Method}

	if req.JSONRPC != JSONRPCVersion {
		return NewInvalidRequest(req.ID, fmt.Sprintf("unsupported jsonrpc version %q", req.JSONRPC)), meta
	}
	if req.Method == "" {
		return NewInvalidRequest(req.ID, "method is required"), meta
	}

	if err := h.guard.Authorize(token); err != nil {
		metrics.UnauthorizedRequests.Inc()
		return NewKindError(req.ID, shared.KindUnauthorized, "unauthorized"), meta
	}

	switch req.Method {
	case "initialize":
		return h.handleInitialize(req), meta
	case "tools/list":
		return h.handleToolsList(req), meta
	case "tools/call":
		return h.handleToolsCall(ctx, req, &meta), meta
	default:
		return NewMethodNotFound(req.ID, req.Method), meta
	}
}

func (h *Handler) handleInitialize(req Request) Response {
	res, err := NewResult(req.ID, InitializeResult{
		ProtocolVersion: shared.ProtocolVersion,
		Capabilities: map[string]any{
			"tools": map[string]any{"listChanged": true},
		},
		ServerInfo: ServerInfo{
			Name:    shared.ServerName,
			Version: shared.ServerVersion,
		},
	})
	if err != nil {
		return NewKindError(req.ID, shared.KindResponseMappingError, err.Error())
	}
	return res
}

func (h *Handler) handleToolsList(req Request) Response {
	res, err := NewResult(req.ID, ListToolsResult{Tools: toolCatalog()})
	if err != nil {
		return NewKindError(req.ID, shared.KindResponseMappingError, err.Error())
	}
	return res
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type completeArgs struct {
	Prompt      string   `json:"prompt"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

func (h *Handler) handleToolsCall(ctx context.Context, req Request, meta *Meta) Response {
	var params callToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return NewInvalidParams(req.ID, "params must be an object")
		}
	}
	if params.Name == "" {
		return NewInvalidParams(req.ID, "tool name is required")
	}
	meta.Tool = params.Name

	switch params.Name {
	case ToolComplete:
		return h.callComplete(ctx, req, params.Arguments)
	case ToolGenerateTicket:
		return h.callGenerateTicket(req)
	default:
		return NewInvalidParams(req.ID, fmt.Sprintf("unknown tool: %s", params.Name))
	}
}

func (h *Handler) callComplete(ctx context.Context, req Request, rawArgs json.RawMessage) Response {
	var args completeArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return NewInvalidParams(req.ID, "arguments must be an object")
		}
	}
	if strings.TrimSpace(args.Prompt) == "" {
		return NewInvalidParams(req.ID, "prompt is required")
	}

	out, err := h.model.Complete(ctx, upstream.CompletionRequest{
		Prompt:      args.Prompt,
		Temperature: args.Temperature,
		MaxTokens:   args.MaxTokens,
	})
	if err != nil {
		kind, ok := shared.KindOf(err)
		if !ok {
			// Completer implementations classify everything; an unclassified
			// error means the call never produced a usable result.
			kind = shared.KindUpstreamUnavailable
		}
		var gerr *shared.GatewayError
		message := "upstream call failed"
		if errors.As(err, &gerr) && gerr.Err != nil {
			message = gerr.Err.Error()
		}
		h.log.Warnw("Upstream completion failed", "kind", kind, "error", err)
		return NewKindError(req.ID, kind, message)
	}

	res, err := NewResult(req.ID, CallToolResult{
		Content: []TextContent{{Type: "text", Text: out.Text}},
	})
	if err != nil {
		return NewKindError(req.ID, shared.KindResponseMappingError, err.Error())
	}
	return res
}

func (h *Handler) callGenerateTicket(req Request) Response {
	// A fresh random id per call. The handler deliberately keeps no counter:
	// ticket ids must not depend on what earlier requests did.
	id, err := nanoid.Generate(shared.RequestIDAlphabet, shared.TicketIDLength)
	if err != nil {
		return NewKindError(req.ID, shared.KindResponseMappingError, "failed generating ticket id")
	}
	res, err := NewResult(req.ID, CallToolResult{
		Content: []TextContent{{Type: "text", Text: fmt.Sprintf("Ticket generated: ID: %s", id)}},
	})
	if err != nil {
		return NewKindError(req.ID, shared.KindResponseMappingError, err.Error())
	}
	return res
}
