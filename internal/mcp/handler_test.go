package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"

	"agent-gateway/internal/auth"
	"agent-gateway/internal/shared"
	"agent-gateway/internal/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCompleter struct {
	calls   atomic.Int64
	lastReq upstream.CompletionRequest
	result  *upstream.CompletionResult
	err     error
}

func (s *stubCompleter) Complete(_ context.Context, req upstream.CompletionRequest) (*upstream.CompletionResult, error) {
	s.calls.Add(1)
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

const testToken = "123xxx456"

func newTestHandler(stub *stubCompleter) *Handler {
	return NewHandler(auth.NewGuard(testToken), stub, zap.NewNop().Sugar())
}

func rpcBody(t *testing.T, id any, method string, params any) []byte {
	t.Helper()
	req := map[string]any{"jsonrpc": "2.0", "id": id, "method": method}
	if params != nil {
		req["params"] = params
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return b
}

func callToolBody(t *testing.T, name string, args any) []byte {
	t.Helper()
	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	return rpcBody(t, "1", "tools/call", params)
}

func decodeCallResult(t *testing.T, resp Response) CallToolResult {
	t.Helper()
	require.Nil(t, resp.Error)
	var out CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &out))
	return out
}

func TestHandleInitialize(t *testing.T) {
	stub := &stubCompleter{}
	resp, meta := newTestHandler(stub).Handle(context.Background(), testToken,
		rpcBody(t, "1", "initialize", map[string]any{"protocolVersion": "2024-11-05"}))

	require.Nil(t, resp.Error)
	assert.Equal(t, "initialize", meta.Method)

	var out InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &out))
	assert.Equal(t, shared.ProtocolVersion, out.ProtocolVersion)
	assert.Equal(t, shared.ServerName, out.ServerInfo.Name)
	assert.Contains(t, out.Capabilities, "tools")
	assert.Equal(t, int64(0), stub.calls.Load())
}

func TestHandleToolsList(t *testing.T) {
	stub := &stubCompleter{}
	resp, _ := newTestHandler(stub).Handle(context.Background(), testToken, rpcBody(t, "2", "tools/list", nil))

	require.Nil(t, resp.Error)
	var out ListToolsResult
	require.NoError(t, json.Unmarshal(resp.Result, &out))
	names := make([]string, 0, len(out.Tools))
	for _, tool := range out.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolComplete, ToolGenerateTicket}, names)
}

func TestHandleCompletePassesTextThroughUnchanged(t *testing.T) {
	stub := &stubCompleter{result: &upstream.CompletionResult{Text: "hi there"}}
	h := newTestHandler(stub)

	resp, meta := h.Handle(context.Background(), testToken, callToolBody(t, ToolComplete, map[string]any{"prompt": "hello"}))

	out := decodeCallResult(t, resp)
	require.Len(t, out.Content, 1)
	assert.Equal(t, "text", out.Content[0].Type)
	assert.Equal(t, "hi there", out.Content[0].Text)
	assert.Equal(t, "tools/call", meta.Method)
	assert.Equal(t, ToolComplete, meta.Tool)

	// exactly one upstream call per inbound request
	assert.Equal(t, int64(1), stub.calls.Load())
	assert.Equal(t, "hello", stub.lastReq.Prompt)
}

func TestHandleCompleteForwardsGenerationParams(t *testing.T) {
	stub := &stubCompleter{result: &upstream.CompletionResult{Text: "ok"}}
	resp, _ := newTestHandler(stub).Handle(context.Background(), testToken,
		callToolBody(t, ToolComplete, map[string]any{"prompt": "hello", "temperature": 0.2, "max_tokens": 64}))

	require.Nil(t, resp.Error)
	require.NotNil(t, stub.lastReq.Temperature)
	assert.InDelta(t, 0.2, *stub.lastReq.Temperature, 1e-9)
	require.NotNil(t, stub.lastReq.MaxTokens)
	assert.Equal(t, 64, *stub.lastReq.MaxTokens)
}

func TestHandleUnauthorizedMakesNoUpstreamCall(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong token", token: "wrong"},
		{name: "missing token", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubCompleter{result: &upstream.CompletionResult{Text: "hi there"}}
			resp, _ := newTestHandler(stub).Handle(context.Background(), tt.token,
				callToolBody(t, ToolComplete, map[string]any{"prompt": "hello"}))

			require.NotNil(t, resp.Error)
			assert.Equal(t, CodeUnauthorized, resp.Error.Code)
			require.NotNil(t, resp.Error.Data)
			assert.Equal(t, shared.KindUnauthorized, resp.Error.Data.Kind)
			assert.Equal(t, int64(0), stub.calls.Load())
		})
	}
}

func TestHandleMalformedRequests(t *testing.T) {
	stub := &stubCompleter{}
	h := newTestHandler(stub)

	tests := []struct {
		name     string
		body     []byte
		wantCode int
	}{
		{name: "invalid json", body: []byte("{nope"), wantCode: CodeParseError},
		{name: "wrong jsonrpc version", body: []byte(`{"jsonrpc":"1.0","id":1,"method":"tools/list"}`), wantCode: CodeInvalidRequest},
		{name: "missing method", body: []byte(`{"jsonrpc":"2.0","id":1}`), wantCode: CodeInvalidRequest},
		{name: "unknown method", body: rpcBody(t, "1", "tools/register", nil), wantCode: CodeMethodNotFound},
		{name: "unknown tool", body: callToolBody(t, "generate_report", nil), wantCode: CodeInvalidParams},
		{name: "missing tool name", body: rpcBody(t, "1", "tools/call", map[string]any{}), wantCode: CodeInvalidParams},
		{name: "missing prompt", body: callToolBody(t, ToolComplete, map[string]any{}), wantCode: CodeInvalidParams},
		{name: "blank prompt", body: callToolBody(t, ToolComplete, map[string]any{"prompt": "  "}), wantCode: CodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := h.Handle(context.Background(), testToken, tt.body)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			require.NotNil(t, resp.Error.Data)
			assert.Equal(t, shared.KindMalformedRequest, resp.Error.Data.Kind)
		})
	}
	assert.Equal(t, int64(0), stub.calls.Load())
}

func TestHandlePropagatesUpstreamFailureKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind shared.Kind
		wantCode int
	}{
		{name: "rejected", err: shared.ErrUpstreamRejected, wantKind: shared.KindUpstreamRejected, wantCode: CodeUpstreamRejected},
		{name: "server error", err: shared.ErrUpstreamServer, wantKind: shared.KindUpstreamServerError, wantCode: CodeUpstreamServerError},
		{name: "unavailable", err: shared.ErrUpstreamTimeout, wantKind: shared.KindUpstreamUnavailable, wantCode: CodeUpstreamUnavailable},
		{name: "malformed", err: shared.ErrUpstreamMalformed, wantKind: shared.KindUpstreamMalformedResponse, wantCode: CodeUpstreamMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubCompleter{err: tt.err}
			resp, _ := newTestHandler(stub).Handle(context.Background(), testToken,
				callToolBody(t, ToolComplete, map[string]any{"prompt": "hello"}))

			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			require.NotNil(t, resp.Error.Data)
			assert.Equal(t, tt.wantKind, resp.Error.Data.Kind)
			// the failure kind arrives unchanged, no handler-level retry
			assert.Equal(t, int64(1), stub.calls.Load())
		})
	}
}

func TestHandleGenerateTicket(t *testing.T) {
	stub := &stubCompleter{}
	h := newTestHandler(stub)

	first := decodeCallResult(t, mustHandle(t, h, callToolBody(t, ToolGenerateTicket, nil)))
	second := decodeCallResult(t, mustHandle(t, h, callToolBody(t, ToolGenerateTicket, nil)))

	require.Len(t, first.Content, 1)
	assert.Contains(t, first.Content[0].Text, "Ticket generated: ID: ")
	// ids are independent draws, not a shared counter
	assert.NotEqual(t, first.Content[0].Text, second.Content[0].Text)
	assert.Equal(t, int64(0), stub.calls.Load())
}

func mustHandle(t *testing.T, h *Handler, body []byte) Response {
	t.Helper()
	resp, _ := h.Handle(context.Background(), testToken, body)
	return resp
}

func TestHandlerReuseKeepsNoAuthState(t *testing.T) {
	stub := &stubCompleter{result: &upstream.CompletionResult{Text: "first response"}}
	h := newTestHandler(stub)

	resp, _ := h.Handle(context.Background(), testToken, callToolBody(t, ToolComplete, map[string]any{"prompt": "first"}))
	require.Nil(t, resp.Error)
	assert.Equal(t, int64(1), stub.calls.Load())

	// same handler instance, credential omitted: no memoized authorization
	resp, _ = h.Handle(context.Background(), "", callToolBody(t, ToolComplete, map[string]any{"prompt": "second"}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, shared.KindUnauthorized, resp.Error.Data.Kind)
	assert.Equal(t, int64(1), stub.calls.Load())
}

func TestHandlerReuseKeepsNoRequestContent(t *testing.T) {
	stub := &stubCompleter{result: &upstream.CompletionResult{Text: "ok"}}
	h := newTestHandler(stub)

	for i := 0; i < 3; i++ {
		prompt := fmt.Sprintf("prompt-%d", i)
		resp, _ := h.Handle(context.Background(), testToken, callToolBody(t, ToolComplete, map[string]any{"prompt": prompt}))
		require.Nil(t, resp.Error)
		// each call sees only its own content
		assert.Equal(t, prompt, stub.lastReq.Prompt)
	}
}

func TestHandleEchoesRequestID(t *testing.T) {
	stub := &stubCompleter{}
	resp, _ := newTestHandler(stub).Handle(context.Background(), testToken, rpcBody(t, "req-42", "tools/list", nil))
	assert.Equal(t, "req-42", resp.ID)
	assert.Equal(t, JSONRPCVersion, resp.JSONRPC)
}
