package mcp

// Tool describes one callable tool in the catalog. The catalog is static:
// the gateway registers nothing at runtime and forgets nothing between
// requests.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// TextContent is a single text block inside a tools/call result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type CallToolResult struct {
	Content []TextContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

const (
	ToolComplete       = "complete"
	ToolGenerateTicket = "generate_ticket"
)

func toolCatalog() []Tool {
	return []Tool{
		{
			Name:        ToolComplete,
			Description: "Generate a completion for a prompt using the hosted model",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"prompt": map[string]any{
						"type":        "string",
						"description": "Prompt to send to the model",
					},
					"temperature": map[string]any{
						"type":        "number",
						"description": "Sampling temperature",
					},
					"max_tokens": map[string]any{
						"type":        "integer",
						"description": "Maximum tokens to generate",
					},
				},
				"required": []string{"prompt"},
			},
		},
		{
			Name:        ToolGenerateTicket,
			Description: "Generate a ticket for the customer",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
	}
}
