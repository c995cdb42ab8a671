package routers

import (
	"net/http"
	"time"

	"agent-gateway/internal/auth"
	"agent-gateway/internal/config"
	"agent-gateway/internal/ctx"
	"agent-gateway/internal/mcp"
	"agent-gateway/internal/metrics"
	"agent-gateway/internal/shared"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AgentRouter struct {
	h *mcp.Handler
}

func RegisterAgentRoutes(e *echo.Group, cfg config.Config, model mcp.Completer, log *zap.SugaredLogger) error {
	guard := auth.NewGuard(cfg.GatewayToken)
	ar := AgentRouter{h: mcp.NewHandler(guard, model, log)}
	e.POST("/agent", ar.Agent)
	return nil
}

// Agent serves one MCP request per connection. Everything the handler needs
// comes from this request; nothing is kept once the response is written.
func (ar *AgentRouter) Agent(cc echo.Context) error {
	c := cc.(*ctx.Context)

	body, err := readRequestBody(c)
	if err != nil {
		c.LogValues.AddError(err)
		return c.JSON(http.StatusBadRequest, mcp.NewParseError(nil))
	}

	// An absent or malformed header becomes an empty token, which the guard
	// rejects. Extraction detail goes to the log chain only.
	token, err := shared.ExtractBearerToken(c)
	if err != nil {
		c.LogValues.AddError(err)
	}

	resp, meta := ar.h.Handle(c.Request().Context(), token, body)
	c.LogValues.RPCMethod = meta.Method
	c.LogValues.Tool = meta.Tool
	if meta.Method != "" {
		metrics.RequestDuration.WithLabelValues(meta.Method).Observe(time.Since(c.LogValues.StartTime).Seconds())
	}

	status := http.StatusOK
	if resp.Error != nil {
		c.LogValues.AddError(resp.Error)
		if resp.Error.Data != nil {
			switch resp.Error.Data.Kind {
			case shared.KindUnauthorized:
				status = http.StatusUnauthorized
			case shared.KindUpstreamUnavailable, shared.KindUpstreamServerError,
				shared.KindUpstreamMalformedResponse, shared.KindResponseMappingError:
				c.LogValues.LogLevel = "ERROR"
			}
		}
	}
	return c.JSON(status, resp)
}
