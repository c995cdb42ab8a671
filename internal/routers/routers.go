// Package routers
package routers

import (
	"io"

	"agent-gateway/internal/ctx"
)

func readRequestBody(c *ctx.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		c.Log.Errorw("Failed to read request body", "error", err.Error())
		return nil, err
	}
	return body, nil
}
