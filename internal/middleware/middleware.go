// Package middleware wires request tracking and panic recovery around the
// serving loop.
package middleware

import (
	"fmt"
	"time"

	"agent-gateway/internal/ctx"
	"agent-gateway/internal/metrics"
	"agent-gateway/internal/shared"

	"github.com/aidarkhanov/nanoid"
	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func NewTrackMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID, _ := nanoid.Generate(shared.RequestIDAlphabet, shared.RequestIDLength)
			logger := log.With(
				"request_id", "req_"+reqID,
			)

			start := time.Now()
			cc := &ctx.Context{
				Context: c,
				Log:     logger,
				Reqid:   reqID,
				LogValues: &ctx.ContextLogValues{
					RequestID: reqID,
					StartTime: start,
					Path:      c.Path(),
				},
			}
			err := next(cc)
			duration := time.Since(start)

			cc.LogValues.StatusCode = cc.Response().Status
			cc.LogValues.RequestDuration = duration
			switch cc.LogValues.LogLevel {
			case "ERROR":
				cc.Log.Errorw("end_of_request", "values", cc.LogValues)
			default:
				cc.Log.Infow("end_of_request", "values", cc.LogValues)
			}
			metrics.ResponseCodes.WithLabelValues(cc.Path(), fmt.Sprintf("%d", cc.Response().Status)).Inc()
			return err
		}
	}
}

func NewRecoverMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return emw.RecoverWithConfig(emw.RecoverConfig{
		StackSize: 1 << 10, // 1 KB
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			defer func() {
				_ = log.Sync()
			}()
			log.Errorw("Api Panic", "error", err.Error())
			return c.String(500, "internal server error")
		},
	})
}
