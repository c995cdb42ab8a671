package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"agent-gateway/internal/config"
	"agent-gateway/internal/middleware"
	"agent-gateway/internal/routers"
	"agent-gateway/internal/shared"
	"agent-gateway/internal/upstream"

	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/manifold-inc/manifold-sdk/lib/eflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Flags / ENV Variables
	listenAddr := flag.String("listen-addr", shared.DefaultListenAddr, "Address to serve on")
	gatewayToken := flag.String("gateway-token", "", "Bearer token expected from callers")
	metricsAPIKey := flag.String("metrics-api-key", "", "Metrics api key")
	debug := flag.Bool("debug", false, "Debug enabled")

	upstreamEndpoint := flag.String("upstream-endpoint", "", "Hosted model endpoint URL")
	upstreamAPIKey := flag.String("upstream-api-key", "", "Hosted model API key")
	upstreamModel := flag.String("upstream-model", "", "Model deployment name")
	apiVersion := flag.String("api-version", shared.DefaultAPIVersion, "Hosted model API version")
	upstreamTimeout := flag.Duration("upstream-timeout", shared.DefaultUpstreamTimeout, "Upstream request timeout")
	retryAttempts := flag.Int("retry-attempts", shared.DefaultRetryAttempts, "Total upstream attempts, 1 disables retry")
	retryBackoff := flag.Duration("retry-backoff", shared.DefaultRetryBackoff, "Initial backoff between upstream attempts")

	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	cfg := config.Config{
		ListenAddr:       *listenAddr,
		MetricsAPIKey:    *metricsAPIKey,
		Debug:            *debug,
		GatewayToken:     *gatewayToken,
		UpstreamEndpoint: *upstreamEndpoint,
		UpstreamAPIKey:   *upstreamAPIKey,
		UpstreamModel:    *upstreamModel,
		APIVersion:       *apiVersion,
		UpstreamTimeout:  *upstreamTimeout,
		RetryAttempts:    *retryAttempts,
		RetryBackoff:     *retryBackoff,
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid configuration: %s", err))
	}

	var logger *zap.Logger
	if !cfg.Debug {
		logger, err = zap.NewProduction()
		if err != nil {
			panic("Failed init logger")
		}
	}
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			panic("Failed init logger")
		}
	}
	log := logger.Sugar()

	e := echo.New()
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			apiKey, err := shared.ExtractBearerToken(c)
			if err != nil {
				return c.String(401, "Missing or invalid API key")
			}

			if cfg.MetricsAPIKey == "" || apiKey != cfg.MetricsAPIKey {
				return c.String(401, "Unauthorized API key")
			}
			return next(c)
		}
	})
	base := e.Group("")
	base.Use(emw.CORS())
	base.Use(middleware.NewRecoverMiddleware(log))
	base.Use(middleware.NewTrackMiddleware(log))

	model := upstream.NewClient(cfg, log)

	// Register routes
	err = routers.RegisterAgentRoutes(base, cfg, model, log)
	if err != nil {
		panic(err)
	}

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shared.DefaultShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
