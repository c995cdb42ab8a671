// Package config holds the process-wide configuration snapshot. It is built
// once in main, validated, and passed by value into every component that
// needs it. Nothing mutates it after startup.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	// Serving
	ListenAddr    string
	MetricsAPIKey string
	Debug         bool

	// Credential expected from callers
	GatewayToken string

	// Hosted model API
	UpstreamEndpoint string
	UpstreamAPIKey   string
	UpstreamModel    string
	APIVersion       string
	UpstreamTimeout  time.Duration

	// Retry policy for transient upstream failures
	RetryAttempts int
	RetryBackoff  time.Duration
}

// Validate fails fast on anything the gateway cannot serve without.
func (c Config) Validate() error {
	if c.UpstreamEndpoint == "" {
		return errors.New("upstream endpoint is required")
	}
	u, err := url.Parse(c.UpstreamEndpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream endpoint %q is not a valid URL", c.UpstreamEndpoint)
	}
	if c.UpstreamAPIKey == "" {
		return errors.New("upstream api key is required")
	}
	if c.UpstreamModel == "" {
		return errors.New("upstream model deployment is required")
	}
	if c.GatewayToken == "" {
		return errors.New("gateway bearer token is required")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %v", c.UpstreamTimeout)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.RetryAttempts)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff must be non-negative, got %v", c.RetryBackoff)
	}
	return nil
}
