// Package upstream wraps the single outbound call to the hosted
// chat-completions API. One invocation is one network round trip; the
// client carries configuration only, never request state.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agent-gateway/internal/config"
	"agent-gateway/internal/metrics"
	"agent-gateway/internal/shared"

	"go.uber.org/zap"
)

type CompletionRequest struct {
	Prompt      string
	Temperature *float64
	MaxTokens   *int
}

type CompletionResult struct {
	Text  string
	Model string
	Usage *shared.Usage
}

type Client struct {
	url     string
	apiKey  string
	timeout time.Duration
	retry   RetryConfig
	http    *http.Client
	log     *zap.SugaredLogger
}

func NewClient(cfg config.Config, log *zap.SugaredLogger) *Client {
	// Azure convention: deployment in the path, api-version in the query,
	// key in the api-key header.
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimSuffix(cfg.UpstreamEndpoint, "/"),
		url.PathEscape(cfg.UpstreamModel),
		url.QueryEscape(cfg.APIVersion),
	)
	return &Client{
		url:     endpoint,
		apiKey:  cfg.UpstreamAPIKey,
		timeout: cfg.UpstreamTimeout,
		retry: RetryConfig{
			Attempts:       cfg.RetryAttempts,
			InitialBackoff: cfg.RetryBackoff,
			MaxBackoff:     shared.MaxRetryBackoff,
			BackoffFactor:  shared.RetryBackoffFactor,
		},
		http: &http.Client{},
		log:  log,
	}
}

// Complete performs the outbound call, retrying only transient failures up
// to the configured attempt count. Rejections are never retried. Context
// cancellation stops the loop between attempts.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	maxTokens := req.MaxTokens
	if maxTokens == nil {
		def := shared.DefaultMaxTokens
		maxTokens = &def
	}
	body, err := json.Marshal(shared.ChatCompletionBody{
		Messages:    []shared.ChatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, errors.Join(shared.ErrInvalidRequest, err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.Attempts; attempt++ {
		if attempt > 0 {
			metrics.UpstreamRetries.Inc()
			if err := sleepBackoff(ctx, c.retry.BackoffFor(attempt)); err != nil {
				return nil, errors.Join(shared.ErrUpstreamFailedReq, err)
			}
		}

		out, err := c.doOnce(ctx, body)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !Retryable(err) {
			return nil, err
		}
		c.log.Warnw("Transient upstream failure", "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, body []byte) (*CompletionResult, error) {
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	r, err := http.NewRequestWithContext(rctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Join(shared.ErrUpstreamFailedReq, err)
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("api-key", c.apiKey)

	res, err := c.http.Do(r)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		if errors.Is(err, context.DeadlineExceeded) || rctx.Err() == context.DeadlineExceeded {
			return nil, errors.Join(shared.ErrUpstreamTimeout, err)
		}
		return nil, errors.Join(shared.ErrUpstreamFailedReq, err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			c.log.Warnw("Failed to close response body", "error", closeErr)
		}
	}()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		return nil, errors.Join(shared.ErrUpstreamFailedReq, err)
	}

	switch {
	case res.StatusCode >= 500:
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeServerError).Inc()
		return nil, errors.Join(shared.ErrUpstreamServer,
			fmt.Errorf("upstream status %d: %s", res.StatusCode, upstreamMessage(resBody)))
	case res.StatusCode >= 400:
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, errors.Join(shared.ErrUpstreamRejected,
			fmt.Errorf("upstream status %d: %s", res.StatusCode, upstreamMessage(resBody)))
	case res.StatusCode != http.StatusOK:
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return nil, errors.Join(shared.ErrUpstreamMalformed,
			fmt.Errorf("unexpected upstream status %d", res.StatusCode))
	}

	var parsed shared.ChatCompletionResponse
	if err := json.Unmarshal(resBody, &parsed); err != nil {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return nil, errors.Join(shared.ErrUpstreamMalformed, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message == nil {
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return nil, errors.Join(shared.ErrUpstreamMalformed, errors.New("response has no choices"))
	}

	metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeOK).Inc()
	if parsed.Usage != nil {
		metrics.PromptTokens.Add(float64(parsed.Usage.PromptTokens))
		metrics.CompletionTokens.Add(float64(parsed.Usage.CompletionTokens))
	}

	return &CompletionResult{
		Text:  parsed.Choices[0].Message.Content,
		Model: parsed.Model,
		Usage: parsed.Usage,
	}, nil
}

// upstreamMessage pulls the error message out of an OpenAI-style error
// body. Best effort, bodies vary across providers.
func upstreamMessage(body []byte) string {
	var parsed shared.UpstreamErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max]
	}
	if s == "" {
		return "no response body"
	}
	return s
}
