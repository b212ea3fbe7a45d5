package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/catalog/internal/common/configtypes"
)

const (
	defaultWebhookTimeout = 5 * time.Second
	apiKeyHeader          = "X-API-Key"
)

// webhookPayload is the JSON body posted for each alert
type webhookPayload struct {
	Alert
	Environment string `json:"environment,omitempty"`
}

// WebhookSink posts alerts as JSON to an error-tracker style notify endpoint.
type WebhookSink struct {
	url         string
	apiKey      string
	environment string
	timeout     time.Duration
	client      *fasthttp.Client
	logger      *zap.Logger
}

func NewWebhookSink(cfg configtypes.AlertWebhookConfig, environment string, logger *zap.Logger) (*WebhookSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("alert webhook url is required")
	}

	timeout := cfg.Timeout.ToDuration()
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	return &WebhookSink{
		url:         cfg.URL,
		apiKey:      cfg.APIKey,
		environment: environment,
		timeout:     timeout,
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		logger: logger,
	}, nil
}

func (s *WebhookSink) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(webhookPayload{Alert: alert, Environment: s.environment})
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if s.apiKey != "" {
		req.Header.Set(apiKeyHeader, s.apiKey)
	}
	req.SetBody(body)

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	start := time.Now().UTC()
	if err := s.client.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("alert webhook request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return fmt.Errorf("alert webhook returned status %d: %s", status, string(resp.Body()))
	}

	s.logger.Debug("Alert delivered to webhook",
		zap.String("url", s.url),
		zap.Int("status_code", status),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *WebhookSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
