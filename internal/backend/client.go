// Package backend provides a client for the growth QR REST backend, which
// owns all canonical business data. Every call goes through the shared
// circuit breaker and retry policy.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("backend")

// Client wraps HTTP calls to the backend API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	bh         *resilience.Bulkhead
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewClient creates a backend client. When cfg.MaxConcurrency is set a
// bulkhead caps in-flight calls to the backend.
func NewClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	var bh *resilience.Bulkhead
	if cfg.MaxConcurrency > 0 {
		bh = resilience.NewBulkhead(cfg.MaxConcurrency)
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		bh:         bh,
		cfg:        cfg,
		logger:     logger,
	}
}

// doJSON executes an authenticated request and returns the response body
// and status code. Non-2xx statuses are returned to the caller rather
// than converted to errors here, so each endpoint can map 404-class
// responses onto its own domain error.
func (c *Client) doJSON(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	url := fmt.Sprintf("%s%s", c.baseURL, path)

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encode %s %s payload: %w", method, path, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		c.logger.Error("backend: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, 0, err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("backend: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode >= 500 {
		c.logger.Warn("backend: server error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return body, resp.StatusCode, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Debug("backend: request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return body, resp.StatusCode, nil
}

// execute runs fn under the bulkhead and circuit breaker with retry and
// backoff. Breaker and deadline errors are translated to their domain
// types so handlers can map them to 503/504 instead of a generic 502.
func (c *Client) execute(ctx context.Context, fn func() error) error {
	if c.bh != nil {
		if err := c.bh.Acquire(ctx); err != nil {
			return c.translateErr(err)
		}
		defer c.bh.Release()
	}
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
	return c.translateErr(err)
}

func (c *Client) translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: c.cb.Name()}
	}
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return &domain.ErrTimeout{Operation: c.cb.Name()}
	}
	return err
}
