package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/timberline-supply/storefront/internal/metrics"
	"github.com/timberline-supply/storefront/internal/rate"
	"github.com/timberline-supply/storefront/pkg/model"
)

const apiPrefix = "/wp-json/wc/v3"

// Config holds the connection settings for the WooCommerce REST API.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	OrderTimeout   time.Duration
	ProbeTimeout   time.Duration
}

// Client wraps WooCommerce REST calls with rate limiting, bounded retry and
// health tracking. All methods are safe for concurrent use.
type Client struct {
	logger  *zap.Logger
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	policy  BackoffPolicy
	tracker *HealthTracker
	sleep   func(time.Duration)
}

// NewClient constructs a gateway client. limiter may be nil to disable rate
// limiting (tests).
func NewClient(logger *zap.Logger, cfg Config, limiter *rate.Limiter, policy BackoffPolicy, tracker *HealthTracker) *Client {
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 20 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 8 * time.Second
	}
	if tracker == nil {
		tracker = NewHealthTracker()
	}
	return &Client{
		logger:  logger,
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.OrderTimeout},
		limiter: limiter,
		policy:  policy,
		tracker: tracker,
		sleep:   time.Sleep,
	}
}

// Tracker exposes the health tracker for the /health surface.
func (c *Client) Tracker() *HealthTracker { return c.tracker }

// CreateOrder creates a pending order on WooCommerce.
// POST /wp-json/wc/v3/orders
func (c *Client) CreateOrder(ctx context.Context, payload *OrderPayload) (*model.RemoteOrder, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order payload: %w", err)
	}
	var order model.RemoteOrder
	if err := c.execute(ctx, http.MethodPost, "/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListProducts fetches a catalog page. The params map is passed through as
// query parameters and the payload is returned undecoded for caching.
func (c *Client) ListProducts(ctx context.Context, params map[string]string) (json.RawMessage, error) {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	path := "/products"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var raw json.RawMessage
	if err := c.execute(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// GetProductBySlug fetches a single product by its slug.
func (c *Client) GetProductBySlug(ctx context.Context, slug string) (json.RawMessage, error) {
	var raw json.RawMessage
	path := "/products?slug=" + url.QueryEscape(slug)
	if err := c.execute(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Ping performs the shallow health probe: one lightweight read with a short
// budget. Any response from the API counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/system_status", nil)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.tracker.Record(time.Since(start), true)
		return fmt.Errorf("woocommerce probe failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		c.tracker.Record(time.Since(start), true)
		return fmt.Errorf("woocommerce probe returned %d", resp.StatusCode)
	}
	c.tracker.Record(time.Since(start), false)
	return nil
}

// execute runs one call with the retry schedule. Retryable outcomes are
// transport errors and the status codes in retryableStatuses; any other
// non-2xx aborts without consuming remaining attempts.
func (c *Client) execute(ctx context.Context, method, path string, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var lastErr error
	var lastStatus int
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if delay := c.policy.Delay(attempt); delay > 0 {
			c.sleep(delay)
		}

		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return err
		}

		start := time.Now()
		resp, err := c.http.Do(req)
		elapsed := time.Since(start)

		if err != nil {
			c.tracker.Record(elapsed, true)
			metrics.IncWooRequest(path, "network_error")
			c.logger.Warn("woo.http_failed",
				zap.String("path", path),
				zap.Error(err),
				zap.Int("attempt", attempt))
			lastErr = err
			lastStatus = 0
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		metrics.IncWooRequest(path, strconv.Itoa(resp.StatusCode))
		metrics.ObserveDuration(metrics.WooRequestDuration, start, path)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.tracker.Record(elapsed, false)
			if out != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, out); err != nil {
					c.logger.Warn("woo.decode_failed",
						zap.Error(err),
						zap.String("path", path))
					return fmt.Errorf("decode failed: %w", err)
				}
			}
			c.logger.Debug("woo.http_success",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.Duration("elapsed", elapsed))
			return nil
		}

		c.tracker.Record(elapsed, true)
		lastStatus = resp.StatusCode
		lastErr = c.statusError(resp.StatusCode, respBody)

		if !RetryableStatus(resp.StatusCode) {
			c.logger.Warn("woo.permanent_error",
				zap.Int("status", resp.StatusCode),
				zap.String("path", path),
				zap.Int("attempt", attempt))
			return &Error{
				Endpoint:  path,
				Status:    resp.StatusCode,
				Retryable: false,
				Attempts:  attempt,
				Err:       lastErr,
			}
		}

		c.logger.Warn("woo.retryable_error",
			zap.Int("status", resp.StatusCode),
			zap.String("path", path),
			zap.Duration("latency", elapsed),
			zap.Int("attempt", attempt))
	}

	return &Error{
		Endpoint:  path,
		Status:    lastStatus,
		Retryable: true,
		Attempts:  c.policy.MaxAttempts,
		Err:       lastErr,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+apiPrefix+path, rd)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) statusError(status int, body []byte) error {
	var errResp wooErrorResponse
	_ = json.Unmarshal(body, &errResp)
	msg := errResp.Message
	if msg == "" {
		msg = errResp.Code
	}
	if msg == "" {
		msg = string(body)
	}
	return fmt.Errorf("woocommerce returned %d: %s", status, msg)
}
