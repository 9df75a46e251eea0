// Package marketplace implements Source Adapters for Indonesian marketplaces.
// Pages are rendered by a crawling API (JavaScript-heavy pages need a multi-second
// render wait) and parsed with golang.org/x/net/html.
package marketplace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pricelens/backend/internal/domain"
)

// Fetcher returns the rendered HTML of a page
type Fetcher interface {
	FetchPage(ctx context.Context, pageURL string) ([]byte, error)
}

// ClientConfig holds crawling API settings
type ClientConfig struct {
	Token             string
	BaseURL           string
	PageWait          time.Duration
	AjaxWait          bool
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
}

// Client handles communication with the crawling API
type Client struct {
	httpClient  *http.Client
	token       string
	baseURL     string
	pageWait    time.Duration
	ajaxWait    bool
	maxRetries  int
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	logger      *zap.Logger
}

// NewClient creates a new crawling API client
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		// render wait plus transfer
		timeout = 60 * time.Second
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		token:       cfg.Token,
		baseURL:     cfg.BaseURL,
		pageWait:    cfg.PageWait,
		ajaxWait:    cfg.AjaxWait,
		maxRetries:  maxRetries,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
		backoff:     exponentialBackoff,
		logger:      logger,
	}
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// buildRequestURL wraps the target page in a crawling API request
func (c *Client) buildRequestURL(pageURL string) string {
	params := url.Values{}
	params.Add("token", c.token)
	params.Add("url", pageURL)
	if c.ajaxWait {
		params.Add("ajax_wait", "true")
	}
	if c.pageWait > 0 {
		params.Add("page_wait", strconv.FormatInt(c.pageWait.Milliseconds(), 10))
	}
	return fmt.Sprintf("%s/?%s", c.baseURL, params.Encode())
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "PriceLens/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCrawlerFailure, err)
	}
	return resp, nil
}

// FetchPage renders pageURL through the crawling API and returns its HTML.
// Transient failures (network, 5xx, 429, failed crawl) are retried with backoff.
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	reqURL := c.buildRequestURL(pageURL)

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, c.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("crawler request error",
				zap.String("url", pageURL),
				zap.Int("attempt", attempt),
				zap.Error(err))
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		pcStatus := resp.Header.Get("pc_status")
		switch {
		case resp.StatusCode == http.StatusOK && (pcStatus == "" || pcStatus == "200") && readErr == nil:
			c.logger.Debug("page fetched",
				zap.String("url", pageURL),
				zap.Int("bytes", len(body)),
				zap.Int("attempt", attempt))
			return body, nil
		case readErr != nil:
			lastErr = fmt.Errorf("%w: reading body: %v", domain.ErrCrawlerFailure, readErr)
		case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
			c.logger.Warn("crawler rejected request",
				zap.String("url", pageURL),
				zap.Int("status", resp.StatusCode))
			return nil, fmt.Errorf("%w: status %d", domain.ErrCrawlerFailure, resp.StatusCode)
		default:
			lastErr = fmt.Errorf("%w: status %d, pc_status %q", domain.ErrCrawlerFailure, resp.StatusCode, pcStatus)
		}

		c.logger.Warn("crawler attempt failed",
			zap.String("url", pageURL),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}

	c.logger.Warn("all crawler retries failed", zap.String("url", pageURL))
	return nil, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
