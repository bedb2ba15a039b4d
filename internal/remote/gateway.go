package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/remo-imparato/matchmonkey/internal/shared"
)

// ServiceOpts contains throttling and connection settings for one registered service.
type ServiceOpts struct {
	BaseURL     string
	MinInterval time.Duration // minimum spacing between requests
	MaxAttempts int           // bounded retry count for throttled/transient failures
	BackoffBase time.Duration // initial backoff delay after a throttling signal
	BackoffMax  time.Duration // cap on the exponential backoff delay
	Timeout     time.Duration // per-request timeout
}

func (o ServiceOpts) withDefaults() ServiceOpts {
	if o.MinInterval <= 0 {
		o.MinInterval = time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

// StatusError reports a non-success HTTP status from a remote service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Gateway funnels all remote requests through a per-service rate limiter and a
// session-scoped response cache. It performs no interpretation of response
// bodies beyond status handling; clients own the decoding.
type Gateway struct {
	httpClient *http.Client
	logger     *log.Logger

	cache *responseCache

	mu       sync.Mutex
	services map[string]ServiceOpts
	limiters map[string]*limiterState
}

// NewGateway creates a Gateway using the given HTTP client, which defaults to
// [http.DefaultClient].
func NewGateway(client *http.Client, logger *log.Logger) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Gateway{
		httpClient: client,
		logger:     logger,
		cache:      newResponseCache(),
		services:   make(map[string]ServiceOpts),
		limiters:   make(map[string]*limiterState),
	}
}

// Register configures throttling for a service. Must be called before the
// first Request for that service.
func (g *Gateway) Register(serviceID string, opts ServiceOpts) {
	opts = opts.withDefaults()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.services[serviceID] = opts
	g.limiters[serviceID] = newLimiterState(opts.MinInterval)
}

// Clear drops cached responses, either for the given services or for all
// services when none are named. Called by the orchestrator when a run ends.
func (g *Gateway) Clear(serviceIDs ...string) {
	g.cache.clear(serviceIDs...)
}

// CacheSize returns the number of cached responses.
func (g *Gateway) CacheSize() int {
	return g.cache.len()
}

func (g *Gateway) service(serviceID string) (ServiceOpts, *limiterState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	opts, ok := g.services[serviceID]
	if !ok {
		return ServiceOpts{}, nil, fmt.Errorf("%w: service %q not registered", shared.ErrServiceUnavailable, serviceID)
	}
	return opts, g.limiters[serviceID], nil
}

// Request issues a GET to endpoint under the service's base URL with the given
// query parameters. Responses are served from the session cache when present;
// otherwise the call waits out any backoff window and the minimum
// inter-request interval, retrying throttled or transient failures up to the
// service's bounded attempt count.
func (g *Gateway) Request(ctx context.Context, serviceID, endpoint string, params url.Values) ([]byte, error) {
	opts, limiter, err := g.service(serviceID)
	if err != nil {
		return nil, err
	}

	key := CacheKey(serviceID, endpoint, params)
	if body, ok := g.cache.get(key); ok {
		g.logger.Debug("cache hit", "service", serviceID, "endpoint", endpoint)
		return body, nil
	}

	requestURL := strings.TrimRight(opts.BaseURL, "/") + endpoint
	if encoded := params.Encode(); encoded != "" {
		requestURL += "?" + encoded
	}

	var lastErr error
	throttledLast := false

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		if err := limiter.wait(ctx); err != nil {
			return nil, err
		}

		body, status, err := g.do(ctx, requestURL, opts.Timeout)
		limiter.requested()

		if err != nil {
			// Transient network failure: back off and retry.
			delay := limiter.throttled(opts.BackoffBase, opts.BackoffMax)
			g.logger.Warn("request failed", "service", serviceID, "attempt", attempt+1, "retry_in", delay, "err", err)
			lastErr = err
			throttledLast = false
			continue
		}

		if status == http.StatusTooManyRequests {
			delay := limiter.throttled(opts.BackoffBase, opts.BackoffMax)
			g.logger.Warn("throttled by service", "service", serviceID, "attempt", attempt+1, "retry_in", delay)
			lastErr = &StatusError{StatusCode: status}
			throttledLast = true
			continue
		}

		if status >= 500 {
			delay := limiter.throttled(opts.BackoffBase, opts.BackoffMax)
			g.logger.Warn("server error", "service", serviceID, "status", status, "retry_in", delay)
			lastErr = &StatusError{StatusCode: status, Body: string(body)}
			throttledLast = false
			continue
		}

		if status < 200 || status >= 300 {
			return nil, &StatusError{StatusCode: status, Body: string(body)}
		}

		limiter.succeeded()
		g.cache.put(key, body)
		return body, nil
	}

	if throttledLast {
		return nil, fmt.Errorf("%w: %s after %d attempts", shared.ErrRateLimited, serviceID, opts.MaxAttempts)
	}
	return nil, fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, serviceID, lastErr)
}

func (g *Gateway) do(ctx context.Context, requestURL string, timeout time.Duration) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	return body, resp.StatusCode, nil
}
