package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/remo-imparato/matchmonkey/internal/shared"
	mocks "github.com/remo-imparato/matchmonkey/internal/testing"
)

func fastOpts(baseURL string) ServiceOpts {
	return ServiceOpts{
		BaseURL:     baseURL,
		MinInterval: time.Millisecond,
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		BackoffMax:  50 * time.Millisecond,
		Timeout:     time.Second,
	}
}

func TestGatewayCachesResponses(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	g := NewGateway(server.Client(), testLogger())
	g.Register("svc", fastOpts(server.URL))

	ctx := context.Background()

	a := url.Values{}
	a.Set("artist", "Daft Punk")
	a.Set("limit", "10")

	if _, err := g.Request(ctx, "svc", "", a); err != nil {
		t.Fatalf("first request error = %v", err)
	}

	// Same query with parameters set in a different order must hit the cache.
	b := url.Values{}
	b.Set("limit", "10")
	b.Set("artist", "Daft Punk")

	if _, err := g.Request(ctx, "svc", "", b); err != nil {
		t.Fatalf("second request error = %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls.Load())
	}

	// A differing parameter value must not be served from cache.
	c := url.Values{}
	c.Set("artist", "Justice")
	c.Set("limit", "10")

	if _, err := g.Request(ctx, "svc", "", c); err != nil {
		t.Fatalf("third request error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 upstream calls, got %d", calls.Load())
	}
}

func TestGatewayClearDropsCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	g := NewGateway(server.Client(), testLogger())
	g.Register("svc", fastOpts(server.URL))

	ctx := context.Background()
	params := url.Values{"q": {"x"}}

	g.Request(ctx, "svc", "", params)
	g.Clear()
	g.Request(ctx, "svc", "", params)

	if calls.Load() != 2 {
		t.Errorf("expected 2 upstream calls after Clear, got %d", calls.Load())
	}
	if g.CacheSize() != 1 {
		t.Errorf("expected 1 cached entry, got %d", g.CacheSize())
	}
}

func TestGatewayMinIntervalBetweenRequests(t *testing.T) {
	var mu sync.Mutex
	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	interval := 40 * time.Millisecond
	opts := fastOpts(server.URL)
	opts.MinInterval = interval

	g := NewGateway(server.Client(), testLogger())
	g.Register("svc", opts)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		params := url.Values{"i": {string(rune('a' + i))}}
		if _, err := g.Request(ctx, "svc", "", params); err != nil {
			t.Fatalf("request %d error = %v", i, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(stamps) != 3 {
		t.Fatalf("expected 3 upstream calls, got %d", len(stamps))
	}
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < interval-10*time.Millisecond {
			t.Errorf("requests %d and %d were %v apart, want at least %v", i-1, i, gap, interval)
		}
	}
}

func TestGatewayRateLimitExhaustion(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := NewGateway(server.Client(), testLogger())
	g.Register("svc", fastOpts(server.URL))

	_, err := g.Request(context.Background(), "svc", "", url.Values{"q": {"x"}})
	if !errors.Is(err, shared.ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
	if g.CacheSize() != 0 {
		t.Error("throttled responses must not be cached")
	}
}

func TestGatewayRecoversAfterThrottle(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	g := NewGateway(server.Client(), testLogger())
	g.Register("svc", fastOpts(server.URL))

	body, err := g.Request(context.Background(), "svc", "", url.Values{"q": {"x"}})
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body %q", body)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestGatewayClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	g := NewGateway(server.Client(), testLogger())
	g.Register("svc", fastOpts(server.URL))

	_, err := g.Request(context.Background(), "svc", "", nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("error = %v, want StatusError 404", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 attempt for a 404, got %d", calls.Load())
	}
}

func TestGatewayTransportErrorWrapped(t *testing.T) {
	rt := mocks.NewMockRoundTripper(nil, errors.New("connection reset"))
	g := NewGateway(&http.Client{Transport: rt}, testLogger())
	g.Register("svc", fastOpts("http://svc.invalid"))

	_, err := g.Request(context.Background(), "svc", "", url.Values{"q": {"x"}})
	if !errors.Is(err, shared.ErrAPIRequest) {
		t.Fatalf("error = %v, want ErrAPIRequest", err)
	}
	if g.CacheSize() != 0 {
		t.Error("failed requests must not be cached")
	}
}

func TestGatewayUnregisteredService(t *testing.T) {
	g := NewGateway(nil, testLogger())
	_, err := g.Request(context.Background(), "nope", "", nil)
	if !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("error = %v, want ErrServiceUnavailable", err)
	}
}
