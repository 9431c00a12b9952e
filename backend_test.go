package vesync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// handlerFunc answers one request to the fake backend. It returns a value to
// encode as JSON, a statusReply or a rawReply.
type handlerFunc func(r *http.Request, body map[string]any) any

// statusReply makes the fake backend answer with a bare HTTP status.
type statusReply int

// rawReply makes the fake backend write the string verbatim.
type rawReply string

func okReply(result any) map[string]any {
	return map[string]any{"code": 0, "msg": "request success", "result": result}
}

func codeReply(code int) map[string]any {
	return map[string]any{"code": code, "msg": "error"}
}

type recordedRequest struct {
	method string
	path   string
	header http.Header
	body   map[string]any
}

// fakeBackend is one region of the VeSync API.
type fakeBackend struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]handlerFunc
	requests []recordedRequest
	tokens   int

	delay    time.Duration
	inFlight int32
	overlap  atomic.Bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{handlers: map[string]handlerFunc{}}
	b.handlers[pathAuthByPassword] = func(r *http.Request, body map[string]any) any {
		return okReply(map[string]any{"authorizeCode": "auth-code", "bizToken": "biz-token"})
	}
	b.handlers[pathLoginByCode] = func(r *http.Request, body map[string]any) any {
		return okReply(map[string]any{"token": b.nextToken(), "accountID": "account-1", "countryCode": "US"})
	}
	b.handlers[pathLegacyLogin] = func(r *http.Request, body map[string]any) any {
		return okReply(map[string]any{"token": b.nextToken(), "accountID": "account-legacy"})
	}
	b.handlers[pathDevices] = func(r *http.Request, body map[string]any) any {
		return okReply(map[string]any{"total": 0, "list": []any{}})
	}
	b.handlers[pathBypass] = func(r *http.Request, body map[string]any) any {
		return okReply(map[string]any{"code": 0, "result": map[string]any{"enabled": true}})
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) nextToken() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens++
	return fmt.Sprintf("token-%d", b.tokens)
}

func (b *fakeBackend) handle(path string, h handlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[path] = h
}

func (b *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	if atomic.AddInt32(&b.inFlight, 1) > 1 {
		b.overlap.Store(true)
	}
	defer atomic.AddInt32(&b.inFlight, -1)

	data, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(data, &body)

	b.mu.Lock()
	b.requests = append(b.requests, recordedRequest{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: body})
	h := b.handlers[r.URL.Path]
	delay := b.delay
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if h == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch reply := h(r, body).(type) {
	case statusReply:
		w.WriteHeader(int(reply))
	case rawReply:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	default:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}
}

func (b *fakeBackend) setDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

// sequence answers with replies in order, repeating the last one.
func sequence(replies ...any) handlerFunc {
	var mu sync.Mutex
	n := 0
	return func(r *http.Request, body map[string]any) any {
		mu.Lock()
		defer mu.Unlock()
		reply := replies[min(n, len(replies)-1)]
		n++
		return reply
	}
}

// calls returns how many requests hit path.
func (b *fakeBackend) calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if r.path == path {
			n++
		}
	}
	return n
}

// total returns how many requests the backend received.
func (b *fakeBackend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// last returns the most recent request to path.
func (b *fakeBackend) last(path string) (recordedRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if b.requests[i].path == path {
			return b.requests[i], true
		}
	}
	return recordedRequest{}, false
}

// fastRetry keeps retry tests quick while preserving the doubling schedule.
func fastRetry() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
	}
}

// newTestClient returns a client pointed at the two fake regions with
// pacing and the refresh timer disabled.
func newTestClient(t *testing.T, global, eu *fakeBackend, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithEndpoints(global.server.URL, eu.server.URL),
		WithCountryCode("US"),
		WithPacing(0, 0),
		WithRetry(fastRetry()),
		WithRefreshInterval(0),
	}
	c, err := NewClient("user@example.com", "hunter2", append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

// startedClient returns a test client with an established session.
func startedClient(t *testing.T, global, eu *fakeBackend, opts ...Option) *Client {
	t.Helper()
	c := newTestClient(t, global, eu, opts...)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(c.Stop)
	return c
}

// testDevice is a bypass target for executor tests.
func testDevice() *DeviceRecord {
	return &DeviceRecord{
		Kind:         KindPurifier,
		Name:         "Bedroom",
		UUID:         "uuid-1",
		CID:          "cid-1",
		Region:       "US",
		ConfigModule: "WiFiBTOnboardingNotify_AirPurifier_Core300S_US",
		Model:        "Core300S",
		Capabilities: Capabilities{SpeedLevels: 3, HasAutoMode: true},
	}
}
