package vesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultCountryCode is used when no country is configured.
	DefaultCountryCode = "US"

	// DefaultTimeZone is sent with every request.
	DefaultTimeZone = "America/New_York"

	// DefaultAuthTimeout bounds a single login request.
	DefaultAuthTimeout = 15 * time.Second

	// DefaultTimeout bounds a single authenticated request.
	DefaultTimeout = 30 * time.Second

	// DefaultRefreshInterval is how often an active session logs in again.
	DefaultRefreshInterval = 55 * time.Minute

	// DefaultDevicePacing is the pause after a successful single-device call.
	DefaultDevicePacing = 500 * time.Millisecond

	// DefaultListPacing is the pause after a successful device list.
	DefaultListPacing = 1500 * time.Millisecond

	userAgent  = "okhttp/3.12.1"
	appVersion = "5.7.16"
	phoneBrand = "SM N9005"
)

// Client is a VeSync API client. It owns one session, one request lock and
// one refresh timer; separate clients are fully independent.
type Client struct {
	httpClient      *http.Client
	endpoints       endpoints
	country         string
	timeZone        string
	retryConfig     *RetryConfig
	registry        DeviceRegistry
	store           SessionStore
	logger          zerolog.Logger
	authTimeout     time.Duration
	requestTimeout  time.Duration
	refreshInterval time.Duration
	devicePacing    time.Duration
	listPacing      time.Duration
	now             func() time.Time
	notify          func(err error, next time.Duration)
	cache           Cache
	deviceListTTL   time.Duration

	// sem serializes every exchange with the backend.
	sem     *semaphore.Weighted
	auth    *sessionManager
	refresh refresher
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithCountryCode sets the account's country, which selects the region the
// first login attempt goes to.
func WithCountryCode(country string) Option {
	return func(c *Client) {
		c.country = strings.ToUpper(strings.TrimSpace(country))
	}
}

// WithTimeZone sets the IANA time zone reported to the backend.
func WithTimeZone(tz string) Option {
	return func(c *Client) {
		c.timeZone = tz
	}
}

// WithEndpoints overrides the global and EU base URLs.
func WithEndpoints(global, eu string) Option {
	return func(c *Client) {
		c.endpoints = endpoints{global: strings.TrimRight(global, "/"), eu: strings.TrimRight(eu, "/")}
	}
}

// WithSessionStore persists sessions to store. Without a store every process
// start performs a fresh login.
func WithSessionStore(store SessionStore) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithSessionFile persists sessions to a JSON file at path.
func WithSessionFile(path string) Option {
	return func(c *Client) {
		if path == "" {
			c.store = nil
			return
		}
		c.store = NewFileSessionStore(path)
	}
}

// WithRetry sets the transport retry policy. A nil config disables retries.
func WithRetry(config *RetryConfig) Option {
	return func(c *Client) {
		c.retryConfig = config
	}
}

// WithRegistry sets the table used to recognise supported device models.
func WithRegistry(registry DeviceRegistry) Option {
	return func(c *Client) {
		c.registry = registry
	}
}

// WithRefreshInterval sets how often an active session is renewed.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *Client) {
		c.refreshInterval = d
	}
}

// WithPacing sets the pauses inserted after successful device and list calls.
func WithPacing(device, list time.Duration) Option {
	return func(c *Client) {
		c.devicePacing = device
		c.listPacing = list
	}
}

// WithTimeouts sets the per-request timeouts for login and authenticated calls.
func WithTimeouts(auth, request time.Duration) Option {
	return func(c *Client) {
		c.authTimeout = auth
		c.requestTimeout = request
	}
}

// NewClient creates a new VeSync API client for the given account.
// The password is hashed immediately and never kept in clear text.
func NewClient(email, password string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmptyEmail
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		endpoints:       endpoints{global: GlobalBaseURL, eu: EUBaseURL},
		country:         DefaultCountryCode,
		timeZone:        DefaultTimeZone,
		retryConfig:     DefaultRetryConfig(),
		registry:        DefaultRegistry(),
		logger:          zerolog.Nop(),
		authTimeout:     DefaultAuthTimeout,
		requestTimeout:  DefaultTimeout,
		refreshInterval: DefaultRefreshInterval,
		devicePacing:    DefaultDevicePacing,
		listPacing:      DefaultListPacing,
		now:             time.Now,
		sem:             semaphore.NewWeighted(1),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.auth = &sessionManager{
		email:        strings.TrimSpace(email),
		passwordHash: hashPassword(password),
		country:      c.country,
		timeZone:     c.timeZone,
		endpoints:    c.endpoints,
		store:        c.store,
		timeout:      c.authTimeout,
		logger:       c.logger.With().Str("component", "session").Logger(),
		now:          c.now,
		do:           c.do,
	}

	return c, nil
}

// Start establishes a session, reusing a persisted one when it is still
// valid, and schedules the periodic refresh. Calling Start on a running
// client replaces its refresh timer. When no session can be established any
// running refresh timer is stopped.
func (c *Client) Start(ctx context.Context) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	err := c.auth.resolve(ctx)
	c.sem.Release(1)
	if err != nil {
		c.refresh.stop()
		return err
	}

	if c.refreshInterval > 0 {
		c.refresh.start(c.refreshInterval, c.refreshSession)
	}
	return nil
}

// Stop cancels the periodic refresh. In-flight requests are not interrupted.
func (c *Client) Stop() {
	c.refresh.stop()
}

// Login performs a fresh login regardless of any current session.
func (c *Client) Login(ctx context.Context) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)
	return c.auth.authenticate(ctx)
}

// Logout stops the refresh timer, forgets the in-memory session, drops any
// cached device list and removes the persisted record, identifiers included.
func (c *Client) Logout(ctx context.Context) error {
	c.Stop()
	c.InvalidateDeviceCache()
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)
	return c.auth.forget(ctx)
}

// Session returns a copy of the current session, or nil if none is active.
func (c *Client) Session() *Session {
	return c.auth.current()
}

// Identity returns the installation identifiers in use.
func (c *Client) Identity() Identity {
	return c.auth.currentIdentity()
}

// State returns the authentication state.
func (c *Client) State() SessionState {
	return c.auth.currentState()
}

// refreshSession is the refresh timer callback.
func (c *Client) refreshSession(ctx context.Context) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer c.sem.Release(1)

	// Stop only prevents future refreshes; a login already under way finishes.
	if err := c.auth.authenticate(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn().Err(err).Msg("scheduled session refresh failed")
		return
	}
	c.logger.Debug().Msg("session refreshed")
}

// do performs a single HTTP exchange and returns the response body.
// Non-2xx responses are returned as *APIError; anything else is a transport
// failure with no response.
func (c *Client) do(ctx context.Context, method, url string, header http.Header, body any, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("accept-language", "en")
	req.Header.Set("appVersion", appVersion)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logResponse(method, url, 0, time.Since(start), err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logResponse(method, url, resp.StatusCode, time.Since(start), err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	c.logResponse(method, url, resp.StatusCode, time.Since(start), nil)

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    truncatePreview(respBody),
		}
	}

	return respBody, nil
}

// authHeaders returns the headers every authenticated call carries.
func (c *Client) authHeaders(s *Session) http.Header {
	h := http.Header{}
	h.Set("tk", s.Token)
	h.Set("accountID", s.AccountID)
	h.Set("tz", c.timeZone)
	return h
}

// refresher runs one periodic callback at a time.
type refresher struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// start cancels any running timer and starts a new one.
func (r *refresher) start(interval time.Duration, fn func(context.Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel, r.done = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// stop cancels the running timer, if any, and waits for it to exit.
func (r *refresher) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *refresher) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel, r.done = nil, nil
}

// running reports whether a timer is active.
func (r *refresher) running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}
