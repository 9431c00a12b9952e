package vesync

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// WithLogger configures a structured logger for the client.
// When set, the client logs API exchanges, login attempts and business errors.
// Request and response bodies are never logged.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	client, _ := vesync.NewClient(email, password, vesync.WithLogger(logger))
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// LoggingTransport wraps an http.RoundTripper and logs requests/responses.
type LoggingTransport struct {
	Base   http.RoundTripper
	Logger zerolog.Logger
}

// RoundTrip implements http.RoundTripper with logging.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	t.Logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Msg("api_request")

	resp, err := base.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.Logger.Error().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Dur("duration", duration).
			Err(err).
			Msg("api_error")
		return resp, err
	}

	t.Logger.WithLevel(levelForStatus(resp.StatusCode)).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("api_response")

	return resp, nil
}

// levelForStatus picks a log level for an HTTP status.
func levelForStatus(status int) zerolog.Level {
	switch {
	case status >= 500:
		return zerolog.ErrorLevel
	case status >= 400:
		return zerolog.WarnLevel
	default:
		return zerolog.DebugLevel
	}
}

// logResponse logs one HTTP exchange made by the client.
func (c *Client) logResponse(method, url string, status int, duration time.Duration, err error) {
	level := levelForStatus(status)
	if err != nil {
		level = zerolog.ErrorLevel
	}
	ev := c.logger.WithLevel(level).
		Str("method", method).
		Str("url", url).
		Dur("duration", duration)
	if status > 0 {
		ev = ev.Int("status", status)
	}
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("api_response")
}

// logBusinessError logs a non-zero business code returned for an operation.
func (c *Client) logBusinessError(op string, code int, msg string) {
	c.logger.Warn().
		Str("operation", op).
		Int("code", code).
		Str("kind", ClassifyCode(code).String()).
		Str("msg", msg).
		Msg("business_error")
}

// NewLoggingClient creates a client with request/response logging on the
// HTTP transport as well as the client itself.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).Level(zerolog.DebugLevel)
//	client, err := vesync.NewLoggingClient(email, password, logger)
func NewLoggingClient(email, password string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	transport := &LoggingTransport{
		Base: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
		Logger: logger,
	}

	allOpts := append([]Option{WithHTTPClient(&http.Client{Transport: transport}), WithLogger(logger)}, opts...)
	return NewClient(email, password, allOpts...)
}
