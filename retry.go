package vesync

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig configures automatic retry behavior for transient failures.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3).
	MaxRetries int
	// InitialBackoff is the delay before the first retry (default: 1s).
	InitialBackoff time.Duration
	// MaxBackoff caps a single delay (default: 30s).
	MaxBackoff time.Duration
	// Multiplier is the backoff multiplier (default: 2.0).
	Multiplier float64
	// RetryableCodes lists business codes that are retried like transport
	// failures. Empty by default.
	RetryableCodes []int
}

// DefaultRetryConfig returns the retry policy the backend tolerates:
// delays of 1s, 2s and 4s before the fourth and final attempt.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// newBackOff builds a jitter-free exponential schedule from the config.
func (rc *RetryConfig) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rc.InitialBackoff
	b.RandomizationFactor = 0
	b.Multiplier = rc.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.MaxInterval = rc.MaxBackoff
	if b.MaxInterval <= 0 {
		b.MaxInterval = 30 * time.Second
	}
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.Reset()
	return b
}

// retryableCode reports whether a business code is opted into retry.
func (rc *RetryConfig) retryableCode(code int) bool {
	for _, c := range rc.RetryableCodes {
		if c == code {
			return true
		}
	}
	return false
}

// IsRetryable returns true if the error is a transient failure worth retrying:
// HTTP 429 or 5xx, a connection reset, a timeout or a DNS failure.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}

// doWithRetry performs a request with automatic retry on transient failures.
func (c *Client) doWithRetry(ctx context.Context, method, url string, header http.Header, body any, timeout time.Duration) ([]byte, error) {
	rc := c.retryConfig
	if rc == nil || rc.MaxRetries <= 0 {
		return c.do(ctx, method, url, header, body, timeout)
	}

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		data, err := c.do(ctx, method, url, header, body, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			if !IsRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if len(rc.RetryableCodes) > 0 {
			if resp, perr := unmarshalResponse[apiResponse](data, "response"); perr == nil && resp.Code != nil && rc.retryableCode(*resp.Code) {
				bizErr := newBusinessError(*resp.Code, resp.Msg)
				bizErr.Kind = KindTransient
				return data, bizErr
			}
		}
		return data, nil
	}

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(rc.newBackOff()),
		backoff.WithMaxTries(uint(rc.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug().Err(err).Int("attempt", attempt).Dur("backoff", next).Str("url", url).Msg("retrying request")
			if c.notify != nil {
				c.notify(err, next)
			}
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		return nil, err
	}
	return data, nil
}
