package vesync

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Authenticated endpoint paths.
const (
	pathDevices = "/cloud/v2/deviceManaged/devices"
	pathBypass  = "/cloud/v2/deviceManaged/bypassV2"
)

// maxBusinessAttempts bounds the token-invalid re-login loop: the original
// call plus one retry after a fresh login.
const maxBusinessAttempts = 2

// operation describes one authenticated call run through execute.
type operation struct {
	name   string
	method string
	path   string
	// body builds the request body for the session in use, so a retry
	// after re-login carries the new token.
	body func(s *Session) any
	// tolerateMissingCode treats a response without a business code as
	// success.
	tolerateMissingCode bool
	pacing              time.Duration
	attrs               []attribute.KeyValue
}

// execute runs op under the client lock. It returns the decoded envelope and
// true on success. A false result with a nil error is a soft failure that has
// already been logged. The error is non-nil only when no session exists or
// ctx is done.
func (c *Client) execute(ctx context.Context, op operation) (*apiResponse, bool, error) {
	ctx, span := startSpan(ctx, op.name, op.attrs...)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		endSpan(span, false, err)
		return nil, false, err
	}
	defer c.sem.Release(1)

	resp, ok, err := c.executeLocked(ctx, op)
	endSpan(span, ok, err)
	return resp, ok, err
}

func (c *Client) executeLocked(ctx context.Context, op operation) (*apiResponse, bool, error) {
	log := c.logger.With().Str("operation", op.name).Logger()

	for attempt := 0; attempt < maxBusinessAttempts; attempt++ {
		s := c.auth.current()
		if s == nil {
			return nil, false, ErrNotAuthenticated
		}

		data, err := c.doWithRetry(ctx, op.method, s.BaseURL+op.path, c.authHeaders(s), op.body(s), c.requestTimeout)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, false, ctxErr
			}
			log.Error().Err(err).Int("attempt", attempt+1).Msg("request failed")
			return nil, false, nil
		}
		if len(bytes.TrimSpace(data)) == 0 {
			log.Warn().Msg("empty response")
			return nil, false, nil
		}

		resp, err := unmarshalResponse[apiResponse](data, op.name+" response")
		if err != nil {
			log.Error().Err(err).Msg("undecodable response")
			return nil, false, nil
		}

		code, present := resp.code(op.tolerateMissingCode)
		if !present {
			log.Warn().Msg("response has no business code")
			return nil, false, nil
		}

		switch ClassifyCode(code) {
		case KindNone:
			// The call went through; an interrupted pause does not undo it.
			_ = c.pace(ctx, op.pacing)
			return resp, true, nil
		case KindTokenInvalid:
			if attempt > 0 {
				c.logBusinessError(op.name, code, resp.Msg)
				return nil, false, nil
			}
			log.Info().Int("code", code).Msg("token rejected, logging in again")
			c.auth.clear(ctx)
			if err := c.auth.authenticate(ctx); err != nil {
				log.Error().Err(err).Msg("re-login failed")
				return nil, false, nil
			}
			continue
		default:
			c.logBusinessError(op.name, code, resp.Msg)
			return nil, false, nil
		}
	}

	return nil, false, nil
}

// pace sleeps for d unless ctx ends first.
func (c *Client) pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GetDeviceInfo queries a device's status through the bypass endpoint.
// cmd is the status query payload, typically from NewStatusQuery. A reply
// without a top-level business code is accepted. It returns
// nil when the backend did not produce a usable status; the cause is logged.
// The error is non-nil only without an active session or when ctx ends.
func (c *Client) GetDeviceInfo(ctx context.Context, device *DeviceRecord, cmd Command) (Status, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if cmd.Method == "" {
		return nil, ErrEmptyCommand
	}
	op := c.bypassOperation("get_device_info", http.MethodPost, device, cmd)
	op.tolerateMissingCode = true
	resp, ok, err := c.execute(ctx, op)
	if err != nil || !ok {
		return nil, err
	}
	inner, ok := c.bypassInner(resp, "get_device_info")
	if !ok {
		return nil, nil
	}
	if inner.Result == nil {
		return Status{}, nil
	}
	return inner.Result, nil
}

// SendCommand sends a control command to a device through the bypass
// endpoint. It returns false when the backend did not accept the command;
// the cause is logged. The error is non-nil only without an active session
// or when ctx ends.
func (c *Client) SendCommand(ctx context.Context, device *DeviceRecord, cmd Command) (bool, error) {
	if device == nil {
		return false, ErrNilDevice
	}
	if cmd.Method == "" {
		return false, ErrEmptyCommand
	}
	resp, ok, err := c.execute(ctx, c.bypassOperation("send_command", http.MethodPut, device, cmd))
	if err != nil || !ok {
		return false, err
	}
	_, ok = c.bypassInner(resp, "send_command")
	return ok, nil
}

// bypassOperation builds the operation for a bypass call against device.
func (c *Client) bypassOperation(name, method string, device *DeviceRecord, cmd Command) operation {
	if cmd.Source == "" {
		cmd.Source = "APP"
	}
	if cmd.Data == nil {
		cmd.Data = map[string]any{}
	}
	return operation{
		name:   name,
		method: method,
		path:   pathBypass,
		body: func(s *Session) any {
			return bypassRequest{
				authenticatedEnvelope: c.authenticatedEnvelope(s, "bypassV2"),
				CID:                   device.CID,
				ConfigModule:          device.ConfigModule,
				DeviceRegion:          device.Region,
				Payload:               cmd,
			}
		},
		pacing: c.devicePacing,
		attrs: []attribute.KeyValue{
			attribute.String("vesync.device", device.UUID),
			attribute.String("vesync.method", cmd.Method),
		},
	}
}

// bypassInner decodes the nested bypass result and checks its own code.
func (c *Client) bypassInner(resp *apiResponse, op string) (*bypassResult, bool) {
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return &bypassResult{}, true
	}
	inner, err := unmarshalResponse[bypassResult](resp.Result, "bypass result")
	if err != nil {
		c.logger.Error().Err(err).Str("operation", op).Msg("undecodable bypass result")
		return nil, false
	}
	if inner.Code != nil && *inner.Code != CodeSuccess {
		c.logBusinessError(op, *inner.Code, inner.Msg)
		return nil, false
	}
	return inner, true
}

// authenticatedEnvelope returns the fields every authenticated call carries
// in its body.
func (c *Client) authenticatedEnvelope(s *Session, method string) authenticatedEnvelope {
	return authenticatedEnvelope{
		AcceptLanguage:  "en",
		AccountID:       s.AccountID,
		AppVersion:      appVersion,
		DebugMode:       false,
		Method:          method,
		PhoneBrand:      phoneBrand,
		PhoneOS:         "Android",
		TimeZone:        c.timeZone,
		Token:           s.Token,
		TraceID:         newTraceID(),
		UserCountryCode: c.country,
	}
}

type authenticatedEnvelope struct {
	AcceptLanguage  string `json:"acceptLanguage"`
	AccountID       string `json:"accountID"`
	AppVersion      string `json:"appVersion"`
	DebugMode       bool   `json:"debugMode"`
	Method          string `json:"method"`
	PhoneBrand      string `json:"phoneBrand"`
	PhoneOS         string `json:"phoneOS"`
	TimeZone        string `json:"timeZone"`
	Token           string `json:"token"`
	TraceID         string `json:"traceId"`
	UserCountryCode string `json:"userCountryCode"`
}

type bypassRequest struct {
	authenticatedEnvelope
	CID          string  `json:"cid"`
	ConfigModule string  `json:"configModule"`
	DeviceRegion string  `json:"deviceRegion"`
	Payload      Command `json:"payload"`
}

type deviceListRequest struct {
	authenticatedEnvelope
	PageNo   int `json:"pageNo"`
	PageSize int `json:"pageSize"`
}
