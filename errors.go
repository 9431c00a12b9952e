package vesync

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Sentinel errors returned by the VeSync client.
// All errors are defined here for easy discovery and consistent organization.
var (
	// Construction errors
	ErrEmptyEmail    = errors.New("vesync: account email cannot be empty")
	ErrEmptyPassword = errors.New("vesync: account password cannot be empty")

	// Authentication errors
	ErrInvalidCredentials   = errors.New("vesync: invalid account credentials")
	ErrAuthenticationFailed = errors.New("vesync: unable to establish a session with any region")
	ErrNotAuthenticated     = errors.New("vesync: no active session (call Start or Login first)")

	// Response errors
	ErrEmptyResponse = errors.New("vesync: empty response body")

	// Persistence errors
	ErrSessionVersion  = errors.New("vesync: persisted session has an unsupported version")
	ErrSessionNotFound = errors.New("vesync: no persisted session")

	// Device validation errors
	ErrNilDevice     = errors.New("vesync: device cannot be nil")
	ErrEmptyCommand  = errors.New("vesync: command method cannot be empty")
	ErrInvalidLevel  = errors.New("vesync: level is outside the supported range")
	ErrInvalidTarget = errors.New("vesync: target humidity is outside the supported range")
	ErrUnsupported   = errors.New("vesync: feature not supported by this model")
)

// ErrorKind is the category a backend business code falls into. The executor
// and the login state machine branch on the kind, never on raw codes.
type ErrorKind int

const (
	// KindNone means the code indicates success.
	KindNone ErrorKind = iota
	// KindCredential means the email or password was rejected.
	KindCredential
	// KindCrossRegion means the account lives in the other region.
	KindCrossRegion
	// KindTokenInvalid means the session token expired or was revoked.
	KindTokenInvalid
	// KindTransient means the failure is worth retrying with backoff.
	KindTransient
	// KindUnknown is any other non-zero business code.
	KindUnknown
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCredential:
		return "credential"
	case KindCrossRegion:
		return "cross_region"
	case KindTokenInvalid:
		return "token_invalid"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Business codes returned by the VeSync backend.
const (
	CodeSuccess = 0

	CodeInvalidCredentials = -11201129

	CodeCrossRegion       = -11260022
	CodeCrossRegionLegacy = -11261022

	CodeTokenExpired = -11012001
	CodeTokenInvalid = -11012002
)

var (
	credentialCodes  = map[int]struct{}{CodeInvalidCredentials: {}}
	crossRegionCodes = map[int]struct{}{CodeCrossRegion: {}, CodeCrossRegionLegacy: {}}
	tokenCodes       = map[int]struct{}{CodeTokenExpired: {}, CodeTokenInvalid: {}}
)

// ClassifyCode maps a raw business code onto an ErrorKind.
// Transient classification is never derived from the code alone; callers
// opt codes into retry through RetryConfig.RetryableCodes.
func ClassifyCode(code int) ErrorKind {
	if code == CodeSuccess {
		return KindNone
	}
	if _, ok := credentialCodes[code]; ok {
		return KindCredential
	}
	if _, ok := crossRegionCodes[code]; ok {
		return KindCrossRegion
	}
	if _, ok := tokenCodes[code]; ok {
		return KindTokenInvalid
	}
	return KindUnknown
}

// BusinessError is a non-zero application-level code embedded in a
// successful HTTP response.
type BusinessError struct {
	Code    int
	Message string
	Kind    ErrorKind
}

func newBusinessError(code int, msg string) *BusinessError {
	return &BusinessError{Code: code, Message: msg, Kind: ClassifyCode(code)}
}

// Error implements the error interface.
func (e *BusinessError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("vesync: business error %d (%s): %s", e.Code, e.Kind, e.Message)
	}
	return fmt.Sprintf("vesync: business error %d (%s)", e.Code, e.Kind)
}

// APIError represents a non-2xx HTTP response from the VeSync API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("vesync: API error %d: %s", e.StatusCode, e.Message)
}

// KindOf returns the ErrorKind carried by err, or KindUnknown when err is
// not a classified failure. A nil error is KindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var bizErr *BusinessError
	if errors.As(err, &bizErr) {
		return bizErr.Kind
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && isRetryableStatus(apiErr.StatusCode) {
		return KindTransient
	}
	if isTransportRetryable(err) {
		return KindTransient
	}
	return KindUnknown
}

// IsTokenInvalid returns true if the error indicates an expired or revoked token.
func IsTokenInvalid(err error) bool {
	return KindOf(err) == KindTokenInvalid
}

// IsCrossRegion returns true if the account belongs to the other region.
func IsCrossRegion(err error) bool {
	return KindOf(err) == KindCrossRegion
}

// IsInvalidCredentials returns true if the error indicates rejected credentials.
func IsInvalidCredentials(err error) bool {
	if errors.Is(err, ErrInvalidCredentials) {
		return true
	}
	return KindOf(err) == KindCredential
}

// IsTimeout returns true if the error indicates a timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isRetryableStatus reports whether an HTTP status is worth retrying.
func isRetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}

// isTransportRetryable reports connection resets, timeouts and DNS failures.
func isTransportRetryable(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if IsTimeout(err) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
