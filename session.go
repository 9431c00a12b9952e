package vesync

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// SessionVersion is the current PersistedSession schema version.
	SessionVersion = 1

	// expirySafetyMargin is how close to expiry a persisted token may be and
	// still get reused.
	expirySafetyMargin = 5 * time.Minute

	// sessionLifetime is the nominal expiry recorded after a login. The
	// refresh timer renews tokens long before this.
	sessionLifetime = 7 * 24 * time.Hour
)

// SessionState is the authentication state of a client.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticating
	StateAuthenticated
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session is an authenticated VeSync session.
type Session struct {
	Token     string
	AccountID string
	BaseURL   string
	// ExpiresAt is zero when the expiry is unknown.
	ExpiresAt time.Time
}

// Valid reports whether the session is fully populated.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && s.AccountID != "" && s.BaseURL != ""
}

// expiredAt reports whether the session is within the safety margin of its
// expiry at now. Sessions with an unknown expiry never expire proactively.
func (s *Session) expiredAt(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(expirySafetyMargin).Before(s.ExpiresAt)
}

// Identity holds the installation identifiers the backend uses to recognise
// this client as a known device.
type Identity struct {
	TerminalID string
	AppID      string
}

// PersistedSession is the on-disk session record.
//
// Fields added in later versions must be optional so older records keep
// decoding. A record without a version field is version 1.
type PersistedSession struct {
	Version    int    `json:"version,omitempty"`
	Token      string `json:"token,omitempty"`
	AccountID  string `json:"accountId,omitempty"`
	BaseURL    string `json:"baseURL,omitempty"`
	ExpiresAt  int64  `json:"expiresAt,omitempty"` // Unix milliseconds
	TerminalID string `json:"terminalId,omitempty"`
	AppID      string `json:"appId,omitempty"`
}

// newPersistedSession builds a record from in-memory state.
func newPersistedSession(s *Session, id Identity) *PersistedSession {
	rec := &PersistedSession{
		Version:    SessionVersion,
		TerminalID: id.TerminalID,
		AppID:      id.AppID,
	}
	if s != nil {
		rec.Token = s.Token
		rec.AccountID = s.AccountID
		rec.BaseURL = s.BaseURL
		if !s.ExpiresAt.IsZero() {
			rec.ExpiresAt = s.ExpiresAt.UnixMilli()
		}
	}
	return rec
}

// Session returns the session part of the record, or nil if the record does
// not hold a complete session.
func (p *PersistedSession) Session() *Session {
	s := &Session{
		Token:     p.Token,
		AccountID: p.AccountID,
		BaseURL:   p.BaseURL,
	}
	if p.ExpiresAt > 0 {
		s.ExpiresAt = time.UnixMilli(p.ExpiresAt)
	}
	if !s.Valid() {
		return nil
	}
	return s
}

// Identity returns the identifiers stored in the record.
func (p *PersistedSession) Identity() Identity {
	return Identity{TerminalID: p.TerminalID, AppID: p.AppID}
}

// decodePersistedSession parses and version-checks a stored record.
func decodePersistedSession(data []byte) (*PersistedSession, error) {
	var rec PersistedSession
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse session record: %w", err)
	}
	if rec.Version == 0 {
		rec.Version = 1
	}
	if rec.Version > SessionVersion {
		return nil, fmt.Errorf("%w: %d", ErrSessionVersion, rec.Version)
	}
	return &rec, nil
}
