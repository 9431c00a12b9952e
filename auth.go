package vesync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Login endpoint paths.
const (
	pathAuthByPassword = "/globalPlatform/api/accountAuth/v1/authByPWDOrOTM"
	pathLoginByCode    = "/user/api/accountManage/v1/loginByAuthorizeCode4Vesync"
	pathLegacyLogin    = "/cloud/v1/user/login"
)

// httpDoer performs a single HTTP exchange.
type httpDoer func(ctx context.Context, method, url string, header http.Header, body any, timeout time.Duration) ([]byte, error)

// sessionManager owns the credentials, identifiers and current session, and
// runs the login protocols. Callers must hold the client lock around resolve,
// authenticate, clear and forget.
type sessionManager struct {
	email        string
	passwordHash string
	country      string
	timeZone     string
	endpoints    endpoints
	store        SessionStore
	timeout      time.Duration
	logger       zerolog.Logger
	now          func() time.Time
	do           httpDoer

	mu       sync.RWMutex
	session  *Session
	identity Identity
	state    SessionState
}

// loginOutcome is the result of trying one endpoint.
type loginOutcome int

const (
	outcomeSuccess loginOutcome = iota
	outcomeNextEndpoint
	outcomeAbort
)

// resolve adopts a still-valid persisted session or logs in.
func (sm *sessionManager) resolve(ctx context.Context) error {
	if sm.store != nil {
		rec, err := sm.store.Load(ctx)
		switch {
		case err == nil:
			sm.adoptIdentity(rec.Identity())
			s := rec.Session()
			_, known := sm.endpoints.regionOf(rec.BaseURL)
			if s != nil && known && !s.expiredAt(sm.now()) {
				sm.install(s)
				sm.logger.Info().Str("endpoint", s.BaseURL).Msg("reusing persisted session")
				return nil
			}
			sm.logger.Info().Msg("persisted session expired or incomplete, logging in")
		case errors.Is(err, ErrSessionNotFound):
		default:
			sm.logger.Warn().Err(err).Msg("failed to load persisted session")
		}
	}
	return sm.authenticate(ctx)
}

// authenticate runs the login plan: the preferred region first, then the
// alternate region, each with the two-step flow and a legacy fallback.
// A rejected credential aborts the whole plan. On failure any existing
// session is left in place.
func (sm *sessionManager) authenticate(ctx context.Context) error {
	ctx, span := startSpan(ctx, "authenticate")
	prev := sm.setState(StateAuthenticating)
	id := sm.ensureIdentity()

	for _, baseURL := range sm.endpoints.candidates(sm.preferredRegion()) {
		s, outcome := sm.loginAt(ctx, baseURL, id)
		switch outcome {
		case outcomeSuccess:
			sm.install(s)
			sm.save(ctx)
			sm.logger.Info().Str("endpoint", baseURL).Msg("login succeeded")
			endSpan(span, true, nil)
			return nil
		case outcomeAbort:
			sm.setState(prev)
			endSpan(span, false, ErrInvalidCredentials)
			return ErrInvalidCredentials
		}
		if err := ctx.Err(); err != nil {
			sm.setState(prev)
			endSpan(span, false, err)
			return err
		}
	}

	sm.setState(prev)
	endSpan(span, false, ErrAuthenticationFailed)
	return ErrAuthenticationFailed
}

// loginAt tries one endpoint.
func (sm *sessionManager) loginAt(ctx context.Context, baseURL string, id Identity) (*Session, loginOutcome) {
	log := sm.logger.With().Str("endpoint", baseURL).Logger()

	code, err := sm.requestAuthorizeCode(ctx, baseURL, id)
	if err != nil {
		var apiErr *APIError
		var bizErr *BusinessError
		switch {
		case errors.As(err, &bizErr) && bizErr.Kind == KindCredential:
			log.Error().Int("code", bizErr.Code).Str("msg", bizErr.Message).Msg("credentials rejected")
			return nil, outcomeAbort
		case errors.As(err, &bizErr) && bizErr.Kind == KindCrossRegion:
			log.Info().Int("code", bizErr.Code).Msg("account belongs to the other region")
			return nil, outcomeNextEndpoint
		case errors.Is(err, errNoAuthorizeCode):
			log.Warn().Err(err).Msg("login accepted without an authorize code")
			return nil, outcomeNextEndpoint
		case errors.As(err, &apiErr):
			log.Warn().Int("status", apiErr.StatusCode).Msg("login endpoint returned an HTTP error")
			return nil, outcomeNextEndpoint
		case bizErr == nil && !errors.Is(err, errMalformedResponse):
			log.Warn().Err(err).Msg("login endpoint unreachable")
			return nil, outcomeNextEndpoint
		}
		log.Info().Err(err).Msg("two-step login unavailable, trying legacy login")
		s, err := sm.legacyLogin(ctx, baseURL)
		if err != nil {
			log.Warn().Err(err).Msg("legacy login failed")
			return nil, outcomeNextEndpoint
		}
		return s, outcomeSuccess
	}

	s, err := sm.exchangeAuthorizeCode(ctx, baseURL, id, code)
	if err != nil {
		log.Warn().Err(err).Msg("token exchange failed")
		return nil, outcomeNextEndpoint
	}
	return s, outcomeSuccess
}

var (
	// errMalformedResponse marks a response that arrived but could not be used.
	errMalformedResponse = errors.New("vesync: malformed response")

	// errNoAuthorizeCode marks a successful step 1 that carried no code.
	errNoAuthorizeCode = errors.New("vesync: login succeeded without an authorize code")
)

// requestAuthorizeCode performs step 1 of the two-step login.
func (sm *sessionManager) requestAuthorizeCode(ctx context.Context, baseURL string, id Identity) (*authCodeResult, error) {
	body := authByPasswordRequest{
		loginEnvelope:    sm.envelope("authByPWDOrOTM", id),
		AuthProtocolType: "generic",
		Email:            sm.email,
		Password:         sm.passwordHash,
		AppID:            id.AppID,
		SourceAppID:      id.AppID,
	}
	resp, err := sm.post(ctx, baseURL+pathAuthByPassword, body)
	if err != nil {
		return nil, err
	}
	code, ok := resp.code(false)
	if !ok {
		return nil, fmt.Errorf("%w: missing business code", errMalformedResponse)
	}
	if code != CodeSuccess {
		return nil, newBusinessError(code, resp.Msg)
	}
	result, err := unmarshalResponse[authCodeResult](resp.Result, "authorize code")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoAuthorizeCode, err)
	}
	if result.AuthorizeCode == "" {
		return nil, errNoAuthorizeCode
	}
	return result, nil
}

// exchangeAuthorizeCode performs step 2 of the two-step login.
func (sm *sessionManager) exchangeAuthorizeCode(ctx context.Context, baseURL string, id Identity, code *authCodeResult) (*Session, error) {
	body := loginByCodeRequest{
		loginEnvelope:      sm.envelope("loginByAuthorizeCode4Vesync", id),
		AuthorizeCode:      code.AuthorizeCode,
		BizToken:           code.BizToken,
		EmailSubscriptions: false,
	}
	resp, err := sm.post(ctx, baseURL+pathLoginByCode, body)
	if err != nil {
		return nil, err
	}
	c, ok := resp.code(false)
	if !ok {
		return nil, fmt.Errorf("%w: missing business code", errMalformedResponse)
	}
	if c != CodeSuccess {
		return nil, newBusinessError(c, resp.Msg)
	}
	return sm.sessionFrom(resp, baseURL)
}

// legacyLogin performs the single-step login older accounts still use.
// An absent business code counts as success on this endpoint.
func (sm *sessionManager) legacyLogin(ctx context.Context, baseURL string) (*Session, error) {
	body := legacyLoginRequest{
		TimeZone:       sm.timeZone,
		AcceptLanguage: "en",
		AppVersion:     appVersion,
		PhoneBrand:     phoneBrand,
		PhoneOS:        "Android",
		TraceID:        newTraceID(),
		Email:          sm.email,
		Password:       sm.passwordHash,
		DevToken:       "",
		UserType:       1,
		Method:         "login",
	}
	resp, err := sm.post(ctx, baseURL+pathLegacyLogin, body)
	if err != nil {
		return nil, err
	}
	if c, _ := resp.code(true); c != CodeSuccess {
		return nil, newBusinessError(c, resp.Msg)
	}
	return sm.sessionFrom(resp, baseURL)
}

// sessionFrom builds a session from a token-bearing login result.
func (sm *sessionManager) sessionFrom(resp *apiResponse, baseURL string) (*Session, error) {
	result, err := unmarshalResponse[tokenResult](resp.Result, "login result")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	if result.Token == "" || result.AccountID == "" {
		return nil, fmt.Errorf("%w: missing token or account ID", errMalformedResponse)
	}
	return &Session{
		Token:     result.Token,
		AccountID: result.AccountID,
		BaseURL:   baseURL,
		ExpiresAt: sm.now().Add(sessionLifetime),
	}, nil
}

// post sends one unauthenticated login request and decodes the envelope.
func (sm *sessionManager) post(ctx context.Context, url string, body any) (*apiResponse, error) {
	ctx, span := startSpan(ctx, "login_request", attribute.String("url", url))
	data, err := sm.do(ctx, http.MethodPost, url, nil, body, sm.timeout)
	if err != nil {
		endSpan(span, false, err)
		return nil, err
	}
	if len(data) == 0 {
		endSpan(span, false, ErrEmptyResponse)
		return nil, fmt.Errorf("%w: %w", errMalformedResponse, ErrEmptyResponse)
	}
	resp, err := unmarshalResponse[apiResponse](data, "login response")
	if err != nil {
		endSpan(span, false, err)
		return nil, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	endSpan(span, true, nil)
	return resp, nil
}

// envelope returns the client metadata both two-step requests carry.
func (sm *sessionManager) envelope(method string, id Identity) loginEnvelope {
	return loginEnvelope{
		AcceptLanguage:  "en",
		AccountID:       "",
		ClientInfo:      phoneBrand,
		ClientType:      "vesyncApp",
		ClientVersion:   "VeSync " + appVersion,
		DebugMode:       false,
		Method:          method,
		OSInfo:          "Android",
		TerminalID:      id.TerminalID,
		TimeZone:        sm.timeZone,
		Token:           "",
		TraceID:         newTraceID(),
		UserCountryCode: sm.country,
	}
}

// preferredRegion is the region of the active session, or the one the
// configured country maps to.
func (sm *sessionManager) preferredRegion() Region {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if sm.session != nil {
		if r, ok := sm.endpoints.regionOf(sm.session.BaseURL); ok {
			return r
		}
	}
	return RegionForCountry(sm.country)
}

// save persists the current session. Failures are logged and ignored; the
// in-memory session stays usable.
func (sm *sessionManager) save(ctx context.Context) {
	if sm.store == nil {
		return
	}
	sm.mu.RLock()
	rec := newPersistedSession(sm.session, sm.identity)
	sm.mu.RUnlock()
	if err := sm.store.Save(ctx, rec); err != nil {
		sm.logger.Warn().Err(err).Msg("failed to persist session")
	}
}

// clear drops the persisted session so the next resolve logs in again. The
// identifiers are written back so they survive a restart, and the in-memory
// state is untouched.
func (sm *sessionManager) clear(ctx context.Context) {
	if sm.store == nil {
		return
	}
	sm.mu.RLock()
	id := sm.identity
	sm.mu.RUnlock()

	var err error
	if id.TerminalID != "" || id.AppID != "" {
		err = sm.store.Save(ctx, newPersistedSession(nil, id))
	} else {
		err = sm.store.Delete(ctx)
	}
	if err != nil {
		sm.logger.Warn().Err(err).Msg("failed to clear persisted session")
	}
}

// forget drops the session and identifiers from memory and storage.
func (sm *sessionManager) forget(ctx context.Context) error {
	sm.mu.Lock()
	sm.session = nil
	sm.identity = Identity{}
	sm.state = StateUnauthenticated
	sm.mu.Unlock()
	if sm.store == nil {
		return nil
	}
	return sm.store.Delete(ctx)
}

// install makes s the active session.
func (sm *sessionManager) install(s *Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.session = s
	sm.state = StateAuthenticated
}

// setState sets the state and returns the previous one.
func (sm *sessionManager) setState(s SessionState) SessionState {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	prev := sm.state
	sm.state = s
	return prev
}

// adoptIdentity takes identifiers from a persisted record. Identifiers
// already held are never replaced.
func (sm *sessionManager) adoptIdentity(id Identity) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.identity.TerminalID == "" {
		sm.identity.TerminalID = id.TerminalID
	}
	if sm.identity.AppID == "" {
		sm.identity.AppID = id.AppID
	}
}

// ensureIdentity generates any missing identifier and returns the result.
func (sm *sessionManager) ensureIdentity() Identity {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.identity.TerminalID == "" {
		sm.identity.TerminalID = newTerminalID()
	}
	if sm.identity.AppID == "" {
		sm.identity.AppID = newAppID()
	}
	return sm.identity
}

// current returns a copy of the active session, or nil.
func (sm *sessionManager) current() *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.session.Valid() {
		return nil
	}
	cp := *sm.session
	return &cp
}

func (sm *sessionManager) currentIdentity() Identity {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.identity
}

func (sm *sessionManager) currentState() SessionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// loginEnvelope is the metadata shared by both two-step login requests.
type loginEnvelope struct {
	AcceptLanguage  string `json:"acceptLanguage"`
	AccountID       string `json:"accountID"`
	ClientInfo      string `json:"clientInfo"`
	ClientType      string `json:"clientType"`
	ClientVersion   string `json:"clientVersion"`
	DebugMode       bool   `json:"debugMode"`
	Method          string `json:"method"`
	OSInfo          string `json:"osInfo"`
	TerminalID      string `json:"terminalId"`
	TimeZone        string `json:"timeZone"`
	Token           string `json:"token"`
	TraceID         string `json:"traceId"`
	UserCountryCode string `json:"userCountryCode"`
}

type authByPasswordRequest struct {
	loginEnvelope
	AuthProtocolType string `json:"authProtocolType"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	AppID            string `json:"appID"`
	SourceAppID      string `json:"sourceAppID"`
}

type loginByCodeRequest struct {
	loginEnvelope
	AuthorizeCode      string `json:"authorizeCode"`
	BizToken           string `json:"bizToken,omitempty"`
	EmailSubscriptions bool   `json:"emailSubscriptions"`
}

type legacyLoginRequest struct {
	TimeZone       string `json:"timeZone"`
	AcceptLanguage string `json:"acceptLanguage"`
	AppVersion     string `json:"appVersion"`
	PhoneBrand     string `json:"phoneBrand"`
	PhoneOS        string `json:"phoneOS"`
	TraceID        string `json:"traceId"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	DevToken       string `json:"devToken"`
	UserType       int    `json:"userType"`
	Method         string `json:"method"`
}
