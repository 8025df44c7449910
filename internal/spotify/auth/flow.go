package auth

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/google/uuid"

	strumerrors "github.com/vutran/strum/internal/errors"
)

// FlowState is the login state machine's current position. Terminal
// states return to FlowIdle on the next Login call.
type FlowState string

const (
	FlowIdle       FlowState = "idle"
	FlowRequesting FlowState = "requesting"
	FlowSuccess    FlowState = "success"
	FlowError      FlowState = "error"
	FlowCancelled  FlowState = "cancelled"
)

// LoginResult is the terminal outcome of one login attempt.
type LoginResult struct {
	AttemptID string
	State     FlowState
	Tokens    *TokenSet
	Err       error
}

// Flow drives one authorization-code-with-PKCE round trip per login
// attempt. A Flow is not re-entrant: one in-flight attempt at a time.
type Flow struct {
	ClientID    string
	RedirectURI string
	Scopes      []string
	AuthURL     string

	tokens  *TokenStore
	open    func(url string) error
	confirm func(ctx context.Context) error

	mu    sync.Mutex
	state FlowState
	last  *LoginResult
}

// NewFlow creates a login flow. open launches the interactive browser
// session; it receives the fully built authorization URL.
func NewFlow(clientID, redirectURI string, tokens *TokenStore, open func(url string) error) *Flow {
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}
	return &Flow{
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scopes:      DefaultScopes,
		AuthURL:     SpotifyAuthURL,
		tokens:      tokens,
		open:        open,
		state:       FlowIdle,
	}
}

// SetConfirm registers a post-exchange check, typically a profile fetch
// through the API client to confirm end-to-end success. A confirm
// failure does not fail the login; the tokens are already persisted.
func (f *Flow) SetConfirm(fn func(ctx context.Context) error) {
	f.confirm = fn
}

// State returns the current flow state.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastResult returns the most recent terminal result, or nil.
func (f *Flow) LastResult() *LoginResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Login runs one full authorization round trip: browser launch,
// redirect callback, code exchange, token persistence, confirmation.
// Cancelling ctx while waiting for the redirect yields the Cancelled
// terminal state with no further network calls.
func (f *Flow) Login(ctx context.Context) (*LoginResult, error) {
	f.mu.Lock()
	if f.state == FlowRequesting {
		f.mu.Unlock()
		return nil, strumerrors.ErrLoginInProgress
	}
	f.state = FlowRequesting
	f.mu.Unlock()

	result := &LoginResult{AttemptID: uuid.NewString()}
	defer func() {
		f.mu.Lock()
		f.state = result.State
		f.last = result
		f.mu.Unlock()
	}()

	pkce, err := NewPKCE()
	if err != nil {
		return f.fail(result, fmt.Errorf("failed to generate PKCE pair: %w", err))
	}

	port, err := redirectPort(f.RedirectURI)
	if err != nil {
		return f.fail(result, err)
	}
	server, err := NewCallbackServer(port)
	if err != nil {
		return f.fail(result, err)
	}
	server.Start()
	defer func() { _ = server.Shutdown(context.Background()) }()

	authURL := BuildAuthURL(f.AuthURL, f.ClientID, f.RedirectURI, f.Scopes, pkce)
	if err := f.open(authURL); err != nil {
		return f.fail(result, fmt.Errorf("failed to open browser: %w", err))
	}

	cb, err := server.Wait(ctx)
	if err != nil {
		// User dismissed the browser session; nothing further happens.
		result.State = FlowCancelled
		result.Err = strumerrors.ErrLoginCancelled
		return result, result.Err
	}

	if cb.Error != "" {
		return f.fail(result, fmt.Errorf("authorization server reported: %s", cb.Error))
	}
	if cb.State != pkce.State {
		return f.fail(result, fmt.Errorf("state mismatch in redirect, possible CSRF"))
	}
	if cb.Code == "" {
		return f.fail(result, fmt.Errorf("redirect carried no authorization code"))
	}
	if pkce.Verifier == "" {
		return f.fail(result, fmt.Errorf("missing PKCE verifier at exchange time"))
	}

	tokens, err := ExchangeCode(ctx, nil, f.tokens.tokenURL, f.ClientID, cb.Code, f.RedirectURI, pkce.Verifier)
	if err != nil {
		return f.fail(result, fmt.Errorf("code exchange failed: %w", err))
	}
	if err := f.tokens.Save(tokens); err != nil {
		return f.fail(result, err)
	}

	if f.confirm != nil {
		_ = f.confirm(ctx)
	}

	result.State = FlowSuccess
	result.Tokens = tokens
	return result, nil
}

func (f *Flow) fail(result *LoginResult, err error) (*LoginResult, error) {
	result.State = FlowError
	result.Err = err
	return result, err
}

func redirectPort(redirectURI string) (int, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return 0, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if p := u.Port(); p != "" {
		return strconv.Atoi(p)
	}
	return 80, nil
}
