package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	strumerrors "github.com/vutran/strum/internal/errors"
	"github.com/vutran/strum/internal/kv"
)

// Storage keys in the durable key-value store.
const (
	KeyTokens      = "tokens"
	KeyUserProfile = "cached_user_profile"
)

// TokenStore owns the persisted token set and its refresh lifecycle.
// Concurrent GetValid callers coalesce into a single outstanding
// refresh request.
type TokenStore struct {
	store    kv.Store
	clientID string
	tokenURL string
	hc       *http.Client

	mu       sync.Mutex
	inflight *refreshCall
}

type refreshCall struct {
	done   chan struct{}
	tokens *TokenSet
	err    error
}

// NewTokenStore creates a token store over the given key-value storage.
func NewTokenStore(store kv.Store, clientID string) *TokenStore {
	return &TokenStore{
		store:    store,
		clientID: clientID,
		tokenURL: SpotifyTokenURL,
		hc:       &http.Client{Timeout: 30 * time.Second},
	}
}

// SetTokenURL overrides the token endpoint. Used by tests.
func (s *TokenStore) SetTokenURL(u string) {
	s.tokenURL = u
}

// Save persists the token set, overwriting any prior value.
func (s *TokenStore) Save(t *TokenSet) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}
	if err := s.store.Set(KeyTokens, string(data)); err != nil {
		return fmt.Errorf("%w: %v", strumerrors.ErrStorageFailure, err)
	}
	return nil
}

// Load reads the persisted token set. Absent or corrupt values yield
// (nil, nil); only storage I/O failures are errors.
func (s *TokenStore) Load() (*TokenSet, error) {
	raw, ok, err := s.store.Get(KeyTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", strumerrors.ErrStorageFailure, err)
	}
	if !ok {
		return nil, nil
	}

	var t TokenSet
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		// Corrupt persisted value is treated as absent, not fatal.
		return nil, nil
	}
	return &t, nil
}

// GetValid returns a usable token set, refreshing first when the stored
// one is expired or inside the refresh buffer. Returns (nil, nil) when
// nothing is stored; a failed refresh clears storage and reports why.
func (s *TokenStore) GetValid(ctx context.Context) (*TokenSet, error) {
	t, err := s.Load()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	if !t.Expired() {
		return t, nil
	}
	return s.Refresh(ctx, t.RefreshToken)
}

// Refresh exchanges the refresh token for a new token set and persists
// it, carrying the old refresh token over when the server omits a new
// one. A server-side rejection clears stored tokens and returns
// ErrRefreshFailed; transport failures leave storage intact.
func (s *TokenStore) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	s.mu.Lock()
	if call := s.inflight; call != nil {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.tokens, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	s.inflight = call
	s.mu.Unlock()

	call.tokens, call.err = s.doRefresh(ctx, refreshToken)
	close(call.done)

	s.mu.Lock()
	s.inflight = nil
	s.mu.Unlock()

	return call.tokens, call.err
}

func (s *TokenStore) doRefresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if refreshToken == "" {
		_ = s.Clear()
		return nil, fmt.Errorf("%w: no refresh token stored", strumerrors.ErrRefreshFailed)
	}

	fresh, err := RefreshGrant(ctx, s.hc, s.tokenURL, s.clientID, refreshToken)
	if err != nil {
		if errors.Is(err, strumerrors.ErrNetworkFailure) {
			return nil, err
		}
		_ = s.Clear()
		return nil, fmt.Errorf("%w: %v", strumerrors.ErrRefreshFailed, err)
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = refreshToken
	}
	if err := s.Save(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Clear deletes the persisted tokens and the cached user profile.
func (s *TokenStore) Clear() error {
	if err := s.store.Remove(KeyTokens); err != nil {
		return fmt.Errorf("%w: %v", strumerrors.ErrStorageFailure, err)
	}
	if err := s.store.Remove(KeyUserProfile); err != nil {
		return fmt.Errorf("%w: %v", strumerrors.ErrStorageFailure, err)
	}
	return nil
}

// IsAuthenticated reports whether GetValid yields a token set with a
// non-empty access token.
func (s *TokenStore) IsAuthenticated(ctx context.Context) bool {
	t, err := s.GetValid(ctx)
	return err == nil && t != nil && t.AccessToken != ""
}
