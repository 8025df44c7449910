package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	strumerrors "github.com/vutran/strum/internal/errors"
	"github.com/vutran/strum/internal/kv"
)

func newTestStore(t *testing.T) (*TokenStore, kv.Store) {
	t.Helper()
	fs, err := kv.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return NewTokenStore(fs, "client_1"), fs
}

func TestTokenStoreSaveLoad(t *testing.T) {
	store, _ := newTestStore(t)

	saved := &TokenSet{
		AccessToken:  "access_1",
		RefreshToken: "refresh_1",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded == nil || loaded.AccessToken != "access_1" || loaded.RefreshToken != "refresh_1" {
		t.Errorf("Load() = %+v, want saved token set", loaded)
	}
}

func TestTokenStoreLoadAbsent(t *testing.T) {
	store, _ := newTestStore(t)

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != nil {
		t.Errorf("Load() = %+v, want nil for absent tokens", loaded)
	}
}

func TestTokenStoreLoadCorrupt(t *testing.T) {
	store, fs := newTestStore(t)

	if err := fs.Set(KeyTokens, "{not json"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Errorf("Load() error = %v, want nil for corrupt value", err)
	}
	if loaded != nil {
		t.Errorf("Load() = %+v, want nil for corrupt value", loaded)
	}
}

func TestGetValidFreshToken(t *testing.T) {
	store, _ := newTestStore(t)

	fresh := &TokenSet{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)}
	if err := store.Save(fresh); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.GetValid(context.Background())
	if err != nil {
		t.Fatalf("GetValid() error = %v", err)
	}
	if got == nil || got.AccessToken != "a" {
		t.Errorf("GetValid() = %+v, want stored token unchanged", got)
	}
}

// A token already expired must trigger exactly one refresh and come
// back with a later expiry.
func TestGetValidExpiredRefreshes(t *testing.T) {
	var refreshes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		_ = r.ParseForm()
		if got := r.FormValue("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		_ = json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: "access_new",
			ExpiresIn:   3600,
		})
	}))
	defer server.Close()

	store, _ := newTestStore(t)
	store.SetTokenURL(server.URL)

	stale := &TokenSet{
		AccessToken:  "access_old",
		RefreshToken: "refresh_old",
		ExpiresAt:    time.Now().Add(-time.Second),
	}
	if err := store.Save(stale); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.GetValid(context.Background())
	if err != nil {
		t.Fatalf("GetValid() error = %v", err)
	}
	if got.AccessToken != "access_new" {
		t.Errorf("AccessToken = %q, want access_new", got.AccessToken)
	}
	if !got.ExpiresAt.After(time.Now()) {
		t.Errorf("ExpiresAt = %v, want in the future", got.ExpiresAt)
	}
	// Old refresh token carried over when the server omits a new one.
	if got.RefreshToken != "refresh_old" {
		t.Errorf("RefreshToken = %q, want carried-over refresh_old", got.RefreshToken)
	}
	if n := refreshes.Load(); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}

	// The refreshed set is persisted.
	reloaded, _ := store.Load()
	if reloaded.AccessToken != "access_new" {
		t.Errorf("persisted AccessToken = %q, want access_new", reloaded.AccessToken)
	}
}

// A token inside the 5 minute buffer is treated the same as expired.
func TestGetValidInsideBufferRefreshes(t *testing.T) {
	var refreshes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "new", ExpiresIn: 3600})
	}))
	defer server.Close()

	store, _ := newTestStore(t)
	store.SetTokenURL(server.URL)

	almost := &TokenSet{
		AccessToken:  "old",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(RefreshBuffer - 10*time.Second),
	}
	_ = store.Save(almost)

	if _, err := store.GetValid(context.Background()); err != nil {
		t.Fatalf("GetValid() error = %v", err)
	}
	if n := refreshes.Load(); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
}

func TestRefreshRejectedClearsTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(tokenResponse{Error: "invalid_grant"})
	}))
	defer server.Close()

	store, fs := newTestStore(t)
	store.SetTokenURL(server.URL)

	_ = store.Save(&TokenSet{AccessToken: "a", RefreshToken: "bad", ExpiresAt: time.Now().Add(-time.Minute)})
	_ = fs.Set(KeyUserProfile, `{"id":"u1"}`)

	_, err := store.GetValid(context.Background())
	if !errors.Is(err, strumerrors.ErrRefreshFailed) {
		t.Fatalf("GetValid() error = %v, want ErrRefreshFailed", err)
	}

	// Rejection clears both the tokens and the cached profile.
	if tok, _ := store.Load(); tok != nil {
		t.Error("tokens still present after rejected refresh")
	}
	if _, ok, _ := fs.Get(KeyUserProfile); ok {
		t.Error("cached profile still present after rejected refresh")
	}
}

func TestRefreshNetworkFailureKeepsTokens(t *testing.T) {
	store, _ := newTestStore(t)
	store.SetTokenURL("http://127.0.0.1:1/token") // nothing listens here

	_ = store.Save(&TokenSet{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Minute)})

	_, err := store.GetValid(context.Background())
	if !errors.Is(err, strumerrors.ErrNetworkFailure) {
		t.Fatalf("GetValid() error = %v, want ErrNetworkFailure", err)
	}
	if tok, _ := store.Load(); tok == nil {
		t.Error("tokens cleared on transport failure, should be retryable")
	}
}

// Concurrent GetValid calls while a refresh is in flight coalesce into
// one outstanding request.
func TestRefreshSingleFlight(t *testing.T) {
	var refreshes atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(tokenResponse{AccessToken: "new", ExpiresIn: 3600})
	}))
	defer server.Close()

	store, _ := newTestStore(t)
	store.SetTokenURL(server.URL)
	_ = store.Save(&TokenSet{AccessToken: "old", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Minute)})

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*TokenSet, callers)
	errs := make([]error, callers)

	// First caller reaches the server and blocks it there, the rest
	// pile in behind the in-flight call.
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = store.GetValid(context.Background())
	}()
	time.Sleep(100 * time.Millisecond)

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.Refresh(context.Background(), "r")
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d error = %v", i, errs[i])
		}
		if results[i] == nil || results[i].AccessToken != "new" {
			t.Errorf("caller %d got %+v, want refreshed token", i, results[i])
		}
	}
	if n := refreshes.Load(); n != 1 {
		t.Errorf("refresh requests = %d, want 1 (single flight)", n)
	}
}

func TestIsAuthenticated(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Fresh install, nothing stored.
	if store.IsAuthenticated(ctx) {
		t.Error("IsAuthenticated() = true with no stored tokens")
	}

	_ = store.Save(&TokenSet{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)})
	if !store.IsAuthenticated(ctx) {
		t.Error("IsAuthenticated() = false with a valid token")
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if store.IsAuthenticated(ctx) {
		t.Error("IsAuthenticated() = true after Clear()")
	}
}
