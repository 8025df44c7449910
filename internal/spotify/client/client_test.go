package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	strumerrors "github.com/vutran/strum/internal/errors"
	"github.com/vutran/strum/internal/kv"
	"github.com/vutran/strum/internal/spotify/auth"
)

func freshTokens(access string) *auth.TokenSet {
	return &auth.TokenSet{
		AccessToken:  access,
		RefreshToken: "refresh_1",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

// newTestClient wires a client against an httptest API server, with a
// token store pre-seeded by seed (nil means unauthenticated). The
// returned refreshes counter tracks hits on the token endpoint.
func newTestClient(t *testing.T, seed *auth.TokenSet, handler http.HandlerFunc) (*Client, *auth.TokenStore, *atomic.Int32) {
	t.Helper()

	fs, err := kv.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	store := auth.NewTokenStore(fs, "client_1")

	var refreshes atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "refreshed_access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(tokenServer.Close)
	store.SetTokenURL(tokenServer.URL)

	if seed != nil {
		if err := store.Save(seed); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	apiServer := httptest.NewServer(handler)
	t.Cleanup(apiServer.Close)

	c := New(store, fs)
	c.SetBaseURL(apiServer.URL)
	return c, store, &refreshes
}

func TestRequestUnauthenticatedWithoutSending(t *testing.T) {
	var hits atomic.Int32
	c, _, _ := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	err := c.Get(context.Background(), "/me", &User{})
	if !errors.Is(err, strumerrors.ErrUnauthenticated) {
		t.Fatalf("Get() error = %v, want ErrUnauthenticated", err)
	}
	if hits.Load() != 0 {
		t.Errorf("API was hit %d times without credentials", hits.Load())
	}
}

func TestRequestSendsBearer(t *testing.T) {
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access_1" {
			t.Errorf("Authorization = %q, want Bearer access_1", got)
		}
		_ = json.NewEncoder(w).Encode(User{ID: "u1"})
	})

	var user User
	if err := c.Get(context.Background(), "/me", &user); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("ID = %q, want u1", user.ID)
	}
}

// A 401 triggers one refresh and one retry; the retried request carries
// the new access token.
func TestRequestRetriesOnceAfter401(t *testing.T) {
	var hits atomic.Int32
	c, _, refreshes := newTestClient(t, freshTokens("stale_access"), func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") == "Bearer refreshed_access" {
			_ = json.NewEncoder(w).Encode(User{ID: "u1"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	var user User
	if err := c.Get(context.Background(), "/me", &user); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("ID = %q, want u1", user.ID)
	}
	if hits.Load() != 2 {
		t.Errorf("API hits = %d, want 2", hits.Load())
	}
	if refreshes.Load() != 1 {
		t.Errorf("refreshes = %d, want 1", refreshes.Load())
	}
}

// A second 401 after a successful refresh gives up rather than looping.
func TestRequestPersistent401(t *testing.T) {
	var hits atomic.Int32
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.Get(context.Background(), "/me", &User{})
	if !errors.Is(err, strumerrors.ErrUnauthenticated) {
		t.Fatalf("Get() error = %v, want ErrUnauthenticated", err)
	}
	if hits.Load() != 2 {
		t.Errorf("API hits = %d, want exactly 2", hits.Load())
	}
}

func TestRequestAPIError(t *testing.T) {
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"status": 403, "message": "Premium required"}}`))
	})

	err := c.Get(context.Background(), "/me/player/play", &struct{}{})
	var apiErr *strumerrors.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Get() error = %v, want *APIError", err)
	}
	if apiErr.Status != 403 || apiErr.Message != "Premium required" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestRequestRateLimited(t *testing.T) {
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"status": 429, "message": "rate limit"}}`))
	})

	err := c.Get(context.Background(), "/search", &SearchResponse{})
	if !errors.Is(err, strumerrors.ErrRateLimited) {
		t.Fatalf("Get() error = %v, want ErrRateLimited", err)
	}
}

func TestGetPlaybackStateNoContent(t *testing.T) {
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	state, err := c.GetPlaybackState(context.Background())
	if err != nil {
		t.Fatalf("GetPlaybackState() error = %v", err)
	}
	if state != nil {
		t.Errorf("state = %+v, want nil when nothing is playing", state)
	}
}

func TestCommandTolerate204(t *testing.T) {
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.Pause(context.Background(), ""); err != nil {
		t.Errorf("Pause() error = %v, want nil on 204", err)
	}
}

func TestPlayNoActiveDevice(t *testing.T) {
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"status": 404, "message": "No active device found"}}`))
	})

	err := c.Play(context.Background(), "", nil)
	if !errors.Is(err, strumerrors.ErrNoActiveDevice) {
		t.Fatalf("Play() error = %v, want ErrNoActiveDevice", err)
	}
}

func TestGetCurrentUserCachesProfile(t *testing.T) {
	var fail atomic.Bool
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(User{ID: "u1", DisplayName: "Vu"})
	})

	ctx := context.Background()
	user, err := c.GetCurrentUser(ctx)
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if user.DisplayName != "Vu" {
		t.Fatalf("DisplayName = %q", user.DisplayName)
	}

	// Server goes away; the cached profile is served instead.
	fail.Store(true)
	cached, err := c.GetCurrentUser(ctx)
	if err != nil {
		t.Fatalf("GetCurrentUser() with cache error = %v", err)
	}
	if cached.ID != "u1" || cached.DisplayName != "Vu" {
		t.Errorf("cached profile = %+v", cached)
	}
}

func TestGetCurrentUserNoCacheNoServer(t *testing.T) {
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"status": 500, "message": "boom"}}`))
	})

	if _, err := c.GetCurrentUser(context.Background()); err == nil {
		t.Fatal("GetCurrentUser() expected error with no cache and failing server")
	}
}

func TestAreTracksSaved(t *testing.T) {
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "t1,t2,t3" {
			t.Errorf("ids = %q, want t1,t2,t3", got)
		}
		_, _ = w.Write([]byte(`[true, false, true]`))
	})

	saved, err := c.AreTracksSaved(context.Background(), []string{"t1", "t2", "t3"})
	if err != nil {
		t.Fatalf("AreTracksSaved() error = %v", err)
	}
	want := []bool{true, false, true}
	if len(saved) != len(want) {
		t.Fatalf("len = %d, want %d", len(saved), len(want))
	}
	for i := range want {
		if saved[i] != want[i] {
			t.Errorf("saved[%d] = %v, want %v", i, saved[i], want[i])
		}
	}
}

func TestAreTracksSavedEmpty(t *testing.T) {
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty input should not hit the API")
	})

	saved, err := c.AreTracksSaved(context.Background(), nil)
	if err != nil || saved != nil {
		t.Errorf("AreTracksSaved(nil) = %v, %v", saved, err)
	}
}

func TestSearchBuildsQuery(t *testing.T) {
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "nirvana" {
			t.Errorf("q = %q", q.Get("q"))
		}
		if q.Get("type") != "track,album" {
			t.Errorf("type = %q", q.Get("type"))
		}
		if q.Get("limit") != "5" {
			t.Errorf("limit = %q", q.Get("limit"))
		}
		_, _ = w.Write([]byte(`{"tracks": {"items": [{"id": "t1", "name": "Lithium"}], "total": 1}}`))
	})

	resp, err := c.Search(context.Background(), SearchOptions{
		Query: "nirvana",
		Types: []SearchType{SearchTypeTrack, SearchTypeAlbum},
		Limit: 5,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Tracks == nil || len(resp.Tracks.Items) != 1 || resp.Tracks.Items[0].Name != "Lithium" {
		t.Errorf("unexpected search response: %+v", resp)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	c, _, _ := newTestClient(t, freshTokens("access_1"), func(w http.ResponseWriter, r *http.Request) {})
	if _, err := c.Search(context.Background(), SearchOptions{}); err == nil {
		t.Fatal("Search() with empty query expected error")
	}
}
