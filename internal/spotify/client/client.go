package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	strumerrors "github.com/vutran/strum/internal/errors"
	"github.com/vutran/strum/internal/kv"
	"github.com/vutran/strum/internal/spotify/auth"
)

// BaseURL is the Spotify Web API base URL.
const BaseURL = "https://api.spotify.com/v1"

// Client is an authenticated Spotify API client. Tokens come from the
// TokenStore on every call; the client holds no token state of its own.
type Client struct {
	httpClient *http.Client
	tokens     *auth.TokenStore
	cache      kv.Store
	baseURL    string
	verbose    bool
	logFunc    func(format string, args ...interface{})
}

// New creates a Spotify client backed by the given token store. cache
// holds the user profile read-through entry and may be the same store
// the tokens live in.
func New(tokens *auth.TokenStore, cache kv.Store) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		cache:      cache,
		baseURL:    BaseURL,
	}
}

// SetBaseURL overrides the API base URL. Used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// SetVerbose enables verbose logging.
func (c *Client) SetVerbose(verbose bool, logFunc func(format string, args ...interface{})) {
	c.verbose = verbose
	c.logFunc = logFunc
}

func (c *Client) log(format string, args ...interface{}) {
	if c.verbose && c.logFunc != nil {
		c.logFunc(format, args...)
	}
}

// IsAuthenticated reports whether a usable token set exists.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	return c.tokens.IsAuthenticated(ctx)
}

// Get performs a GET request to the Spotify API.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.request(ctx, http.MethodGet, path, nil, result)
}

// Post performs a POST request to the Spotify API.
func (c *Client) Post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.request(ctx, http.MethodPost, path, body, result)
}

// Put performs a PUT request to the Spotify API.
func (c *Client) Put(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.request(ctx, http.MethodPut, path, body, result)
}

// Delete performs a DELETE request to the Spotify API.
func (c *Client) Delete(ctx context.Context, path string, body interface{}) error {
	return c.request(ctx, http.MethodDelete, path, body, nil)
}

// request sends one authenticated call. A 401 response forces a token
// refresh and retries the same request exactly once; a second 401 (or a
// failed refresh) surfaces as ErrUnauthenticated.
func (c *Client) request(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	tokens, err := c.tokens.GetValid(ctx)
	if err != nil {
		return err
	}
	if tokens == nil {
		return strumerrors.ErrUnauthenticated
	}

	var jsonBody []byte
	if body != nil {
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	fullURL := c.baseURL + path
	c.log("[spotify] %s %s", method, fullURL)

	status, respBody, err := c.send(ctx, method, fullURL, jsonBody, tokens.AccessToken)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		c.log("[spotify] 401, refreshing token and retrying once")
		fresh, err := c.tokens.Refresh(ctx, tokens.RefreshToken)
		if err != nil {
			return fmt.Errorf("%w: %v", strumerrors.ErrUnauthenticated, err)
		}
		status, respBody, err = c.send(ctx, method, fullURL, jsonBody, fresh.AccessToken)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return strumerrors.ErrUnauthenticated
		}
	}

	c.log("[spotify] response: %d %s", status, http.StatusText(status))

	if status >= 400 {
		return apiError(status, respBody)
	}

	if status == http.StatusNoContent || len(respBody) == 0 {
		if result == nil {
			return nil
		}
		return strumerrors.ErrNoContent
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, fullURL string, jsonBody []byte, accessToken string) (int, []byte, error) {
	var bodyReader io.Reader
	if jsonBody != nil {
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if jsonBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", strumerrors.ErrNetworkFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// apiError maps a non-2xx response to the error taxonomy, parsing the
// standard `{"error": {"status": ..., "message": ...}}` body shape.
func apiError(status int, body []byte) error {
	var wire struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	message := ""
	if err := json.Unmarshal(body, &wire); err == nil {
		message = wire.Error.Message
	}

	apiErr := &strumerrors.APIError{Status: status, Message: message}
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", strumerrors.ErrRateLimited, apiErr)
	}
	return apiErr
}

// IsNoContent reports whether err is the empty-body sentinel.
func IsNoContent(err error) bool {
	return errors.Is(err, strumerrors.ErrNoContent)
}

// BuildURL builds a path with query parameters.
func BuildURL(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}

	u, _ := url.Parse(path)
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
