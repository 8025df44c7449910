package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the auth and playback failure taxonomy.
var (
	// ErrUnauthenticated means no usable token exists and refresh was
	// unavailable or failed. Callers should prompt for re-login.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrRefreshFailed means the server rejected the refresh token.
	// Stored tokens are cleared when this is returned.
	ErrRefreshFailed = errors.New("token refresh rejected")

	// ErrStorageFailure means local token persistence failed.
	ErrStorageFailure = errors.New("token storage failure")

	// ErrNetworkFailure means a network call failed at the transport
	// level. Retryable.
	ErrNetworkFailure = errors.New("network failure")

	// ErrLoginInProgress means a login attempt was started while
	// another one is still in flight.
	ErrLoginInProgress = errors.New("login already in progress")

	// ErrLoginCancelled means the user dismissed the browser session
	// without completing authorization.
	ErrLoginCancelled = errors.New("login cancelled")

	ErrNoActiveDevice = errors.New("no active device")
	ErrRateLimited    = errors.New("rate limited")

	// ErrNoContent means the API answered 2xx with an empty body, such
	// as the playback state endpoint when nothing is playing.
	ErrNoContent = errors.New("no content")
)

// APIError is a non-401 non-2xx response from the catalog API, carrying
// the remote error body's message when one was present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d", e.Status)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// PlaybackError wraps an audio engine failure for a specific track. The
// session converts these to idle transport state rather than letting
// them escape.
type PlaybackError struct {
	TrackID string
	Err     error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback failed for track %s: %v", e.TrackID, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// GetSuggestion returns a user-facing hint for the given error, or ""
// when there is nothing helpful to say.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrRefreshFailed):
		return "Run 'strum auth login' to authenticate"
	case errors.Is(err, ErrNoActiveDevice):
		return "Open the streaming app on a device and start playing, or use --device"
	case errors.Is(err, ErrRateLimited), IsStatus(err, 429):
		return "Too many requests. Wait a moment and try again"
	case errors.Is(err, ErrNetworkFailure):
		return "Check your internet connection and try again"
	case errors.Is(err, ErrStorageFailure):
		return "Check permissions on the strum config directory"
	}

	if strings.Contains(strings.ToLower(err.Error()), "premium") {
		return "This feature requires a premium subscription"
	}

	return ""
}

// Format renders an error with its suggestion, if any, for terminal
// display.
func Format(err error) string {
	if err == nil {
		return ""
	}

	if s := GetSuggestion(err); s != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), s)
	}
	return fmt.Sprintf("Error: %s", err.Error())
}
