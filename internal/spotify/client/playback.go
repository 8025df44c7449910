package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	strumerrors "github.com/vutran/strum/internal/errors"
)

// GetPlaybackState returns the remote playback state, or nil when no
// device is playing anything.
func (c *Client) GetPlaybackState(ctx context.Context) (*PlaybackState, error) {
	var state PlaybackState
	err := c.Get(ctx, "/me/player", &state)
	if IsNoContent(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// GetDevices returns the user's available playback devices.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	var resp DevicesResponse
	if err := c.Get(ctx, "/me/player/devices", &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// PlayOptions configures a remote play request.
type PlayOptions struct {
	ContextURI string      `json:"context_uri,omitempty"`
	URIs       []string    `json:"uris,omitempty"`
	Offset     *PlayOffset `json:"offset,omitempty"`
	PositionMS int         `json:"position_ms,omitempty"`
}

// PlayOffset specifies where to start playback in a context.
type PlayOffset struct {
	Position int    `json:"position,omitempty"` // Track index
	URI      string `json:"uri,omitempty"`      // Track URI
}

// Play starts or resumes remote playback. A nil opts resumes the
// current context. An empty deviceID targets the active device.
func (c *Client) Play(ctx context.Context, deviceID string, opts *PlayOptions) error {
	path := deviceParam("/me/player/play", deviceID, nil)
	// The API requires a JSON body even for a plain resume.
	body := opts
	if body == nil {
		body = &PlayOptions{}
	}
	return noDevice(c.Put(ctx, path, body, nil))
}

// Pause pauses remote playback.
func (c *Client) Pause(ctx context.Context, deviceID string) error {
	return noDevice(c.Put(ctx, deviceParam("/me/player/pause", deviceID, nil), nil, nil))
}

// Next skips the remote player to the next track.
func (c *Client) Next(ctx context.Context, deviceID string) error {
	return noDevice(c.Post(ctx, deviceParam("/me/player/next", deviceID, nil), nil, nil))
}

// Previous skips the remote player to the previous track.
func (c *Client) Previous(ctx context.Context, deviceID string) error {
	return noDevice(c.Post(ctx, deviceParam("/me/player/previous", deviceID, nil), nil, nil))
}

// Seek seeks the remote player to a position in the current track.
func (c *Client) Seek(ctx context.Context, positionMS int, deviceID string) error {
	params := map[string]string{"position_ms": strconv.Itoa(positionMS)}
	return noDevice(c.Put(ctx, deviceParam("/me/player/seek", deviceID, params), nil, nil))
}

// SetVolume sets the remote playback volume (0-100).
func (c *Client) SetVolume(ctx context.Context, percent int, deviceID string) error {
	params := map[string]string{"volume_percent": strconv.Itoa(percent)}
	return noDevice(c.Put(ctx, deviceParam("/me/player/volume", deviceID, params), nil, nil))
}

// SetRepeat sets the remote repeat mode (off, track, context).
func (c *Client) SetRepeat(ctx context.Context, state string, deviceID string) error {
	params := map[string]string{"state": state}
	return noDevice(c.Put(ctx, deviceParam("/me/player/repeat", deviceID, params), nil, nil))
}

// SetShuffle sets the remote shuffle mode.
func (c *Client) SetShuffle(ctx context.Context, state bool, deviceID string) error {
	params := map[string]string{"state": strconv.FormatBool(state)}
	return noDevice(c.Put(ctx, deviceParam("/me/player/shuffle", deviceID, params), nil, nil))
}

// TransferPlayback moves remote playback to another device.
func (c *Client) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	body := map[string]interface{}{
		"device_ids": []string{deviceID},
		"play":       play,
	}
	return c.Put(ctx, "/me/player", body, nil)
}

func deviceParam(path, deviceID string, params map[string]string) string {
	if params == nil {
		params = make(map[string]string)
	}
	if deviceID != "" {
		params["device_id"] = deviceID
	}
	return BuildURL(path, params)
}

// noDevice maps the player endpoints' 404 to the no-active-device
// sentinel so callers get an actionable suggestion.
func noDevice(err error) error {
	if strumerrors.IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("%w: %v", strumerrors.ErrNoActiveDevice, err)
	}
	return err
}
