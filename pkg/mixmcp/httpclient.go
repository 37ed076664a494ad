package mixmcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/txn2/pimixer/pkg/mixapi/types"
)

// APIError is a non-2xx response from the REST API
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d (%s): %s", e.Status, e.Code, e.Message)
}

// HTTPClient talks to the pimixer REST API
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a new HTTP client for the pimixer API
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// BaseURL returns the API address the client targets
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// do sends a request and decodes the data field of the response envelope
func (c *HTTPClient) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "HTTP request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope struct {
		Success bool             `json:"success"`
		Data    json.RawMessage  `json:"data"`
		Error   *types.ErrorInfo `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		}
		return errors.Wrap(err, "failed to decode response")
	}

	if resp.StatusCode >= 300 || !envelope.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if result != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return errors.Wrap(err, "failed to decode response data")
		}
	}
	return nil
}

// Health returns the API health status
func (c *HTTPClient) Health(ctx context.Context) (types.HealthResponse, error) {
	var out types.HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &out)
	return out, err
}

// Channels returns the full control set
func (c *HTTPClient) Channels(ctx context.Context) (types.ChannelListResponse, error) {
	var out types.ChannelListResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/channels", nil, &out)
	return out, err
}

// SetChannel sets channel id to value
func (c *HTTPClient) SetChannel(ctx context.Context, id, value int) (types.ChannelResponse, error) {
	var out types.ChannelResponse
	err := c.do(ctx, http.MethodPut, "/api/v1/channels/"+strconv.Itoa(id),
		types.SetValueRequest{Value: &value}, &out)
	return out, err
}

// Mute mutes channel id
func (c *HTTPClient) Mute(ctx context.Context, id int) (types.ChannelResponse, error) {
	return c.channelAction(ctx, id, "mute")
}

// Unmute restores channel id
func (c *HTTPClient) Unmute(ctx context.Context, id int) (types.ChannelResponse, error) {
	return c.channelAction(ctx, id, "unmute")
}

// ToggleMute flips the mute state of channel id
func (c *HTTPClient) ToggleMute(ctx context.Context, id int) (types.ChannelResponse, error) {
	return c.channelAction(ctx, id, "toggle")
}

func (c *HTTPClient) channelAction(ctx context.Context, id int, action string) (types.ChannelResponse, error) {
	var out types.ChannelResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/channels/"+strconv.Itoa(id)+"/"+action, nil, &out)
	return out, err
}

// Touch reports a touch event
func (c *HTTPClient) Touch(ctx context.Context) (types.TouchResponse, error) {
	var out types.TouchResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/touch", nil, &out)
	return out, err
}

// DeviceLines returns up to count recent device lines, oldest first
func (c *HTTPClient) DeviceLines(ctx context.Context, count int) ([]string, error) {
	var out types.DeviceLinesResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/device/lines?count="+strconv.Itoa(count), nil, &out)
	return out.Lines, err
}
