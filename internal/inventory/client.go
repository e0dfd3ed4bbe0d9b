package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/muurk/chronicle/internal/logging"
	"github.com/muurk/chronicle/internal/version"
)

const (
	// DefaultBaseURL is where the inventory API listens unless configured otherwise
	DefaultBaseURL = "http://127.0.0.1:8000"

	// DefaultTimeout is the default HTTP request timeout.
	// Configuration pulls log into the device over SSH, so this is generous.
	DefaultTimeout = 60 * time.Second

	// RequestIDHeader carries a per-request correlation ID
	RequestIDHeader = "X-Request-ID"
)

// Client issues typed calls against the inventory and settings endpoints.
//
// Every call is attempted exactly once. A failed call surfaces immediately;
// retry policy belongs to the caller.
type Client struct {
	// BaseURL is the API root (e.g., "http://127.0.0.1:8000")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewClient creates a client for the API at baseURL
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// SetTimeout sets the HTTP request timeout. Zero disables the timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// ListDevices returns every device with its SSH sub-resource
func (c *Client) ListDevices(ctx context.Context) ([]DeviceEntry, error) {
	var data deviceListData
	if err := c.do(ctx, "ListDevices", http.MethodGet, "/devices/", nil, &data); err != nil {
		return nil, err
	}
	if data.Devices == nil {
		return []DeviceEntry{}, nil
	}
	return data.Devices, nil
}

// GetDevice returns the device and SSH sub-resources for name
func (c *Client) GetDevice(ctx context.Context, name string) (*DeviceEntry, error) {
	var entry DeviceEntry
	if err := c.do(ctx, "GetDevice", http.MethodGet, "/devices/"+url.PathEscape(name), nil, &entry); err != nil {
		return nil, err
	}
	if entry.Device == nil {
		return nil, NewUnknownError("GetDevice", http.StatusOK, "response is missing the device resource", nil)
	}
	return &entry, nil
}

// CreateDevice creates a device under the nickname name with the given fields
func (c *Client) CreateDevice(ctx context.Context, name string, fields url.Values) error {
	return c.do(ctx, "CreateDevice", http.MethodPost, "/devices/create/"+url.PathEscape(name), fields, nil)
}

// ModifyDevice sends a partial update. Only the fields present in changes
// are touched on the server; present-but-empty values clear a field.
func (c *Client) ModifyDevice(ctx context.Context, name string, changes url.Values) error {
	return c.do(ctx, "ModifyDevice", http.MethodPost, "/devices/modify/"+url.PathEscape(name), changes, nil)
}

// DeleteDevice removes a device
func (c *Client) DeleteDevice(ctx context.Context, name string) error {
	return c.do(ctx, "DeleteDevice", http.MethodDelete, "/devices/"+url.PathEscape(name), nil, nil)
}

// FetchDeviceConfig pulls the running configuration of a device
func (c *Client) FetchDeviceConfig(ctx context.Context, name string) (*DeviceConfig, error) {
	var data deviceConfigData
	if err := c.do(ctx, "FetchDeviceConfig", http.MethodGet, "/devices/"+url.PathEscape(name)+"/config", nil, &data); err != nil {
		return nil, err
	}
	if data.Config == nil {
		return nil, NewUnknownError("FetchDeviceConfig", http.StatusOK, "response is missing the config field", nil)
	}
	return data.Config, nil
}

// GetSettings returns the global SSH defaults
func (c *Client) GetSettings(ctx context.Context) (Resource, error) {
	var data settingsData
	if err := c.do(ctx, "GetSettings", http.MethodGet, "/settings/", nil, &data); err != nil {
		return nil, err
	}
	if data.SSH == nil {
		return nil, NewUnknownError("GetSettings", http.StatusOK, "response is missing the ssh settings", nil)
	}
	return data.SSH, nil
}

// UpdateSettings sends a partial update of the global SSH defaults
func (c *Client) UpdateSettings(ctx context.Context, changes url.Values) error {
	return c.do(ctx, "UpdateSettings", http.MethodPost, "/settings/", changes, nil)
}

// do performs a single request and unwraps the response envelope into out.
// out may be nil for endpoints that only report success.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, out any) error {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return NewUnknownError(op, 0, "failed to create request", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set(RequestIDHeader, requestID)

	logging.LogRequest(requestID, method, target)
	start := time.Now()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		netErr := NewNetworkError(op, err)
		logging.LogResponse(requestID, 0, time.Since(start), netErr)
		return netErr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		netErr := NewNetworkError(op, err)
		logging.LogResponse(requestID, resp.StatusCode, time.Since(start), netErr)
		return netErr
	}

	err = decodeEnvelope(op, resp.StatusCode, body, out)
	logging.LogResponse(requestID, resp.StatusCode, time.Since(start), err)
	return err
}

// decodeEnvelope interprets a response body. success is authoritative:
// a missing or false flag is an error whatever the status code says.
func decodeEnvelope(op string, statusCode int, body []byte, out any) error {
	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		switch {
		case statusCode == http.StatusNotFound:
			return NewServerError(op, statusCode, "resource not found")
		case statusCode >= 500:
			return NewServerError(op, statusCode, fmt.Sprintf("server returned HTTP %d", statusCode))
		default:
			return NewUnknownError(op, statusCode, "response is not a JSON envelope", err)
		}
	}

	if env.Success == nil {
		return NewUnknownError(op, statusCode, "response is missing the success flag", nil)
	}

	if !*env.Success {
		return NewServerError(op, statusCode, env.Failure(defaultFailure(op)))
	}

	if out == nil {
		return nil
	}

	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return NewUnknownError(op, statusCode, "response is missing data", nil)
	}

	dataDec := json.NewDecoder(bytes.NewReader(env.Data))
	dataDec.UseNumber()
	if err := dataDec.Decode(out); err != nil {
		return NewUnknownError(op, statusCode, "response data has an unexpected shape", err)
	}

	return nil
}

// defaultFailure is the message used when the server gives no description
func defaultFailure(op string) string {
	switch op {
	case "ListDevices":
		return "Failed to list devices"
	case "GetDevice":
		return "Failed to fetch device data"
	case "CreateDevice":
		return "Failed to create device"
	case "ModifyDevice":
		return "Failed to save changes"
	case "DeleteDevice":
		return "Failed to delete device"
	case "FetchDeviceConfig":
		return "Error fetching config"
	case "GetSettings":
		return "Failed to fetch settings"
	case "UpdateSettings":
		return "Failed to update settings"
	default:
		return "Request failed"
	}
}
