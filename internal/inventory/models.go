package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Resource is a JSON object returned by the inventory API.
// Numbers are kept as json.Number so integer fields survive decoding intact.
type Resource map[string]any

// Envelope is the response wrapper shared by every endpoint:
//
//	{"success": true, "data": {...}}
//	{"success": false, "description": "device r1 already exists"}
type Envelope struct {
	Success     *bool           `json:"success"`
	Data        json.RawMessage `json:"data,omitempty"`
	Description string          `json:"description,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// Failure returns the human-readable failure text of the envelope, or def
// when the server supplied none
func (e *Envelope) Failure(def string) string {
	if e.Description != "" {
		return e.Description
	}
	if e.Message != "" {
		return e.Message
	}
	return def
}

// DeviceEntry pairs the two sub-resources the API stores per device
type DeviceEntry struct {
	Device Resource `json:"device"`
	SSH    Resource `json:"ssh"`
}

// Name returns the device's unique key
func (d *DeviceEntry) Name() string {
	if d.Device == nil {
		return ""
	}
	name, _ := d.Device["name"].(string)
	return name
}

// Summary decodes the identity fields shown in device lists
func (d *DeviceEntry) Summary() DeviceSummary {
	var s DeviceSummary
	_ = DecodeResource(d.Device, &s)
	return s
}

// DeviceSummary is the typed identity view of a device resource
type DeviceSummary struct {
	Name       string `mapstructure:"name" json:"name"`
	DeviceName string `mapstructure:"deviceName" json:"deviceName"`
	VendorName string `mapstructure:"vendorName" json:"vendorName"`
	Host       string `mapstructure:"host" json:"host"`
}

// SSHProfile is the typed view of a device's SSH sub-resource or the global
// SSH defaults
type SSHProfile struct {
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Port              int    `mapstructure:"port"`
	SSHVerbosity      int    `mapstructure:"sshVerbosity"`
	KexMethods        string `mapstructure:"kexMethods"`
	HostkeyAlgorithms string `mapstructure:"hostkeyAlgorithms"`
}

// DecodeResource decodes a resource into a typed struct. Input is weakly
// typed so "22", 22 and json.Number("22") all land in an int field.
func DecodeResource(r map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(r); err != nil {
		return fmt.Errorf("failed to decode resource: %w", err)
	}
	return nil
}

// DeviceConfig is the configuration text pulled from a device.
// The API returns either a single string or a list of lines.
type DeviceConfig struct {
	Lines []string
}

// UnmarshalJSON accepts both `"text"` and `["line", ...]`
func (c *DeviceConfig) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		c.Lines = nil
		return nil
	}

	switch data[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		c.Lines = strings.Split(text, "\n")
		return nil
	case '[':
		var lines []string
		if err := json.Unmarshal(data, &lines); err != nil {
			return err
		}
		c.Lines = lines
		return nil
	default:
		return fmt.Errorf("config must be a string or a list of strings, got %s", string(data[:1]))
	}
}

// Text returns the configuration joined by newlines
func (c *DeviceConfig) Text() string {
	return strings.Join(c.Lines, "\n")
}

// Response payloads

type deviceListData struct {
	Devices []DeviceEntry `json:"devices"`
}

type deviceConfigData struct {
	Config *DeviceConfig `json:"config"`
}

type settingsData struct {
	SSH Resource `json:"ssh"`
}
