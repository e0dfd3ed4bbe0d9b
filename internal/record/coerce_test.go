package record

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   any
		want    any
		wantErr bool
	}{
		{"numeric text", "port", "22", int64(22), false},
		{"numeric padded", "port", " 22 ", int64(22), false},
		{"json number", "port", json.Number("22"), int64(22), false},
		{"float64", "sshVerbosity", float64(3), int64(3), false},
		{"integral float text", "port", "22.0", int64(22), false},
		{"int", "port", 22, int64(22), false},
		{"blank", "port", "", nil, false},
		{"nil", "port", nil, nil, false},
		{"fractional", "port", "22.5", nil, true},
		{"garbage", "sshVerbosity", "loud", nil, true},
		{"int64 overflow", "port", "99999999999999999999", nil, true},
		{"negative overflow", "port", "-99999999999999999999", nil, true},
		{"float overflow", "port", "1e20", nil, true},
		{"float64 overflow", "port", float64(1e20), nil, true},
		{"infinity", "port", "Inf", nil, true},
		{"max int64", "port", "9223372036854775807", int64(9223372036854775807), false},
		{"text field", "host", "10.0.0.1", "10.0.0.1", false},
		{"text field number", "user", json.Number("7"), "7", false},
		{"text field nil", "user", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.field, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Coerce() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var cerr *CoercionError
				if !errors.As(err, &cerr) || cerr.Field != tt.field {
					t.Errorf("error = %v, want *CoercionError for %s", err, tt.field)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Coerce() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{nil, ""},
		{"abc", "abc"},
		{json.Number("22"), "22"},
		{22, "22"},
		{int64(22), "22"},
		{float64(22), "22"},
		{1.5, "1.5"},
		{true, "true"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.value); got != tt.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
