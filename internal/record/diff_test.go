package record

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestDiff_OnlyChangedFields(t *testing.T) {
	baseline := Record{"port": json.Number("22"), "host": "a"}

	buf := BufferFrom(baseline)
	buf.Set("port", "22")
	buf.Set("host", "b")

	changes, err := Diff(baseline, buf)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	if changes.Len() != 1 {
		t.Fatalf("Diff() = %v, want only host", changes.Keys())
	}
	if v, _ := changes.Get("host"); v != "b" {
		t.Errorf("host = %v, want b", v)
	}
}

func TestDiff_Cases(t *testing.T) {
	tests := []struct {
		name     string
		baseline Record
		edits    map[string]string
		want     map[string]string
	}{
		{
			name:     "untouched empty field never emitted",
			baseline: Record{"kexMethods": "", "user": "admin"},
			edits:    map[string]string{},
			want:     map[string]string{},
		},
		{
			name:     "touched but equal",
			baseline: Record{"user": "admin"},
			edits:    map[string]string{"user": "admin"},
			want:     map[string]string{},
		},
		{
			name:     "missing in baseline, non-empty edit",
			baseline: Record{"user": "admin"},
			edits:    map[string]string{"kexMethods": "curve25519-sha256"},
			want:     map[string]string{"kexMethods": "curve25519-sha256"},
		},
		{
			name:     "missing in baseline, empty edit",
			baseline: Record{"user": "admin"},
			edits:    map[string]string{"kexMethods": ""},
			want:     map[string]string{},
		},
		{
			name:     "clearing a text field",
			baseline: Record{"kexMethods": "dh"},
			edits:    map[string]string{"kexMethods": ""},
			want:     map[string]string{"kexMethods": ""},
		},
		{
			name:     "clearing a numeric field",
			baseline: Record{"sshVerbosity": json.Number("2")},
			edits:    map[string]string{"sshVerbosity": ""},
			want:     map[string]string{"sshVerbosity": ""},
		},
		{
			name:     "numeric change",
			baseline: Record{"port": json.Number("22")},
			edits:    map[string]string{"port": "2222"},
			want:     map[string]string{"port": "2222"},
		},
		{
			name:     "numeric equal with different text",
			baseline: Record{"port": float64(22)},
			edits:    map[string]string{"port": "022"},
			want:     map[string]string{},
		},
		{
			name:     "nil baseline emits non-empty touched",
			baseline: nil,
			edits:    map[string]string{"user": "root", "host": ""},
			want:     map[string]string{"user": "root"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := BufferFrom(tt.baseline)
			for k, v := range tt.edits {
				buf.Set(k, v)
			}

			changes, err := Diff(tt.baseline, buf)
			if err != nil {
				t.Fatalf("Diff() error = %v", err)
			}

			got := changes.Values()
			if len(got) != len(tt.want) {
				t.Fatalf("Diff() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if vals, ok := got[k]; !ok || vals[0] != v {
					t.Errorf("%s = %v, want %q", k, vals, v)
				}
			}
		})
	}
}

func TestDiff_CoercionErrorsAggregated(t *testing.T) {
	buf := NewEditBuffer("port", "sshVerbosity", "user")
	buf.Set("port", "abc")
	buf.Set("sshVerbosity", "x")
	buf.Set("user", "root")

	_, err := Diff(Record{}, buf)
	if err == nil {
		t.Fatal("Diff() should fail")
	}
	msg := err.Error()
	if !strings.Contains(msg, "port must be an integer") || !strings.Contains(msg, "sshVerbosity must be an integer") {
		t.Errorf("error = %q, want both fields reported", msg)
	}
}

func TestDiff_OversizedNumberRejected(t *testing.T) {
	for _, value := range []string{"99999999999999999999", "1e20"} {
		buf := BufferFrom(Record{"port": 22})
		buf.Set("port", value)

		changes, err := Diff(Record{"port": 22}, buf)
		var cerr *CoercionError
		if !errors.As(err, &cerr) || cerr.Field != "port" {
			t.Fatalf("Diff(port=%s) error = %v, want *CoercionError", value, err)
		}
		if !errors.Is(err, strconv.ErrRange) || !strings.Contains(err.Error(), "out of range") {
			t.Errorf("error = %q, want a range error", err)
		}
		if !changes.IsEmpty() {
			t.Errorf("changes = %v, want nothing to send", changes.Values())
		}
	}
}

func TestDiff_UnparseableBaselineComparedAsText(t *testing.T) {
	baseline := Record{"port": "ssh"}
	buf := BufferFrom(baseline)
	buf.Set("port", "22")

	changes, err := Diff(baseline, buf)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if v, ok := changes.Get("port"); !ok || v != int64(22) {
		t.Errorf("port = %#v, want int64(22)", v)
	}
}

func TestSupplied(t *testing.T) {
	buf := NewEditBuffer("name", "deviceName", "vendor", "password", "host", "port", "kexMethods")
	buf.Set("name", "r2")
	buf.Set("deviceName", "mx480")
	buf.Set("vendor", "juniper")
	buf.Set("password", "secret")
	buf.Set("host", "10.0.0.2")
	buf.Set("port", "22")

	changes, err := Supplied(buf)
	if err != nil {
		t.Fatalf("Supplied() error = %v", err)
	}

	if changes.Len() != 6 {
		t.Errorf("Supplied() keys = %v, want 6 non-empty fields", changes.Keys())
	}
	if _, ok := changes.Get("kexMethods"); ok {
		t.Error("empty kexMethods should not be supplied")
	}
	if v, _ := changes.Get("port"); v != int64(22) {
		t.Errorf("port = %#v, want int64(22)", v)
	}

	payload := changes.Without("name")
	if _, ok := payload.Get("name"); ok || payload.Len() != 5 {
		t.Errorf("Without(name) = %v", payload.Keys())
	}
}

func TestEditBuffer(t *testing.T) {
	buf := BufferFrom(Record{"user": "admin", "port": json.Number("22")}, "name", "user")

	fields := buf.Fields()
	want := []string{"name", "user", "port"}
	if len(fields) != len(want) {
		t.Fatalf("Fields() = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("Fields()[%d] = %s, want %s", i, fields[i], want[i])
		}
	}

	if buf.Get("port") != "22" {
		t.Errorf("port = %q, want 22", buf.Get("port"))
	}
	if len(buf.Touched()) != 0 {
		t.Error("fresh buffer should have no touched fields")
	}

	buf.Set("extra", "x")
	if !buf.IsTouched("extra") || buf.Fields()[3] != "extra" {
		t.Error("Set on an unknown field should append and touch it")
	}

	values := buf.Values()
	values["user"] = "mutated"
	if buf.Get("user") != "admin" {
		t.Error("Values() should return a copy")
	}
}

func TestChangeSet_ValuesSorted(t *testing.T) {
	buf := NewEditBuffer()
	buf.Set("user", "root")
	buf.Set("host", "h")

	changes, _ := Diff(nil, buf)
	if got := changes.Values().Encode(); got != "host=h&user=root" {
		t.Errorf("Encode() = %q", got)
	}
	if keys := changes.Keys(); keys[0] != "host" {
		t.Errorf("Keys() = %v, want sorted", keys)
	}
}

func TestFormatChanges(t *testing.T) {
	baseline := Record{"port": json.Number("22"), "password": "old"}
	buf := BufferFrom(baseline)
	buf.Set("port", "2222")
	buf.Set("password", "new")
	buf.Set("kexMethods", "dh")

	changes, err := Diff(baseline, buf)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	out := FormatChanges(baseline, changes)

	for _, want := range []string{"22 → 2222", "(unset) → dh", "******** → ********"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatChanges() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "new") {
		t.Error("password should be masked")
	}

	if empty := FormatChanges(baseline, ChangeSet{}); !strings.Contains(empty, "(no changes)") {
		t.Errorf("empty FormatChanges() = %q", empty)
	}
}
