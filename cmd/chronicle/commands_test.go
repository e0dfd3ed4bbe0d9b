package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/muurk/chronicle/internal/dashboard"
	"github.com/muurk/chronicle/internal/form"
	"github.com/muurk/chronicle/internal/inventory"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "chronicle-cmd-test-*")
	if err != nil {
		panic(err)
	}
	os.Setenv("XDG_CONFIG_HOME", dir)
	os.Unsetenv("CHRONICLE_API_URL")
	os.Unsetenv("CHRONICLE_LOG_LEVEL")

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// testAPI serves one device "r1", any device created through it and the
// global settings
type testAPI struct {
	mu       sync.Mutex
	requests []string
	queries  map[string]string
	created  map[string]bool

	// failReads makes every GET after the first write answer success:false
	failReads bool
	wrote     bool
}

func newTestAPI(t *testing.T) (*testAPI, string) {
	t.Helper()
	api := &testAPI{
		queries: make(map[string]string),
		created: make(map[string]bool),
	}
	server := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(server.Close)
	return api, server.URL
}

func (a *testAPI) serve(w http.ResponseWriter, r *http.Request) {
	req := r.Method + " " + r.URL.Path
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.queries[req] = r.URL.RawQuery
	if name, ok := strings.CutPrefix(r.URL.Path, "/devices/create/"); ok && r.Method == http.MethodPost {
		a.created[name] = true
	}
	name := strings.TrimPrefix(r.URL.Path, "/devices/")
	known := name == "r1" || a.created[name]
	failed := r.Method == http.MethodGet && a.failReads && a.wrote
	if r.Method != http.MethodGet {
		a.wrote = true
	}
	a.mu.Unlock()

	device := map[string]any{"name": name, "deviceName": "Edge", "vendorName": "cisco", "host": "10.0.0.1"}
	ssh := map[string]any{"user": "admin", "password": "hunter2", "port": 22}

	var body any = map[string]any{"success": true}
	switch {
	case failed:
		body = map[string]any{"success": false, "description": "inventory locked"}
	case r.Method == http.MethodGet && r.URL.Path == "/devices/":
		device["name"] = "r1"
		body = map[string]any{"success": true, "data": map[string]any{"devices": []any{map[string]any{"device": device, "ssh": ssh}}}}
	case r.Method == http.MethodGet && known:
		body = map[string]any{"success": true, "data": map[string]any{"device": device, "ssh": ssh}}
	case r.Method == http.MethodGet && r.URL.Path == "/devices/r1/config":
		body = map[string]any{"success": true, "data": map[string]any{"config": []string{"hostname r1", "!"}}}
	case r.Method == http.MethodGet && r.URL.Path == "/settings/":
		body = map[string]any{"success": true, "data": map[string]any{"ssh": map[string]any{"user": "netops", "password": "pw", "port": 22}}}
	case r.Method == http.MethodGet:
		w.WriteHeader(http.StatusNotFound)
		body = map[string]any{"success": false, "description": "device not found"}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (a *testAPI) writes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, r := range a.requests {
		if !strings.HasPrefix(r, http.MethodGet) {
			out = append(out, r)
		}
	}
	return out
}

func (a *testAPI) count(req string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, r := range a.requests {
		if r == req {
			n++
		}
	}
	return n
}

func (a *testAPI) query(req string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queries[req]
}

// resetFlags restores every flag to its default between executions
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		raw     []string
		want    assignments
		wantErr bool
	}{
		{
			name: "simple",
			raw:  []string{"port=2222", "user=admin"},
			want: assignments{{"port", "2222"}, {"user", "admin"}},
		},
		{
			name: "empty value clears",
			raw:  []string{"sshVerbosity="},
			want: assignments{{"sshVerbosity", ""}},
		},
		{
			name: "value containing equals",
			raw:  []string{"kexMethods=a=b"},
			want: assignments{{"kexMethods", "a=b"}},
		},
		{name: "missing equals", raw: []string{"port"}, wantErr: true},
		{name: "empty key", raw: []string{"=1"}, wantErr: true},
		{name: "name is not settable", raw: []string{"name=x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAssignments() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseAssignments() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("assignment %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDevicesList(t *testing.T) {
	_, url := newTestAPI(t)

	out, err := execute(t, "--api", url, "devices", "list")
	if err != nil {
		t.Fatalf("devices list error = %v", err)
	}
	if !strings.Contains(out, "r1") || !strings.Contains(out, "10.0.0.1") {
		t.Errorf("output missing device row:\n%s", out)
	}
}

func TestDevicesList_JSON(t *testing.T) {
	_, url := newTestAPI(t)

	out, err := execute(t, "--api", url, "devices", "list", "--format", "json")
	if err != nil {
		t.Fatalf("devices list error = %v", err)
	}
	var rows []inventory.DeviceSummary
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(rows) != 1 || rows[0].VendorName != "cisco" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestDevicesShow_MasksPassword(t *testing.T) {
	_, url := newTestAPI(t)

	out, err := execute(t, "--api", url, "devices", "show", "r1")
	if err != nil {
		t.Fatalf("devices show error = %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Error("password leaked")
	}
	if !strings.Contains(out, "deviceName:") || !strings.Contains(out, "Edge") {
		t.Errorf("output missing fields:\n%s", out)
	}
}

func TestDevicesShow_NotFound(t *testing.T) {
	_, url := newTestAPI(t)

	_, err := execute(t, "--api", url, "devices", "show", "ghost")
	if !inventory.IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
	if errorHint(err) == "" {
		t.Error("API errors should carry a hint")
	}

	var buf bytes.Buffer
	printError(&buf, err)
	if !strings.Contains(buf.String(), "FAILED") {
		t.Errorf("printError() should render a failure box:\n%s", buf.String())
	}
}

func TestDevicesModify_SendsOnlyChangedFields(t *testing.T) {
	api, url := newTestAPI(t)

	out, err := execute(t, "--api", url, "devices", "modify", "r1", "--set", "port=2222", "--set", "user=admin", "--yes")
	if err != nil {
		t.Fatalf("devices modify error = %v", err)
	}
	if q := api.query("POST /devices/modify/r1"); q != "port=2222" {
		t.Errorf("modify query = %q, want port=2222", q)
	}
	for _, want := range []string{"=== Pending Changes ===", "port:", "22 → 2222", dashboard.MsgDeviceUpdated} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDevicesModify_ShowsStateAfterWrite(t *testing.T) {
	api, url := newTestAPI(t)

	out, err := execute(t, "--api", url, "devices", "modify", "r1", "--set", "port=2222", "--yes")
	if err != nil {
		t.Fatalf("devices modify error = %v", err)
	}
	if n := api.count("GET /devices/r1"); n != 2 {
		t.Errorf("device fetched %d times, want 2 (open and read back)", n)
	}
	idx := strings.Index(out, dashboard.MsgDeviceUpdated)
	if idx < 0 {
		t.Fatalf("output missing %q:\n%s", dashboard.MsgDeviceUpdated, out)
	}
	after := out[idx:]
	if !strings.Contains(after, "deviceName:") || strings.Contains(after, "hunter2") {
		t.Errorf("output after the save should show the masked record:\n%s", after)
	}
}

func TestDevicesModify_ReadBackFailure(t *testing.T) {
	api, url := newTestAPI(t)
	api.mu.Lock()
	api.failReads = true
	api.mu.Unlock()

	out, err := execute(t, "--api", url, "devices", "modify", "r1", "--set", "port=2222", "--yes")
	if err == nil || !strings.Contains(err.Error(), "reading them back failed") {
		t.Fatalf("error = %v, want a read back failure", err)
	}
	if q := api.query("POST /devices/modify/r1"); q != "port=2222" {
		t.Errorf("modify query = %q, the write should still go out", q)
	}
	if !strings.Contains(out, dashboard.MsgDeviceUpdated) {
		t.Errorf("output should still report the saved change:\n%s", out)
	}
}

func TestDevicesModify_NoChanges(t *testing.T) {
	api, url := newTestAPI(t)

	out, err := execute(t, "--api", url, "devices", "modify", "r1", "--set", "port=22", "--yes")
	if err != nil {
		t.Fatalf("devices modify error = %v", err)
	}
	if !strings.Contains(out, dashboard.MsgNoChanges) {
		t.Errorf("output = %q, want %q", out, dashboard.MsgNoChanges)
	}
	if w := api.writes(); len(w) != 0 {
		t.Errorf("write requests = %v, want none", w)
	}
}

func TestDevicesModify_DryRun(t *testing.T) {
	api, url := newTestAPI(t)

	out, err := execute(t, "--api", url, "devices", "modify", "r1", "--set", "host=10.0.0.9", "--dry-run")
	if err != nil {
		t.Fatalf("devices modify error = %v", err)
	}
	if !strings.Contains(out, "host:") {
		t.Errorf("preview missing:\n%s", out)
	}
	if w := api.writes(); len(w) != 0 {
		t.Errorf("write requests = %v, want none", w)
	}
}

func TestDevicesModify_RequiresSet(t *testing.T) {
	_, url := newTestAPI(t)
	if _, err := execute(t, "--api", url, "devices", "modify", "r1"); err == nil {
		t.Fatal("modify without --set should fail")
	}
}

func TestDevicesModify_InvalidNumber(t *testing.T) {
	api, url := newTestAPI(t)

	_, err := execute(t, "--api", url, "devices", "modify", "r1", "--set", "port=ssh", "--yes")
	if !form.IsValidationError(err) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if w := api.writes(); len(w) != 0 {
		t.Errorf("write requests = %v, want none", w)
	}
}

func TestDevicesCreate_MissingRequired(t *testing.T) {
	api, url := newTestAPI(t)

	_, err := execute(t, "--api", url, "devices", "create", "r2", "--set", "password=x", "--set", "vendor=cisco")
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if strings.Join(verr.Fields, ",") != "deviceName,host" {
		t.Errorf("missing fields = %v, want [deviceName host]", verr.Fields)
	}
	if w := api.writes(); len(w) != 0 {
		t.Errorf("write requests = %v, want none", w)
	}
}

func TestDevicesCreate(t *testing.T) {
	api, url := newTestAPI(t)

	out, err := execute(t, "--api", url, "devices", "create", "r2",
		"--set", "deviceName=Core", "--set", "vendor=cisco", "--set", "password=x",
		"--set", "host=10.0.0.2", "--set", "port=22")
	if err != nil {
		t.Fatalf("devices create error = %v", err)
	}
	if !strings.Contains(out, dashboard.MsgDeviceAdded) {
		t.Errorf("output = %q", out)
	}
	q := api.query("POST /devices/create/r2")
	for _, want := range []string{"deviceName=Core", "host=10.0.0.2", "port=22", "vendor=cisco"} {
		if !strings.Contains(q, want) {
			t.Errorf("create query %q missing %s", q, want)
		}
	}
	if strings.Contains(q, "name=r2") {
		t.Errorf("create query %q should carry the name in the path only", q)
	}
	if api.count("GET /devices/r2") != 1 || !strings.Contains(out, "r2") {
		t.Errorf("the created device should be read back and shown:\n%s", out)
	}
}

func TestDevicesDelete(t *testing.T) {
	api, url := newTestAPI(t)

	out, err := execute(t, "--api", url, "devices", "delete", "r1", "--yes")
	if err != nil {
		t.Fatalf("devices delete error = %v", err)
	}
	if !strings.Contains(out, dashboard.MsgDeviceDeleted) {
		t.Errorf("output = %q", out)
	}
	if w := api.writes(); len(w) != 1 || w[0] != "DELETE /devices/r1" {
		t.Errorf("write requests = %v", w)
	}
}

func TestDevicesConfig(t *testing.T) {
	_, url := newTestAPI(t)

	out, err := execute(t, "--api", url, "devices", "config", "r1")
	if err != nil {
		t.Fatalf("devices config error = %v", err)
	}
	if !strings.Contains(out, "hostname r1\n!") {
		t.Errorf("output = %q", out)
	}
}

func TestSettings(t *testing.T) {
	api, url := newTestAPI(t)

	out, err := execute(t, "--api", url, "settings", "show")
	if err != nil {
		t.Fatalf("settings show error = %v", err)
	}
	if !strings.Contains(out, "netops") || strings.Contains(out, "pw\n") {
		t.Errorf("settings output:\n%s", out)
	}

	out, err = execute(t, "--api", url, "settings", "set", "--set", "user=ops", "--yes")
	if err != nil {
		t.Fatalf("settings set error = %v", err)
	}
	if q := api.query("POST /settings/"); q != "user=ops" {
		t.Errorf("settings query = %q, want user=ops", q)
	}
	if !strings.Contains(out, dashboard.MsgSettingsUpdated) {
		t.Errorf("output = %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "chronicle ") {
		t.Errorf("output = %q", out)
	}
}

func TestErrorHint_OnlyForAPIErrors(t *testing.T) {
	if hint := errorHint(errors.New("boom")); hint != "" {
		t.Errorf("errorHint() = %q, want empty for a plain error", hint)
	}

	var buf bytes.Buffer
	printError(&buf, errors.New("boom"))
	if buf.String() != "Error: boom\n" {
		t.Errorf("printError() = %q", buf.String())
	}
}
