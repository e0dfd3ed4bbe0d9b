package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeAPI is an in-memory inventory API
type fakeAPI struct {
	mu       sync.Mutex
	devices  map[string]map[string]any // name -> device resource
	ssh      map[string]map[string]any // name -> ssh resource
	order    []string
	settings map[string]any
	configs  map[string]any
	requests []string
	queries  map[string]string // last raw query per "METHOD path"
	fail     map[string]string // "METHOD path" -> failure description

	// gate, when set for a path, blocks the handler until a value is received
	gate map[string]chan struct{}
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{
		devices:  make(map[string]map[string]any),
		ssh:      make(map[string]map[string]any),
		settings: map[string]any{"user": "admin", "port": 22, "sshVerbosity": 0},
		configs:  make(map[string]any),
		queries:  make(map[string]string),
		fail:     make(map[string]string),
		gate:     make(map[string]chan struct{}),
	}
	server := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(server.Close)
	return api, server
}

func (a *fakeAPI) addDevice(device, ssh map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	name := device["name"].(string)
	a.devices[name] = device
	a.ssh[name] = ssh
	a.order = append(a.order, name)
}

func (a *fakeAPI) count(req string) int {
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

func (a *fakeAPI) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func (a *fakeAPI) query(req string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queries[req]
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	req := r.Method + " " + r.URL.Path

	// the response is computed on arrival, so a gated request answers with
	// the state the server had when it was received
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.queries[req] = r.URL.RawQuery
	status, body := a.respond(r, req)
	gate := a.gate[req]
	delete(a.gate, req)
	a.mu.Unlock()

	if gate != nil {
		<-gate
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respond applies a request to the in-memory state. Caller holds mu.
func (a *fakeAPI) respond(r *http.Request, req string) (int, any) {
	if desc, ok := a.fail[req]; ok {
		return http.StatusOK, map[string]any{"success": false, "description": desc}
	}

	ok := map[string]any{"success": true}
	path := r.URL.Path

	switch {
	case r.Method == http.MethodGet && path == "/devices/":
		list := []any{}
		for _, name := range a.order {
			list = append(list, map[string]any{"device": copyMap(a.devices[name]), "ssh": copyMap(a.ssh[name])})
		}
		return http.StatusOK, map[string]any{"success": true, "data": map[string]any{"devices": list}}

	case r.Method == http.MethodGet && path == "/settings/":
		return http.StatusOK, map[string]any{"success": true, "data": map[string]any{"ssh": copyMap(a.settings)}}

	case r.Method == http.MethodPost && path == "/settings/":
		for k, v := range r.URL.Query() {
			a.settings[k] = v[0]
		}
		return http.StatusOK, ok

	case r.Method == http.MethodPost && strings.HasPrefix(path, "/devices/create/"):
		name := strings.TrimPrefix(path, "/devices/create/")
		device := map[string]any{"name": name}
		ssh := map[string]any{}
		for k, v := range r.URL.Query() {
			switch k {
			case "deviceName", "host":
				device[k] = v[0]
			case "vendor":
				device["vendorName"] = v[0]
			default:
				ssh[k] = v[0]
			}
		}
		a.devices[name] = device
		a.ssh[name] = ssh
		a.order = append(a.order, name)
		return http.StatusOK, ok

	case r.Method == http.MethodPost && strings.HasPrefix(path, "/devices/modify/"):
		name := strings.TrimPrefix(path, "/devices/modify/")
		for k, v := range r.URL.Query() {
			if _, isDevice := a.devices[name][k]; isDevice {
				a.devices[name][k] = v[0]
			} else {
				a.ssh[name][k] = v[0]
			}
		}
		return http.StatusOK, ok

	case r.Method == http.MethodGet && strings.HasSuffix(path, "/config"):
		name := strings.TrimSuffix(strings.TrimPrefix(path, "/devices/"), "/config")
		return http.StatusOK, map[string]any{"success": true, "data": map[string]any{"config": a.configs[name]}}

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/devices/"):
		name := strings.TrimPrefix(path, "/devices/")
		device, found := a.devices[name]
		if !found {
			return http.StatusNotFound, map[string]any{"success": false, "description": "device " + name + " not found"}
		}
		return http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"device": copyMap(device),
			"ssh":    copyMap(a.ssh[name]),
		}}

	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/devices/"):
		name := strings.TrimPrefix(path, "/devices/")
		delete(a.devices, name)
		delete(a.ssh, name)
		var kept []string
		for _, n := range a.order {
			if n != name {
				kept = append(kept, n)
			}
		}
		a.order = kept
		return http.StatusOK, ok
	}

	return http.StatusNotFound, map[string]any{"success": false, "description": "no route for " + req}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

