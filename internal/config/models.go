package config

import (
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Defaults applied when neither a flag, the environment nor the file sets a value
const (
	DefaultAPIURL           = "http://127.0.0.1:8000"
	DefaultTimeout          = 30 * time.Second
	DefaultSuccessDuration  = 3 * time.Second
	DefaultErrorDuration    = 5 * time.Second
	DefaultFeaturedCount    = 2
	DefaultDiscoveryTimeout = 5 * time.Second
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version       int                `yaml:"version"`
	API           *APIPrefs          `yaml:"api,omitempty"`
	Notifications *NotificationPrefs `yaml:"notifications,omitempty"`
	Dashboard     *DashboardPrefs    `yaml:"dashboard,omitempty"`
	Discovery     *DiscoveryPrefs    `yaml:"discovery,omitempty"`
	Servers       map[string]*Server `yaml:"servers,omitempty"` // Keyed by mDNS instance name
}

// APIPrefs selects the inventory API and how long to wait for it.
type APIPrefs struct {
	URL     string        `yaml:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"` // 0 uses the default
}

// NotificationPrefs controls how long toasts stay visible.
type NotificationPrefs struct {
	Success time.Duration `yaml:"success,omitempty"`
	Error   time.Duration `yaml:"error,omitempty"`
}

// DashboardPrefs tunes the home view.
type DashboardPrefs struct {
	FeaturedCount int `yaml:"featured_count"`
}

// DiscoveryPrefs configures mDNS scans.
type DiscoveryPrefs struct {
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Server is an inventory API found by a scan.
type Server struct {
	URL      string    `yaml:"url"`
	Host     string    `yaml:"host,omitempty"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		API: &APIPrefs{
			Timeout: DefaultTimeout,
		},
		Notifications: &NotificationPrefs{
			Success: DefaultSuccessDuration,
			Error:   DefaultErrorDuration,
		},
		Dashboard: &DashboardPrefs{
			FeaturedCount: DefaultFeaturedCount,
		},
		Discovery: &DiscoveryPrefs{
			Timeout: DefaultDiscoveryTimeout,
		},
		Servers: make(map[string]*Server),
	}
}

// fillDefaults initializes sections missing from a file written by hand.
func (r *Registry) fillDefaults() {
	def := NewRegistry()
	if r.API == nil {
		r.API = def.API
	}
	if r.Notifications == nil {
		r.Notifications = def.Notifications
	}
	if r.Dashboard == nil {
		r.Dashboard = def.Dashboard
	}
	if r.Discovery == nil {
		r.Discovery = def.Discovery
	}
	if r.Servers == nil {
		r.Servers = make(map[string]*Server)
	}
}

// Validate reports every invalid value in the registry at once.
func (r *Registry) Validate() error {
	var errs *multierror.Error

	if r.Version != 1 {
		errs = multierror.Append(errs, fmt.Errorf("unsupported config version: %d (expected 1)", r.Version))
	}
	if r.API != nil {
		if r.API.URL != "" {
			if err := validateURL(r.API.URL); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("api.url: %w", err))
			}
		}
		if r.API.Timeout < 0 {
			errs = multierror.Append(errs, fmt.Errorf("api.timeout must not be negative"))
		}
	}
	if r.Notifications != nil && (r.Notifications.Success < 0 || r.Notifications.Error < 0) {
		errs = multierror.Append(errs, fmt.Errorf("notification durations must not be negative"))
	}
	if r.Dashboard != nil && r.Dashboard.FeaturedCount < 0 {
		errs = multierror.Append(errs, fmt.Errorf("dashboard.featured_count must not be negative"))
	}
	if r.Discovery != nil && r.Discovery.Timeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("discovery.timeout must not be negative"))
	}
	for name, s := range r.Servers {
		if s == nil {
			errs = multierror.Append(errs, fmt.Errorf("servers.%s: empty entry", name))
			continue
		}
		if err := validateURL(s.URL); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("servers.%s.url: %w", name, err))
		}
	}

	return errs.ErrorOrNil()
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

// RememberServer records a discovered API and the time it was seen.
func (r *Registry) RememberServer(name, apiURL, host string) *Server {
	if r.Servers == nil {
		r.Servers = make(map[string]*Server)
	}
	s := &Server{URL: apiURL, Host: host, LastSeen: time.Now()}
	r.Servers[name] = s
	return s
}

// ServerNames returns the remembered server names, sorted.
func (r *Registry) ServerNames() []string {
	names := make([]string, 0, len(r.Servers))
	for name := range r.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Overrides carries command-line values. Zero values mean "not given".
type Overrides struct {
	APIURL  string
	Timeout *time.Duration
}

// Effective is the configuration after applying precedence.
type Effective struct {
	APIURL           string
	Timeout          time.Duration
	SuccessDuration  time.Duration
	ErrorDuration    time.Duration
	FeaturedCount    int
	DiscoveryTimeout time.Duration
}

// Resolve applies flag > environment > file > default precedence.
func (r *Registry) Resolve(o Overrides, getenv func(string) string) Effective {
	if r == nil {
		r = NewRegistry()
	}
	e := Effective{
		APIURL:           DefaultAPIURL,
		Timeout:          DefaultTimeout,
		SuccessDuration:  DefaultSuccessDuration,
		ErrorDuration:    DefaultErrorDuration,
		FeaturedCount:    DefaultFeaturedCount,
		DiscoveryTimeout: DefaultDiscoveryTimeout,
	}

	if r.API != nil {
		if r.API.URL != "" {
			e.APIURL = r.API.URL
		}
		if r.API.Timeout > 0 {
			e.Timeout = r.API.Timeout
		}
	}
	if r.Notifications != nil {
		if r.Notifications.Success > 0 {
			e.SuccessDuration = r.Notifications.Success
		}
		if r.Notifications.Error > 0 {
			e.ErrorDuration = r.Notifications.Error
		}
	}
	if r.Dashboard != nil {
		e.FeaturedCount = r.Dashboard.FeaturedCount
	}
	if r.Discovery != nil && r.Discovery.Timeout > 0 {
		e.DiscoveryTimeout = r.Discovery.Timeout
	}

	if getenv != nil {
		if v := getenv(EnvAPIURL); v != "" {
			e.APIURL = v
		}
	}

	if o.APIURL != "" {
		e.APIURL = o.APIURL
	}
	if o.Timeout != nil {
		e.Timeout = *o.Timeout
	}
	return e
}
