// Package config provides user configuration management for Chronicle.
//
// The configuration is a YAML file holding the inventory API endpoint,
// notification and dashboard preferences, and the servers found by mDNS
// scans. It follows OS-specific conventions for its location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/chronicle/config.yaml or $HOME/.config/chronicle/config.yaml
//   - macOS: $HOME/.config/chronicle/config.yaml
//   - Windows: %LOCALAPPDATA%\chronicle\config.yaml
//
// # Precedence
//
// Resolve combines the sources in this order, first match wins:
//
//  1. command-line flags
//  2. the CHRONICLE_API_URL environment variable
//  3. the configuration file
//  4. built-in defaults
//
// # Security
//
// Device and SSH passwords are never written to the file. They are entered
// on the command line, prompted for, or typed into the dashboard.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eff := registry.Resolve(config.Overrides{APIURL: flagURL}, os.Getenv)
//	client := inventory.NewClient(eff.APIURL)
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are protected by a mutex and performed atomically.
package config
