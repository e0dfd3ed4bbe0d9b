package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Server represents an inventory API instance advertised on the network
type Server struct {
	// Instance is the mDNS instance name (e.g., "lab-inventory")
	Instance string

	// Hostname is the mDNS hostname (e.g., "netbox-01.local.")
	Hostname string

	// IP is the preferred address, IPv4 when one is advertised
	IP string

	// Port is the HTTP port
	Port int

	// Metadata contains the TXT record data
	// Common fields: "path=/api", "scheme=https", "version=1.4.2"
	Metadata map[string]string

	// DiscoveredAt is when the server was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the server
func (s *Server) String() string {
	return fmt.Sprintf("Inventory API %s (%s) at %s", s.Instance, s.Hostname, s.BaseURL())
}

// BaseURL returns the API base URL, including the TXT "path" prefix
func (s *Server) BaseURL() string {
	scheme := s.GetMetadata("scheme")
	if scheme != "https" {
		scheme = "http"
	}

	path := strings.TrimRight(s.GetMetadata("path"), "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return scheme + "://" + net.JoinHostPort(s.IP, strconv.Itoa(s.Port)) + path
}

// Version returns the advertised API version, if any
func (s *Server) Version() string {
	return s.GetMetadata("version")
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *Server) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}
