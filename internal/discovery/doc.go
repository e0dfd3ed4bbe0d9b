// Package discovery finds inventory API instances on the local network.
//
// Inventory APIs advertise themselves over multicast DNS with the
// "_chronicle._tcp" service type. A TXT record "path=" carries the base path
// of the API, and "scheme=https" selects TLS.
//
// # Usage Example
//
//	servers, err := discovery.Scan(ctx, 5*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, s := range servers {
//	    fmt.Println(s.Instance, s.BaseURL())
//	}
//
// # Network Requirements
//
//   - Requires multicast support on the network interface
//   - Servers must be on the same local network segment
//   - Firewall must allow mDNS (UDP port 5353)
package discovery
