package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/chronicle/internal/config"
	"github.com/muurk/chronicle/internal/discovery"
)

var (
	scanTimeout time.Duration
	scanSave    bool
	scanUse     string
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", 0, "Scan duration (default from config, 5s)")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Remember discovered servers in the config file")
	scanCmd.Flags().StringVar(&scanUse, "use", "", "Make the named server the default API")
}

// scanCmd discovers inventory APIs on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for inventory APIs on the network",
	Long: `Scan for inventory APIs using mDNS/DNS-SD discovery.

APIs advertise the "` + discovery.ServiceType + `" service. A TXT record
"path=" sets the base path of the API.`,
	Example: `  # Scan with the configured timeout
  chronicle scan

  # Longer scan, remember what was found
  chronicle scan --scan-timeout 15s --save

  # Make a discovered API the default
  chronicle scan --use lab-inventory`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	timeout := scanTimeout
	if timeout <= 0 {
		timeout = settings.DiscoveryTimeout
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning for inventory APIs (timeout: %s)...\n\n", timeout)

	servers, err := discovery.Scan(cmd.Context(), timeout)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(servers) == 0 {
		fmt.Fprintln(out, "No inventory APIs found.")
		fmt.Fprintln(out, "\nTroubleshooting:")
		fmt.Fprintln(out, "  - Ensure the API advertises "+discovery.ServiceType)
		fmt.Fprintln(out, "  - Check that multicast (UDP 5353) is allowed")
		fmt.Fprintln(out, "  - Try increasing --scan-timeout")
		fmt.Fprintln(out, "  - Use --api to give the URL directly")
		return nil
	}

	fmt.Fprintf(out, "Found %d API(s):\n\n", len(servers))
	for i, s := range servers {
		fmt.Fprintf(out, "%d. %s\n", i+1, s.Instance)
		fmt.Fprintf(out, "   URL:     %s\n", s.BaseURL())
		fmt.Fprintf(out, "   Host:    %s\n", s.Hostname)
		if v := s.Version(); v != "" {
			fmt.Fprintf(out, "   Version: %s\n", v)
		}
		fmt.Fprintln(out)
	}

	if !scanSave && scanUse == "" {
		fmt.Fprintln(out, "Use 'chronicle --api <url>' or 'chronicle scan --use <name>' to connect")
		return nil
	}
	return rememberServers(cmd, servers)
}

// rememberServers stores scan results and the selected default
func rememberServers(cmd *cobra.Command, servers []*discovery.Server) error {
	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	var selected *discovery.Server
	for _, s := range servers {
		registry.RememberServer(s.Instance, s.BaseURL(), s.Hostname)
		if s.Instance == scanUse {
			selected = s
		}
	}

	if scanUse != "" {
		if selected == nil {
			return fmt.Errorf("no API named %q was found", scanUse)
		}
		registry.API.URL = selected.BaseURL()
		fmt.Fprintf(cmd.OutOrStdout(), "Default API set to %s\n", registry.API.URL)
	}

	if err := registry.Save(); err != nil {
		return err
	}
	path, _ := config.GetConfigPath()
	fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", path)
	return nil
}
