// Chronicle is a terminal dashboard and command-line client for a network
// device inventory API.
//
// It lists devices, edits their connection and SSH settings with partial
// updates, pulls running configurations and manages the global SSH defaults.
//
// Usage:
//
//	chronicle [command] [flags]
//
// Running without arguments launches the interactive dashboard.
// See 'chronicle --help' for available commands.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/chronicle/internal/config"
	"github.com/muurk/chronicle/internal/dashboard"
	"github.com/muurk/chronicle/internal/inventory"
	"github.com/muurk/chronicle/internal/logging"
	"github.com/muurk/chronicle/internal/notify"
	"github.com/muurk/chronicle/internal/tui"
	"github.com/muurk/chronicle/internal/ui"
	"github.com/muurk/chronicle/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// Global flags
var (
	apiURL     string
	apiTimeout time.Duration
	logLevel   string
)

// settings holds the resolved configuration of the current invocation
var settings config.Effective

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Network device inventory dashboard",
	Long: `A terminal dashboard and CLI for a network device inventory API.

Lists devices, edits device and SSH settings with partial updates, pulls
running configurations and manages global SSH defaults.

If no command is specified, the interactive dashboard will launch automatically.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runDashboard,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Inventory API base URL (env "+config.EnvAPIURL+")")
	rootCmd.PersistentFlags().DurationVar(&apiTimeout, "timeout", config.DefaultTimeout, "HTTP request timeout, 0 disables it")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); env CHRONICLE_LOG_LEVEL")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// setup initializes logging and resolves the configuration for every command
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if logLevel != "" {
		err = logging.Initialize(logLevel)
	} else {
		err = logging.InitializeFromEnv()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	overrides := config.Overrides{APIURL: apiURL}
	if cmd.Flags().Changed("timeout") {
		overrides.Timeout = &apiTimeout
	}
	settings = registry.Resolve(overrides, os.Getenv)

	logging.Debug(fmt.Sprintf("using inventory API %s (timeout %s)", settings.APIURL, settings.Timeout))
	return nil
}

// newClient builds an API client from the resolved configuration
func newClient() *inventory.Client {
	client := inventory.NewClient(settings.APIURL)
	client.SetTimeout(settings.Timeout)
	return client
}

// newDashboard builds the dashboard core from the resolved configuration
func newDashboard() *dashboard.Dashboard {
	queue := notify.NewQueue(notify.WithDurations(settings.SuccessDuration, settings.ErrorDuration))
	return dashboard.New(newClient(),
		dashboard.WithFeaturedCount(settings.FeaturedCount),
		dashboard.WithQueue(queue),
	)
}

// dashboardCmd launches the interactive TUI
var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"ui"},
	Short:   "Launch the interactive dashboard",
	Long: `Launch the interactive terminal dashboard.

The dashboard shows featured devices, the full device list, device details
with configuration pull, and the global SSH settings. Devices and settings
are edited in forms that only send the fields you changed.`,
	Example: `  # Launch the dashboard (default command)
  chronicle

  # Against a specific API
  chronicle dashboard --api http://inventory.lab:8000`,
	RunE: runDashboard,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	return tui.Run(cmd.Context(), newDashboard())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "chronicle %s\n", version.Full())
	},
}

// printError reports a failed command. API failures get a result box with
// troubleshooting lines; anything else is a plain one-liner.
func printError(w io.Writer, err error) {
	hint := errorHint(err)
	if hint == "" {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, ui.NewFailureResult("Request failed", err, strings.Split(hint, "\n")).Render())
}

// errorHint returns troubleshooting text for API errors only
func errorHint(err error) string {
	if inventory.IsNetworkError(err) || inventory.IsNotFound(err) || inventory.IsServerError(err) ||
		inventory.IsValidationError(err) || inventory.IsUnknownError(err) {
		return inventory.Hint(err)
	}
	return ""
}
