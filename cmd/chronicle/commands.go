package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/chronicle/internal/dashboard"
	"github.com/muurk/chronicle/internal/form"
	"github.com/muurk/chronicle/internal/inventory"
	"github.com/muurk/chronicle/internal/logging"
	"github.com/muurk/chronicle/internal/record"
	"github.com/muurk/chronicle/internal/ui"
)

// Command flags
var (
	outputFormat string
	fieldSets    []string
	assumeYes    bool
	dryRun       bool
)

func init() {
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(settingsCmd)

	devicesCmd.AddCommand(devicesListCmd, devicesShowCmd, devicesCreateCmd, devicesModifyCmd, devicesDeleteCmd, devicesConfigCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)

	for _, c := range []*cobra.Command{devicesListCmd, devicesShowCmd, settingsShowCmd} {
		c.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
	}
	for _, c := range []*cobra.Command{devicesCreateCmd, devicesModifyCmd, settingsSetCmd} {
		c.Flags().StringArrayVar(&fieldSets, "set", nil, "Field assignment key=value (repeatable)")
	}
	for _, c := range []*cobra.Command{devicesModifyCmd, settingsSetCmd} {
		c.Flags().BoolVar(&dryRun, "dry-run", false, "Print the pending changes without saving")
	}
	for _, c := range []*cobra.Command{devicesModifyCmd, devicesDeleteCmd, settingsSetCmd} {
		c.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	}
}

var devicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"device"},
	Short:   "List, inspect and edit devices",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all devices",
	Args:  cobra.NoArgs,
	RunE:  runDevicesList,
}

func runDevicesList(cmd *cobra.Command, args []string) error {
	entries, err := newClient().ListDevices(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		summaries := make([]inventory.DeviceSummary, len(entries))
		for i, e := range entries {
			summaries[i] = e.Summary()
		}
		return writeJSON(out, summaries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No devices.")
		fmt.Fprintln(out, "Use 'chronicle devices create <name> --set key=value ...' to add one")
		return nil
	}

	fmt.Fprintf(out, "%-20s %-20s %-12s %s\n", "NAME", "DEVICE", "VENDOR", "HOST")
	for _, e := range entries {
		s := e.Summary()
		if s.Name == "" {
			s.Name = e.Name()
		}
		fmt.Fprintf(out, "%-20s %-20s %-12s %s\n", s.Name, s.DeviceName, s.VendorName, s.Host)
	}
	return nil
}

var devicesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a device and its SSH settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevicesShow,
}

func runDevicesShow(cmd *cobra.Command, args []string) error {
	backend := &form.DeviceBackend{Client: newClient()}
	rec, err := backend.Fetch(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printRecord(cmd.OutOrStdout(), rec)
}

var devicesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a device",
	Long: `Create a device from --set assignments.

Required fields: ` + strings.Join(form.RequiredCreateFields, ", ") + `.
When no password is given and stdin is a terminal, it is prompted for.`,
	Example: `  chronicle devices create core-1 \
    --set deviceName="Core Router" --set vendor=cisco \
    --set host=10.0.0.1 --set port=22`,
	Args: cobra.ExactArgs(1),
	RunE: runDevicesCreate,
}

func runDevicesCreate(cmd *cobra.Command, args []string) error {
	sets, err := parseAssignments(fieldSets)
	if err != nil {
		return err
	}

	backend := &form.DeviceBackend{Client: newClient()}
	c := form.NewController(form.KindDevice, backend)
	saved := rereadAfterSave(c, backend)
	if err := c.OpenCreate(); err != nil {
		return err
	}
	if err := c.Set(record.NameField, args[0]); err != nil {
		return err
	}
	if err := applyAssignments(c, sets); err != nil {
		return err
	}

	if !sets.has("password") && stdinIsTerminal() {
		password, err := promptPassword(cmd.ErrOrStderr(), "SSH password for "+args[0]+": ")
		if err != nil {
			return err
		}
		if err := c.Set("password", password); err != nil {
			return err
		}
	}

	if _, err := c.Submit(cmd.Context()); err != nil {
		return err
	}
	return saved.report(cmd.OutOrStdout(), dashboard.MsgDeviceAdded)
}

var devicesModifyCmd = &cobra.Command{
	Use:   "modify <name>",
	Short: "Change fields of a device",
	Long: `Change fields of a device. Only fields whose value differs from the
server's current value are sent.`,
	Example: `  chronicle devices modify core-1 --set port=2222
  chronicle devices modify core-1 --set sshVerbosity= --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := &form.DeviceBackend{Client: newClient()}
		return submitChanges(cmd, form.KindDevice, backend, args[0], dashboard.MsgDeviceUpdated)
	},
}

var devicesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !assumeYes && stdinIsTerminal() {
			warnings := []string{
				"The device " + name + " is removed from the inventory",
				"Its SSH settings cannot be recovered",
			}
			if !ui.ConfirmDangerousOperation(cmd.InOrStdin(), cmd.ErrOrStderr(), "Delete device", warnings, name) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}
		if err := newClient().DeleteDevice(cmd.Context(), name); err != nil {
			return err
		}
		ui.Success(cmd.OutOrStdout(), dashboard.MsgDeviceDeleted)
		return nil
	},
}

var devicesConfigCmd = &cobra.Command{
	Use:   "config <name>",
	Short: "Pull the running configuration of a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := newClient().FetchDeviceConfig(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), config.Text())
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change the global SSH defaults",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the global SSH defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := &form.SettingsBackend{Client: newClient()}
		rec, err := backend.Fetch(cmd.Context(), "")
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), rec)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:     "set",
	Short:   "Change global SSH defaults",
	Example: `  chronicle settings set --set user=netops --set port=22`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := &form.SettingsBackend{Client: newClient()}
		return submitChanges(cmd, form.KindSettings, backend, "", dashboard.MsgSettingsUpdated)
	},
}

// submitChanges runs a modify session: fetch, apply --set values, preview
// the diff, submit it and show the server's state afterwards
func submitChanges(cmd *cobra.Command, kind form.Kind, backend form.Backend, key, success string) error {
	sets, err := parseAssignments(fieldSets)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return fmt.Errorf("nothing to change, use --set key=value")
	}

	c := form.NewController(kind, backend)
	saved := rereadAfterSave(c, backend)

	ctx := cmd.Context()
	if err := c.OpenModify(ctx, key); err != nil {
		return err
	}
	defer func() {
		if err := c.Cancel(); err != nil {
			logging.Debug("discarding edit session: " + err.Error())
		}
	}()

	if err := applyAssignments(c, sets); err != nil {
		return err
	}

	changes, err := c.Payload()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if changes.IsEmpty() {
		fmt.Fprintln(out, dashboard.MsgNoChanges)
		return nil
	}

	fmt.Fprint(out, record.FormatChanges(c.Baseline(), changes))
	if dryRun {
		return nil
	}
	if !assumeYes && stdinIsTerminal() {
		if !ui.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Apply these changes?") {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if _, err := c.Submit(ctx); err != nil {
		return err
	}
	return saved.report(out, success)
}

// reread holds the server's state of an entity re-read after a write
type reread struct {
	rec record.Record
	err error
}

// rereadAfterSave makes c fetch the entity again after every successful
// submission
func rereadAfterSave(c *form.Controller, backend form.Backend) *reread {
	r := &reread{}
	c.OnSuccess(func(ctx context.Context, outcome form.Outcome) {
		r.rec, r.err = backend.Fetch(ctx, outcome.Key)
	})
	return r
}

// report prints the success line followed by the re-read record
func (r *reread) report(w io.Writer, success string) error {
	ui.Success(w, success)
	if r.err != nil {
		return fmt.Errorf("changes saved, but reading them back failed: %w", r.err)
	}
	if r.rec == nil {
		return nil
	}
	fmt.Fprintln(w)
	return printRecord(w, r.rec)
}

// assignment is one --set key=value pair
type assignment struct {
	Field string
	Value string
}

type assignments []assignment

func (a assignments) has(field string) bool {
	for _, s := range a {
		if s.Field == field {
			return true
		}
	}
	return false
}

// parseAssignments parses --set values. An empty value clears the field.
func parseAssignments(raw []string) (assignments, error) {
	out := make(assignments, 0, len(raw))
	for _, r := range raw {
		field, value, ok := strings.Cut(r, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", r)
		}
		if field == record.NameField {
			return nil, fmt.Errorf("the device name cannot be set with --set")
		}
		out = append(out, assignment{Field: field, Value: value})
	}
	return out, nil
}

func applyAssignments(c *form.Controller, sets assignments) error {
	for _, s := range sets {
		if err := c.Set(s.Field, s.Value); err != nil {
			return fmt.Errorf("set %s: %w", s.Field, err)
		}
	}
	return nil
}

// printRecord prints a record one field per line, masking the password
func printRecord(w io.Writer, rec record.Record) error {
	if outputFormat == "json" {
		masked := rec.Clone()
		if _, ok := masked["password"]; ok {
			masked["password"] = "********"
		}
		return writeJSON(w, masked)
	}

	for _, k := range rec.Keys() {
		v := rec.Text(k)
		if k == "password" && v != "" {
			v = "********"
		}
		fmt.Fprintf(w, "%-20s %s\n", k+":", v)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptPassword reads a password from the terminal without echo
func promptPassword(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
