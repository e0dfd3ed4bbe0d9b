// Package dashboard owns the client-side state of the device dashboard:
// the device list, per-device detail and configuration, the settings
// baseline, both edit sessions and the notification slot.
//
// Every remote call goes through a coordinator ticket so that only the most
// recently issued request for an (operation, entity) pair updates state.
// Outcomes are reported to the notification queue. Views read state only
// through Snapshot.
package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/muurk/chronicle/internal/coordinator"
	"github.com/muurk/chronicle/internal/form"
	"github.com/muurk/chronicle/internal/inventory"
	"github.com/muurk/chronicle/internal/notify"
	"github.com/muurk/chronicle/internal/record"
)

// DefaultFeaturedCount is how many devices the home view highlights
const DefaultFeaturedCount = 2

// Notification texts
const (
	MsgDeviceAdded     = "Device added"
	MsgDeviceUpdated   = "Device updated"
	MsgDeviceDeleted   = "Device deleted"
	MsgSettingsUpdated = "Settings updated"
	MsgConfigFetched   = "Configuration fetched successfully"
	MsgNoChanges       = "No changes to save"
)

// Coordinator entities. Devices are prefixed so no device name can collide
// with the list or the settings singleton.
const (
	listEntity     = "devices"
	settingsEntity = "settings"
	devicePrefix   = "device/"
)

// DeviceEntity returns the coordinator entity of a device
func DeviceEntity(name string) string {
	return devicePrefix + name
}

// Option configures a Dashboard
type Option func(*Dashboard)

// WithFeaturedCount sets how many devices are featured
func WithFeaturedCount(n int) Option {
	return func(d *Dashboard) {
		if n >= 0 {
			d.featuredCount = n
		}
	}
}

// WithQueue replaces the notification queue
func WithQueue(q *notify.Queue) Option {
	return func(d *Dashboard) {
		d.queue = q
	}
}

// Dashboard is safe for concurrent use. Each operation blocks for the
// duration of its request; callers run them on their own goroutines.
type Dashboard struct {
	client *inventory.Client
	coord  *coordinator.Coordinator
	queue  *notify.Queue

	deviceBackend   *form.DeviceBackend
	settingsBackend *form.SettingsBackend
	deviceForm      *form.Controller
	settingsForm    *form.Controller

	// one submission per form at a time
	savingDevice   sync.Mutex
	savingSettings sync.Mutex

	mu            sync.RWMutex
	featuredCount int
	devices       []inventory.DeviceEntry
	devicesLoaded bool
	settings      record.Record
	details       map[string]record.Record
	configs       map[string]*inventory.DeviceConfig
}

// New creates a dashboard over client
func New(client *inventory.Client, opts ...Option) *Dashboard {
	d := &Dashboard{
		client:          client,
		coord:           coordinator.New(),
		deviceBackend:   &form.DeviceBackend{Client: client},
		settingsBackend: &form.SettingsBackend{Client: client},
		featuredCount:   DefaultFeaturedCount,
		details:         make(map[string]record.Record),
		configs:         make(map[string]*inventory.DeviceConfig),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.queue == nil {
		d.queue = notify.NewQueue()
	}

	d.deviceForm = form.NewController(form.KindDevice, d.deviceBackend)
	d.deviceForm.OnSuccess(d.afterDeviceSave)

	d.settingsForm = form.NewController(form.KindSettings, d.settingsBackend)
	d.settingsForm.OnSuccess(d.afterSettingsSave)

	return d
}

// Notifications returns the notification queue, for subscribing to changes
func (d *Dashboard) Notifications() *notify.Queue {
	return d.queue
}

// DeviceForm returns the device edit session
func (d *Dashboard) DeviceForm() *form.Controller {
	return d.deviceForm
}

// SettingsForm returns the settings edit session
func (d *Dashboard) SettingsForm() *form.Controller {
	return d.settingsForm
}

// Status returns the coordinator status of an operation on a device
func (d *Dashboard) Status(op coordinator.Op, device string) coordinator.Status {
	return d.coord.Status(op, DeviceEntity(device))
}

// report routes the outcome of a request to the notification queue.
// Results of superseded requests are not reported.
func (d *Dashboard) report(current bool, err error, success string) error {
	if !current {
		return err
	}
	if err != nil {
		d.queue.Error(inventory.ShortMessage(err))
		return err
	}
	if success != "" {
		d.queue.Success(success)
	}
	return nil
}

// RefreshDevices reloads the device list
func (d *Dashboard) RefreshDevices(ctx context.Context) error {
	t := d.coord.Begin(coordinator.OpFetch, listEntity)
	entries, err := d.client.ListDevices(ctx)

	current := d.coord.Complete(t, err, func() {
		d.mu.Lock()
		d.devices = entries
		d.devicesLoaded = true
		d.mu.Unlock()
	})
	return d.report(current, err, "")
}

// RefreshSettings reloads the global SSH defaults
func (d *Dashboard) RefreshSettings(ctx context.Context) error {
	t := d.coord.Begin(coordinator.OpFetch, settingsEntity)
	rec, err := d.settingsBackend.Fetch(ctx, "")

	current := d.coord.Complete(t, err, func() {
		d.mu.Lock()
		d.settings = rec
		d.mu.Unlock()
	})
	return d.report(current, err, "")
}

// LoadDevice fetches and merges both sub-resources of a device
func (d *Dashboard) LoadDevice(ctx context.Context, name string) error {
	t := d.coord.Begin(coordinator.OpFetch, DeviceEntity(name))
	rec, err := d.deviceBackend.Fetch(ctx, name)

	current := d.coord.Complete(t, err, func() {
		d.mu.Lock()
		d.details[name] = rec
		d.mu.Unlock()
	})
	return d.report(current, err, "")
}

// FetchConfig pulls the running configuration of a device
func (d *Dashboard) FetchConfig(ctx context.Context, name string) error {
	t := d.coord.Begin(coordinator.OpFetchConfig, DeviceEntity(name))
	config, err := d.client.FetchDeviceConfig(ctx, name)

	current := d.coord.Complete(t, err, func() {
		d.mu.Lock()
		d.configs[name] = config
		d.mu.Unlock()
	})
	return d.report(current, err, MsgConfigFetched)
}

// DeleteDevice removes a device and reloads the list
func (d *Dashboard) DeleteDevice(ctx context.Context, name string) error {
	entity := DeviceEntity(name)
	t := d.coord.Begin(coordinator.OpDelete, entity)
	err := d.client.DeleteDevice(ctx, name)

	current := d.coord.Complete(t, err, func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		kept := d.devices[:0:0]
		for _, e := range d.devices {
			if e.Name() != name {
				kept = append(kept, e)
			}
		}
		d.devices = kept
		delete(d.details, name)
		delete(d.configs, name)
	})
	if err := d.report(current, err, MsgDeviceDeleted); err != nil || !current {
		return err
	}

	d.coord.Forget(entity)
	return d.RefreshDevices(ctx)
}

// OpenCreateDevice starts a device creation session
func (d *Dashboard) OpenCreateDevice() error {
	return d.deviceForm.OpenCreate()
}

// OpenModifyDevice starts a modify session from a live fetch of the device.
// The fetched record also becomes the device's detail baseline.
func (d *Dashboard) OpenModifyDevice(ctx context.Context, name string) error {
	t := d.coord.Begin(coordinator.OpFetch, DeviceEntity(name))
	err := d.deviceForm.OpenModify(ctx, name)
	if errors.Is(err, form.ErrSuperseded) {
		d.coord.Abandon(t)
		return err
	}

	var baseline record.Record
	if err == nil {
		baseline = d.deviceForm.Baseline()
	}

	current := d.coord.Complete(t, err, func() {
		d.mu.Lock()
		d.details[name] = baseline
		d.mu.Unlock()
	})
	return d.report(current, err, "")
}

// SubmitDevice submits the open device session. Validation failures and
// remote errors keep the session open.
func (d *Dashboard) SubmitDevice(ctx context.Context) (form.Outcome, error) {
	if !d.savingDevice.TryLock() {
		return form.Outcome{}, form.ErrBusy
	}
	defer d.savingDevice.Unlock()

	if d.deviceForm.State() != form.StateOpen {
		return form.Outcome{}, form.ErrNotOpen
	}

	t := d.coord.Begin(coordinator.OpSave, DeviceEntity(d.deviceForm.Target()))
	outcome, err := d.deviceForm.Submit(ctx)
	current := d.coord.Complete(t, err, nil)

	// a save that reached the server was announced by afterDeviceSave
	msg := ""
	if outcome.NoOp {
		msg = MsgNoChanges
	}
	return outcome, d.report(current, err, msg)
}

// afterDeviceSave announces a device write, then re-reads the server state.
// A failed re-read replaces the success toast with its error.
func (d *Dashboard) afterDeviceSave(ctx context.Context, outcome form.Outcome) {
	if outcome.Mode == form.ModeCreate {
		d.queue.Success(MsgDeviceAdded)
	} else {
		d.queue.Success(MsgDeviceUpdated)
	}

	name := outcome.Key
	d.mu.RLock()
	_, loaded := d.details[name]
	d.mu.RUnlock()

	if loaded {
		_ = d.LoadDevice(ctx, name)
	}
	_ = d.RefreshDevices(ctx)
}

// CancelDevice discards the open device session
func (d *Dashboard) CancelDevice() error {
	return d.deviceForm.Cancel()
}

// OpenSettings starts a settings session from a live fetch
func (d *Dashboard) OpenSettings(ctx context.Context) error {
	t := d.coord.Begin(coordinator.OpFetch, settingsEntity)
	err := d.settingsForm.OpenModify(ctx, "")
	if errors.Is(err, form.ErrSuperseded) {
		d.coord.Abandon(t)
		return err
	}

	var baseline record.Record
	if err == nil {
		baseline = d.settingsForm.Baseline()
	}

	current := d.coord.Complete(t, err, func() {
		d.mu.Lock()
		d.settings = baseline
		d.mu.Unlock()
	})
	return d.report(current, err, "")
}

// SaveSettings submits the changed settings fields
func (d *Dashboard) SaveSettings(ctx context.Context) (form.Outcome, error) {
	if !d.savingSettings.TryLock() {
		return form.Outcome{}, form.ErrBusy
	}
	defer d.savingSettings.Unlock()

	if d.settingsForm.State() != form.StateOpen {
		return form.Outcome{}, form.ErrNotOpen
	}

	t := d.coord.Begin(coordinator.OpSave, settingsEntity)
	outcome, err := d.settingsForm.Submit(ctx)
	current := d.coord.Complete(t, err, nil)

	msg := ""
	if outcome.NoOp {
		msg = MsgNoChanges
	}
	return outcome, d.report(current, err, msg)
}

func (d *Dashboard) afterSettingsSave(ctx context.Context, _ form.Outcome) {
	d.queue.Success(MsgSettingsUpdated)
	_ = d.RefreshSettings(ctx)
}

// CancelSettings discards the open settings session
func (d *Dashboard) CancelSettings() error {
	return d.settingsForm.Cancel()
}
