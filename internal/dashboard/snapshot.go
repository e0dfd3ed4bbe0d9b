package dashboard

import (
	"sort"
	"strings"

	"github.com/muurk/chronicle/internal/coordinator"
	"github.com/muurk/chronicle/internal/form"
	"github.com/muurk/chronicle/internal/notify"
	"github.com/muurk/chronicle/internal/record"
)

// DeviceView is one row of the device list
type DeviceView struct {
	Name       string
	DeviceName string
	Vendor     string
	Host       string
}

// DeviceDetail is everything known about one device
type DeviceDetail struct {
	Name          string
	Record        record.Record // nil until loaded
	Config        []string      // nil until pulled
	Loading       bool
	ConfigLoading bool
	Saving        bool
	Deleting      bool
}

// Snapshot is an immutable view model of the dashboard
type Snapshot struct {
	Devices         []DeviceView
	Featured        []DeviceView
	DevicesLoaded   bool
	DevicesLoading  bool
	Settings        record.Record
	SettingsLoading bool
	Details         map[string]DeviceDetail

	DeviceForm   form.Session
	SettingsForm form.Session

	Notification    notify.Notification
	HasNotification bool

	Pending []coordinator.Key
}

// Detail returns the detail of one device, including pending flags for a
// device that has not been loaded yet
func (s Snapshot) Detail(name string) DeviceDetail {
	if detail, ok := s.Details[name]; ok {
		return detail
	}
	return DeviceDetail{Name: name}
}

// Snapshot returns a copy of the current state
func (d *Dashboard) Snapshot() Snapshot {
	// Gather coordinator and form state first; the coordinator may hold its
	// lock while taking d.mu, so the two are never held together here.
	pending := d.coord.Pending()
	pendingSet := make(map[coordinator.Key]bool, len(pending))
	for _, k := range pending {
		pendingSet[k] = true
	}

	snap := Snapshot{
		DeviceForm:   d.deviceForm.Snapshot(),
		SettingsForm: d.settingsForm.Snapshot(),
		Pending:      pending,
		Details:      make(map[string]DeviceDetail),
	}
	snap.Notification, snap.HasNotification = d.queue.Current()
	snap.DevicesLoading = pendingSet[coordinator.Key{Op: coordinator.OpFetch, Entity: listEntity}]
	snap.SettingsLoading = pendingSet[coordinator.Key{Op: coordinator.OpFetch, Entity: settingsEntity}]

	d.mu.RLock()
	defer d.mu.RUnlock()

	snap.DevicesLoaded = d.devicesLoaded
	snap.Settings = d.settings.Clone()

	for _, e := range d.devices {
		s := e.Summary()
		if s.Name == "" {
			s.Name = e.Name()
		}
		snap.Devices = append(snap.Devices, DeviceView{
			Name:       s.Name,
			DeviceName: s.DeviceName,
			Vendor:     s.VendorName,
			Host:       s.Host,
		})
	}
	n := d.featuredCount
	if n > len(snap.Devices) {
		n = len(snap.Devices)
	}
	snap.Featured = snap.Devices[:n:n]

	names := make(map[string]bool)
	for name := range d.details {
		names[name] = true
	}
	for name := range d.configs {
		names[name] = true
	}
	for _, k := range pending {
		if name, ok := deviceName(k.Entity); ok {
			names[name] = true
		}
	}

	for name := range names {
		detail := DeviceDetail{
			Name:          name,
			Record:        d.details[name].Clone(),
			Loading:       pendingSet[coordinator.Key{Op: coordinator.OpFetch, Entity: DeviceEntity(name)}],
			ConfigLoading: pendingSet[coordinator.Key{Op: coordinator.OpFetchConfig, Entity: DeviceEntity(name)}],
			Saving:        pendingSet[coordinator.Key{Op: coordinator.OpSave, Entity: DeviceEntity(name)}],
			Deleting:      pendingSet[coordinator.Key{Op: coordinator.OpDelete, Entity: DeviceEntity(name)}],
		}
		if config, ok := d.configs[name]; ok && config != nil {
			detail.Config = append([]string(nil), config.Lines...)
		}
		snap.Details[name] = detail
	}

	return snap
}

// DeviceNames returns the names in the device list, sorted
func (s Snapshot) DeviceNames() []string {
	names := make([]string, len(s.Devices))
	for i, d := range s.Devices {
		names[i] = d.Name
	}
	sort.Strings(names)
	return names
}

func deviceName(entity string) (string, bool) {
	return strings.CutPrefix(entity, devicePrefix)
}
