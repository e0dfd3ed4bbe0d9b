package form

import (
	"context"
	"fmt"

	"github.com/muurk/chronicle/internal/inventory"
	"github.com/muurk/chronicle/internal/record"
)

// DeviceBackend edits devices through the inventory API
type DeviceBackend struct {
	Client *inventory.Client
}

// Fetch re-reads both sub-resources of a device and merges them
func (b *DeviceBackend) Fetch(ctx context.Context, name string) (record.Record, error) {
	entry, err := b.Client.GetDevice(ctx, name)
	if err != nil {
		return nil, err
	}
	rec, err := record.Merge(entry.Device, entry.SSH)
	if err != nil {
		return nil, fmt.Errorf("device %q: %w", name, err)
	}
	return rec, nil
}

func (b *DeviceBackend) Create(ctx context.Context, name string, changes record.ChangeSet) error {
	return b.Client.CreateDevice(ctx, name, changes.Values())
}

func (b *DeviceBackend) Modify(ctx context.Context, name string, changes record.ChangeSet) error {
	return b.Client.ModifyDevice(ctx, name, changes.Values())
}

// SettingsBackend edits the global SSH defaults. The key is ignored.
type SettingsBackend struct {
	Client *inventory.Client
}

func (b *SettingsBackend) Fetch(ctx context.Context, _ string) (record.Record, error) {
	settings, err := b.Client.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	return record.Record(settings).Clone(), nil
}

func (b *SettingsBackend) Create(context.Context, string, record.ChangeSet) error {
	return ErrCreateUnsupported
}

func (b *SettingsBackend) Modify(ctx context.Context, _ string, changes record.ChangeSet) error {
	return b.Client.UpdateSettings(ctx, changes.Values())
}
