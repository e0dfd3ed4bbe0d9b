package record

import (
	"fmt"
	"sort"

	"github.com/muurk/chronicle/internal/inventory"
)

// NameField is the unique key shared by both sub-resources of a device
const NameField = "name"

// Record is the flattened union of a device and its SSH profile
type Record map[string]any

// MergeConflictError reports sub-resources that disagree on the device name
type MergeConflictError struct {
	DeviceName string
	SSHName    string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict: device resource is named %q but ssh resource is named %q", e.DeviceName, e.SSHName)
}

// Merge combines a device resource and its SSH profile. The SSH value wins
// on key collision. Either side may be nil.
func Merge(device, ssh map[string]any) (Record, error) {
	if dn, ok := device[NameField]; ok {
		if sn, ok := ssh[NameField]; ok && FormatValue(dn) != FormatValue(sn) {
			return nil, &MergeConflictError{DeviceName: FormatValue(dn), SSHName: FormatValue(sn)}
		}
	}

	merged := make(Record, len(device)+len(ssh))
	for k, v := range device {
		merged[k] = v
	}
	for k, v := range ssh {
		merged[k] = v
	}
	return merged, nil
}

// Name returns the record's unique key, or "" for the settings singleton
func (r Record) Name() string {
	return FormatValue(r[NameField])
}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys returns the record's field names in sorted order
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Text returns a field rendered as text, "" when absent
func (r Record) Text(field string) string {
	return FormatValue(r[field])
}

// Decode decodes the record into a typed struct such as
// inventory.SSHProfile
func (r Record) Decode(out any) error {
	return inventory.DecodeResource(r, out)
}
