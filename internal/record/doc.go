// Package record merges the device and SSH sub-resources returned by the
// inventory API into one editable record, and computes the minimal set of
// field changes between a baseline record and an edit buffer.
//
// Typical flow for a modify session:
//
//	rec, err := record.Merge(entry.Device, entry.SSH)
//	buf := record.BufferFrom(rec)
//	buf.Set("port", "2222")
//	changes, err := record.Diff(rec, buf) // {port: 2222}
//
// Only touched fields are ever compared. Numeric fields (port, sshVerbosity)
// are compared as integers, so "22" and 22 are the same value.
package record
