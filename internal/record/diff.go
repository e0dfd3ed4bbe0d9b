package record

import (
	"net/url"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// EditBuffer is the working copy of a record during an edit session.
// Values are held as text; the buffer remembers which fields were touched.
type EditBuffer struct {
	order   []string
	values  map[string]string
	touched map[string]bool
}

// NewEditBuffer creates an empty buffer with the given fields
func NewEditBuffer(fields ...string) *EditBuffer {
	b := &EditBuffer{
		values:  make(map[string]string, len(fields)),
		touched: make(map[string]bool),
	}
	for _, f := range fields {
		b.add(f, "")
	}
	return b
}

// BufferFrom creates a buffer holding a copy of r. Extra fields are added
// empty when r lacks them, which keeps a fixed form layout for sparse records.
func BufferFrom(r Record, extra ...string) *EditBuffer {
	b := NewEditBuffer()
	for _, k := range extra {
		b.add(k, FormatValue(r[k]))
	}
	for _, k := range r.Keys() {
		b.add(k, FormatValue(r[k]))
	}
	return b
}

func (b *EditBuffer) add(field, value string) {
	if _, ok := b.values[field]; ok {
		return
	}
	b.order = append(b.order, field)
	b.values[field] = value
}

// Set updates a field and marks it touched. Unknown fields are appended.
func (b *EditBuffer) Set(field, value string) {
	b.add(field, value)
	b.values[field] = value
	b.touched[field] = true
}

// Get returns the current text of a field
func (b *EditBuffer) Get(field string) string {
	return b.values[field]
}

// Fields returns all field names in display order
func (b *EditBuffer) Fields() []string {
	return append([]string(nil), b.order...)
}

// IsTouched reports whether Set was called for field
func (b *EditBuffer) IsTouched(field string) bool {
	return b.touched[field]
}

// Touched returns the touched fields in display order
func (b *EditBuffer) Touched() []string {
	var out []string
	for _, f := range b.order {
		if b.touched[f] {
			out = append(out, f)
		}
	}
	return out
}

// Values returns a copy of every field's text
func (b *EditBuffer) Values() map[string]string {
	out := make(map[string]string, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// ChangeSet is the set of fields to submit, holding coerced values.
// A nil value for a numeric field means "clear".
type ChangeSet struct {
	fields map[string]any
}

func (c *ChangeSet) put(field string, v any) {
	if c.fields == nil {
		c.fields = make(map[string]any)
	}
	c.fields[field] = v
}

// Len returns the number of changed fields
func (c ChangeSet) Len() int {
	return len(c.fields)
}

// IsEmpty reports whether nothing changed
func (c ChangeSet) IsEmpty() bool {
	return len(c.fields) == 0
}

// Get returns the coerced value of a changed field
func (c ChangeSet) Get(field string) (any, bool) {
	v, ok := c.fields[field]
	return v, ok
}

// Keys returns the changed fields in sorted order
func (c ChangeSet) Keys() []string {
	keys := make([]string, 0, len(c.fields))
	for k := range c.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Without returns a copy of the change set minus the named fields
func (c ChangeSet) Without(fields ...string) ChangeSet {
	drop := make(map[string]bool, len(fields))
	for _, f := range fields {
		drop[f] = true
	}
	var out ChangeSet
	for k, v := range c.fields {
		if !drop[k] {
			out.put(k, v)
		}
	}
	return out
}

// Values renders the change set as query parameters. Cleared fields are
// present with an empty value.
func (c ChangeSet) Values() url.Values {
	values := make(url.Values, len(c.fields))
	for k, v := range c.fields {
		values.Set(k, FormatValue(v))
	}
	return values
}

// Diff returns the touched fields of edited whose coerced value differs
// from baseline. A field missing from baseline differs from any non-empty
// value. With a nil baseline every touched non-empty field is returned.
//
// Coercion failures for all fields are collected into one error.
func Diff(baseline Record, edited *EditBuffer) (ChangeSet, error) {
	var changes ChangeSet
	var errs *multierror.Error

	for _, field := range edited.Touched() {
		next, err := Coerce(field, edited.Get(field))
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		prevRaw, known := baseline[field]
		if baseline == nil || !known {
			if !isBlank(next) {
				changes.put(field, next)
			}
			continue
		}

		prev, err := Coerce(field, prevRaw)
		if err != nil {
			// the server holds something we cannot parse; compare as text
			prev = FormatValue(prevRaw)
		}
		if !sameValue(prev, next) {
			changes.put(field, next)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return ChangeSet{}, err
	}
	return changes, nil
}

// Supplied returns every non-empty field of edited, touched or not. This is
// the payload of a create submission.
func Supplied(edited *EditBuffer) (ChangeSet, error) {
	var changes ChangeSet
	var errs *multierror.Error

	for _, field := range edited.Fields() {
		v, err := Coerce(field, edited.Get(field))
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if !isBlank(v) {
			changes.put(field, v)
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return ChangeSet{}, err
	}
	return changes, nil
}
