package record

import (
	"fmt"
	"strings"
)

// secretFields are masked in change previews
var secretFields = map[string]bool{
	"password": true,
}

// FormatChanges returns a preview of a change set against its baseline,
// one "field: old → new" line per change
func FormatChanges(baseline Record, changes ChangeSet) string {
	var b strings.Builder

	b.WriteString("=== Pending Changes ===\n")

	if changes.IsEmpty() {
		b.WriteString("(no changes)\n")
		return b.String()
	}

	for _, field := range changes.Keys() {
		next, _ := changes.Get(field)
		prev, known := baseline[field]

		b.WriteString(fmt.Sprintf("  %-18s %s → %s\n", field+":", displayValue(field, prev, known), displayValue(field, next, true)))
	}

	return b.String()
}

func displayValue(field string, v any, known bool) string {
	text := FormatValue(v)
	switch {
	case !known:
		return "(unset)"
	case text == "":
		return "(empty)"
	case secretFields[field]:
		return "********"
	default:
		return text
	}
}
