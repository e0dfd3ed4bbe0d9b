package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// numericFields are sent and compared as integers
var numericFields = map[string]bool{
	"port":         true,
	"sshVerbosity": true,
}

// IsNumeric reports whether field holds an integer value
func IsNumeric(field string) bool {
	return numericFields[field]
}

// CoercionError reports a numeric field whose text is not an integer
type CoercionError struct {
	Field string
	Value string
	Err   error
}

func (e *CoercionError) Error() string {
	if errors.Is(e.Err, strconv.ErrRange) {
		return fmt.Sprintf("%s is out of range, got %q", e.Field, e.Value)
	}
	return fmt.Sprintf("%s must be an integer, got %q", e.Field, e.Value)
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

// Coerce converts a raw value to its comparable form: an int64 for numeric
// fields (nil when blank), a string for everything else.
func Coerce(field string, v any) (any, error) {
	if !IsNumeric(field) {
		return FormatValue(v), nil
	}

	switch n := v.(type) {
	case nil:
		return nil, nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	}

	text := strings.TrimSpace(FormatValue(v))
	if text == "" {
		return nil, nil
	}

	i, err := strconv.ParseInt(text, 10, 64)
	if err == nil {
		return i, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return nil, &CoercionError{Field: field, Value: text, Err: strconv.ErrRange}
	}

	// "22.0" is still 22
	f, err := strconv.ParseFloat(text, 64)
	switch {
	case err != nil:
	case f != math.Trunc(f):
		err = strconv.ErrSyntax
	case f < math.MinInt64 || f >= math.MaxInt64:
		err = strconv.ErrRange
	default:
		return int64(f), nil
	}
	return nil, &CoercionError{Field: field, Value: text, Err: err}
}

// FormatValue renders a record value as the text a user edits
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func isBlank(v any) bool {
	return v == nil || v == ""
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return FormatValue(a) == FormatValue(b)
}
