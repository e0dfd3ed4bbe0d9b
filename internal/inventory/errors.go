package inventory

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorKind represents the category of a failed API call
type ErrorKind int

const (
	// KindNetwork indicates the transport failed and no response was received
	KindNetwork ErrorKind = iota
	// KindValidation indicates the server rejected the request parameters
	KindValidation
	// KindNotFound indicates the addressed resource does not exist
	KindNotFound
	// KindServer indicates a response with success:false
	KindServer
	// KindUnknown indicates a malformed or unexpected response shape
	KindUnknown
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "Network Error"
	case KindValidation:
		return "Validation Error"
	case KindNotFound:
		return "Not Found"
	case KindServer:
		return "Server Error"
	case KindUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// Error represents a failed call against the inventory API
type Error struct {
	Kind           ErrorKind           // Category of error
	Op             string              // Client operation (e.g. "GetDevice")
	Message        string              // Human-readable error message
	StatusCode     int                 // HTTP status code (0 when no response)
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// classifyNetworkError picks a network subtype for a transport failure
func classifyNetworkError(err error) (NetworkErrorSubtype, string) {
	if os.IsTimeout(err) {
		return NetworkErrorTimeout, "request timed out"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NetworkErrorDNS, fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return NetworkErrorConnectionRefused, "connection refused"
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return NetworkErrorHostUnreachable, "host unreachable"
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return NetworkErrorNetworkUnreachable, "network unreachable"
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return classifyNetworkError(urlErr.Err)
	}

	return NetworkErrorGeneral, "network error occurred"
}

// NewNetworkError creates a transport-level error with automatic classification
func NewNetworkError(op string, err error) *Error {
	subtype, message := classifyNetworkError(err)
	return &Error{
		Kind:           KindNetwork,
		Op:             op,
		Message:        message,
		Err:            err,
		NetworkSubtype: subtype,
	}
}

// NewServerError creates an error for a response carrying success:false.
// The HTTP status picks between not-found, validation and server kinds.
func NewServerError(op string, statusCode int, message string) *Error {
	kind := KindServer
	switch statusCode {
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = KindValidation
	}
	return &Error{
		Kind:       kind,
		Op:         op,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewUnknownError creates an error for a response of unexpected shape
func NewUnknownError(op string, statusCode int, message string, err error) *Error {
	return &Error{
		Kind:       KindUnknown,
		Op:         op,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

func kindOf(err error) (ErrorKind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}

// IsNetworkError checks if an error is a transport failure
func IsNetworkError(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindNetwork
}

// IsNotFound checks if an error reports a missing resource
func IsNotFound(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindNotFound
}

// IsServerError checks if an error is a success:false response
func IsServerError(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindServer
}

// IsValidationError checks if the server rejected the request parameters
func IsValidationError(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindValidation
}

// IsUnknownError checks if a response had an unexpected shape
func IsUnknownError(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindUnknown
}

// ShortMessage returns a concise, user-friendly error message suitable for
// a notification
func ShortMessage(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch apiErr.Kind {
	case KindNetwork:
		switch apiErr.NetworkSubtype {
		case NetworkErrorTimeout:
			return "Inventory API not responding (timeout)"
		case NetworkErrorConnectionRefused:
			return "Inventory API refused connection - is it running?"
		case NetworkErrorDNS:
			return "Cannot resolve inventory API hostname"
		default:
			return "Network error - check connection"
		}
	case KindServer, KindValidation, KindNotFound:
		return apiErr.Message
	case KindUnknown:
		return "Unexpected response from inventory API"
	default:
		return apiErr.Message
	}
}

// Hint returns troubleshooting advice for an error
func Hint(err error) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch apiErr.Kind {
	case KindNetwork:
		hint := []string{"Could not reach the inventory API."}
		switch apiErr.NetworkSubtype {
		case NetworkErrorConnectionRefused:
			hint = append(hint, "Troubleshooting:",
				"  • Ensure the inventory API process is running",
				"  • Verify the --api URL and port (default http://127.0.0.1:8000)")
		case NetworkErrorTimeout:
			hint = append(hint, "Troubleshooting:",
				"  • The API may be busy pulling device configuration",
				"  • Try increasing --timeout")
		case NetworkErrorDNS:
			hint = append(hint, "Troubleshooting:",
				"  • Use an IP address instead of a hostname",
				"  • Run 'chronicle scan' to discover API instances")
		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Run 'chronicle scan' to discover API instances")
		}
		return strings.Join(hint, "\n")

	case KindNotFound:
		return "The device does not exist. Run 'chronicle devices list' to see known devices."

	case KindValidation:
		return "The API rejected the submitted fields. Check the error message for details."

	case KindServer:
		if apiErr.StatusCode >= 500 {
			return fmt.Sprintf("The inventory API failed (HTTP %d). Check the API logs.", apiErr.StatusCode)
		}
		return "The inventory API reported a failure. Check the error message for details."

	case KindUnknown:
		return strings.Join([]string{
			"The inventory API returned a response this client does not understand.",
			"Troubleshooting:",
			"  • Verify --api points at a Chronicle inventory API",
			"  • Check that client and API versions match",
		}, "\n")

	default:
		return "An error occurred. Please check the error message for details."
	}
}
