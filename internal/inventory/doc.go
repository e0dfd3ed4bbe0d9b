// Package inventory provides an HTTP client for the Chronicle inventory API.
//
// The API stores each network device as two sub-resources: the device
// identity ({name, deviceName, vendorName, host, ...}) and its SSH connection
// profile ({user, password, port, sshVerbosity, kexMethods,
// hostkeyAlgorithms}). A separate singleton holds the global SSH defaults
// ("settings").
//
// # Usage Example
//
//	client := inventory.NewClient("http://127.0.0.1:8000")
//
//	entry, err := client.GetDevice(ctx, "r1")
//	if err != nil {
//	    fmt.Println(inventory.ShortMessage(err))
//	    return
//	}
//
//	// Send only the fields that changed
//	err = client.ModifyDevice(ctx, "r1", url.Values{"port": {"2222"}})
//
// # Response Envelope
//
// Every endpoint answers with {success, data?, description?|message?}.
// The success flag is authoritative: a missing or false flag is reported as
// an error regardless of the HTTP status code.
//
// # Error Handling
//
// All errors are *inventory.Error values carrying a Kind:
//   - KindNetwork: transport failed, no response received
//   - KindServer: response received with success:false
//   - KindNotFound: success:false with HTTP 404
//   - KindValidation: success:false with HTTP 400/422
//   - KindUnknown: malformed or unexpected response shape
//
// No call is retried.
package inventory
