// Package logging provides structured logging for Chronicle.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used across the client, the operation coordinator and the
// notification queue.
//
// # Log Levels
//
//   - Debug: Request/response traffic, superseded operations
//   - Info: Successful writes (create, modify, delete, settings)
//   - Warn: Failed remote calls that were reported to the user
//   - Error: Startup failures
//
// # Silent by Default
//
// Logging is disabled unless a level is passed to Initialize or the
// CHRONICLE_LOG_LEVEL environment variable is set. The terminal dashboard
// owns stdout, so the CLI only enables logging when asked to.
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Structured Logging
//
//	logging.Info("Device updated",
//	    zap.String("device", "r1"),
//	    zap.Strings("fields", []string{"port"}),
//	)
//
// All logging functions are safe for concurrent use.
package logging
