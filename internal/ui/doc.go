// Package ui provides styled output for the non-interactive chronicle
// commands.
//
// Unlike the dashboard, these components follow a "run once and exit"
// pattern: result boxes for command outcomes, warning boxes and prompts for
// confirmations, and terminal size detection shared with the dashboard.
//
// # Logging Integration
//
// zap logging is silent unless CHRONICLE_LOG_LEVEL or --log-level is set,
// so the curated output here is displayed cleanly.
package ui
