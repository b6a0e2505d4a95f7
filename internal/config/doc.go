// Package config loads the pidash configuration file.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/pidash/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or blank, use defaults
//
// # TOML Format
//
//	base_url = "http://raspberrypi.local:8080"
//	session_file = "~/.config/pidash/session.toml"
//	log_file = "~/.local/state/pidash/pidash.log"
//	log_level = "info"
//	refresh_ms = 500
//	request_timeout_ms = 5000
//
// Every field is optional. Tilde expansion is performed on the two paths.
// A base_url without a scheme is treated as plain HTTP by the endpoint
// client. Non-positive durations fall back to their defaults.
//
// # Error Handling
//
// Load returns errors for path expansion failures, file read errors (except
// os.ErrNotExist) and TOML parse errors. A missing file is not an error.
//
// Command-line flags override individual fields after Load returns; see
// cmd/pidash.
package config
