// Package config loads, normalizes, and validates vidaq configuration.
//
// Configuration lives in TOML (~/.config/vidaq/config.toml by default, or
// ./vidaq.toml for project-local runs). Load applies repository defaults,
// expands ~ in every path, honours the VIDAQ_BIND and VIDAQ_PUBLIC_BASE_URL
// environment overrides, and rejects values the server cannot run with.
//
// Other packages receive a *Config and should treat it as read-only.
package config
