// Package config loads, normalizes, and validates MusicScan configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DISCOGS_TOKEN and OPENROUTER_API_KEY. The Config type centralizes every knob
// the server and CLI need, so catalog credentials, AI settings, and the
// identification thresholds are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
