// Package config loads, normalizes, and validates Restack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// RESTACK_UID/RESTACK_GID for containerized deployments. The Config type
// centralizes every knob the daemon and CLI need, so the downloads/media pane
// roots and permission normalization settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths, canonical log formats, and clear validation
// errors.
package config
