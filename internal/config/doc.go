// Package config loads, normalizes, and validates colourstream configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for
// credentials such as COLOURSTREAM_ADMIN_PASSWORD and TELEGRAM_BOT_TOKEN. The
// Config type centralizes every knob the daemon and CLI need: API bind
// address, database location, JWT settings, object storage endpoints, OBS and
// OvenMediaEngine control credentials, and upload retention policy.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
