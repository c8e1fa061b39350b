// Package logging builds the slog loggers used across colourstream.
//
// It provides console and JSON handlers, standardized attribute helpers, and
// field-name constants so upload identifiers, room identifiers, and component
// names are logged consistently by the daemon, the API server, and the CLI.
package logging
