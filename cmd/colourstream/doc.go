// Package main hosts the colourstream CLI entrypoint and command graph.
//
// The Cobra-based command tree drives the daemon's HTTP API: room and
// upload link management, upload inspection, and health checks. It also
// carries the configuration scaffolding commands and a foreground `run`
// mode for development. Heavy lifting stays in the internal packages;
// commands here only translate flags into API calls and render results.
package main
