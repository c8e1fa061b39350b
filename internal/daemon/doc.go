// Package daemon wires the colourstream services into a single lifecycle:
// the HTTP API, the upload tracker, Telegram notifications, optional OBS and
// OvenMediaEngine clients, and the periodic retention sweep. Flock-based
// locking prevents multiple instances from sharing one data directory.
package daemon
