// Package obs controls a local OBS Studio instance over the obs-websocket
// v5 protocol: stream service configuration and stream start/stop.
package obs
