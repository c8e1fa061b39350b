// Package rooms manages streaming room lifecycle: credential minting,
// conference join links, and expiry cleanup.
package rooms
