// Package auth issues and validates admin session tokens and verifies
// admin credentials against the store.
package auth
