// Package store manages colourstream persistence backed by SQLite.
//
// It owns the users, rooms, and upload_links tables: admin credentials, room
// stream/conference credentials with expiry, and tokenized upload links handed
// to external clients. Schema creation is versioned through a schema_version
// table; a mismatch is surfaced as ErrSchemaMismatch rather than silently
// migrated.
package store
