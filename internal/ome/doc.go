// Package ome queries the OvenMediaEngine REST API for application and
// stream information used by the admin dashboard.
package ome
