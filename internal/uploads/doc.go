// Package uploads tracks the progress of in-flight file uploads.
//
// A Tracker keeps the latest known state of every upload attempt in memory,
// keyed by the identifier minted by whichever ingress path observed it (tus
// hook id, xhr-<uuid>, s3-<fileId>, s3-companion-<key>). Each state change
// derives a transfer speed from the previous sample and hands the merged
// record to a notification dispatcher. Delivery is fire-and-forget through a
// bounded queue: a slow or failing notifier never blocks the request path
// that reported the progress.
//
// Tracker state is disposable. Nothing is persisted and a process restart
// loses all records; completed records are purged by a periodic retention
// sweep owned by the daemon.
package uploads
