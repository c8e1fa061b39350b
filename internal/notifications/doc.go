// Package notifications delivers operator-facing events via the Telegram
// Bot API.
//
// Upload progress updates edit a single chat message per upload so long
// transfers do not flood the chat. The service gracefully degrades to a
// no-op when no bot token is configured; all callers depend only on the
// simple Service interface.
package notifications
