// Package mirotalk mints signed join tokens and join URLs for MiroTalk
// conference rooms. It does not talk to the MiroTalk server itself.
package mirotalk
