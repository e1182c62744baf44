// Package notify delivers operator notifications.
//
// Telegram talks to the Telegram Bot API: text messages in HTML parse
// mode, JPEG previews as photos or documents, in-place image edits and
// pinning. Requests that fail with a 5xx or 429 are retried with jittered
// exponential backoff. Log is a stand-in used when no bot token is
// configured.
package notify
