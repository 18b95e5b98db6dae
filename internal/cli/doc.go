// Package cli holds the media-bot command tree. serve runs the Telegram bot with
// the temp-file sweeper; the remaining commands expose single operations for
// scripting and troubleshooting.
package cli
