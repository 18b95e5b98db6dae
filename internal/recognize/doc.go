package recognize

// Package recognize wraps the fingerprint recognition engine. It flattens the
// engine's nested payloads into model.TrackRecord values with null-safe lookups
// (github.com/tidwall/gjson) and keeps each user's last search result set in an
// injected SessionStore so later selections can be resolved or rejected as stale.
