package ir

// Version constants for persisted artifacts.
const (
	// CacheFormatVersion is bumped whenever the persisted corpus layout or the
	// document builders change in a way that invalidates old caches.
	CacheFormatVersion = "1"

	// BuilderVersion is the huntql query builder version reported by the CLI.
	BuilderVersion = "0.3.0"
)
