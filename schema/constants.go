package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for cache buckets.
	DatabaseBackend string

	// EventKind represents a lifecycle event dispatched to a worker.
	EventKind string

	// Outcome represents how a lifecycle run ended.
	Outcome string

	// Source tells where a fetched response came from.
	Source string
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All cache backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	MemoryBackend     DatabaseBackend = "memory"
)

// Lifecycle events.
const (
	InstallEvent  EventKind = "install"
	ActivateEvent EventKind = "activate"
	UpdateEvent   EventKind = "update" // install then activate
	FetchEvent    EventKind = "fetch"
)

// Lifecycle outcomes.
const (
	PendingOutcome Outcome = "pending"
	SuccessOutcome Outcome = "success"
	FailedOutcome  Outcome = "failed"
)

// Response sources.
const (
	CacheSource   Source = "cache"
	NetworkSource Source = "network"
)

// DefaultCacheVersion names the bucket used when no version is configured.
const DefaultCacheVersion = "v1"

// DefaultAssets is the manifest of resources the web app needs offline.
var DefaultAssets = []string{
	"/",
	"/manifest.json",
	"/continugo.js",
	"/service-worker.js",
	"/media/favicon.svg",
	"/media/style.css",
	"/media/rec-mono-csl-bold.woff2",
	"/media/rec-mono-csl-italic.woff2",
	"/media/rec-mono-csl-regular.woff2",
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid cache backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	MemoryBackend:     {},
}
