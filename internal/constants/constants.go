package constants

import "time"

const (
	DefaultRosterInterval   = 30 * time.Second
	DefaultMetadataInterval = 60 * time.Second
	MinRefreshInterval      = 1 * time.Second
	TickInterval            = 1 * time.Second
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	// Torn allows 100 calls per minute per key, shared with anything else using it
	TornCallsPerMinute = 60
	TornBurst          = 5
)

const (
	// FFScouter accepts up to 205 targets per call; stay well below it.
	EstimateBatchSize   = 100
	EstimateConcurrency = 4
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	ResourceMetadata   = "metadata"
	ResourceRosterPref = "roster:"
)
