package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Recovery snapshots older than this are discarded unread.
const SnapshotStaleness = 24 * time.Hour

// Background sweep of idle sessions
const (
	SweepInterval        = 1 * time.Minute
	SessionIdleThreshold = 30 * time.Minute
)

// Activity rows kept in Postgres
const ActivityRetention = 90 * 24 * time.Hour

// Daily report send time (local clock)
const (
	ReportHour   = 23
	ReportMinute = 59
)

// Default rate limiting
const DefaultRateLimitPerMin = 30
