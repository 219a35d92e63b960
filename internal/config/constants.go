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

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Open screen-share sessions older than this are closed by the cleanup job.
const StaleSessionAge = 24 * time.Hour

// Default rate limiting
const DefaultRateLimitPerMin = 60

// Tighter per-IP limit on unauthenticated code/token endpoints to slow
// brute-force guessing of 6-digit codes.
const CodeGuessLimitPerMin = 15

// How many times code generation retries on a unique-constraint collision
// before giving up.
const CodeRetryAttempts = 5

// Auth session lifetime
const AuthSessionTTL = 30 * 24 * time.Hour

// Support message body limit
const SupportMessageMaxLen = 2000
