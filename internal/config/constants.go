package config

import "time"

// Session lifetimes
const (
	PendingSessionTTL   = 5 * time.Minute
	ConnectedSessionTTL = 24 * time.Hour
)

// Background sweep interval for expired sessions and rate-limit entries
const SweepInterval = time.Minute

// Session creation rate limit (per client IP)
const (
	SessionRateLimitWindow = time.Minute
	SessionRateLimitMax    = 10
)

// HTTP server timeouts
const (
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 10 * time.Second
)

// Maximum accepted request body for POST /session
const MaxBodySize = 64 << 10
