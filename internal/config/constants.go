package config

import "time"

// Postgres pool.
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
	DBPingTimeout     = 5 * time.Second
)

// HTTP server. WriteTimeout stays unset so SSE and WebSocket streams can live
// past ServerRequestTimeout, which only wraps request/response routes.
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// LedgerAuditInterval is how often rating counts are checked against completed
// sessions.
const LedgerAuditInterval = 10 * time.Minute

// LoginAttemptsPerMin caps login attempts per client IP.
const LoginAttemptsPerMin = 10
