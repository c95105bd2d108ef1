// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire console.

It defines default timeouts, storage keys, and cross-cutting identifiers that are
shared between the session, navigation, and transport layers.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Session: Cookie names and the client storage key taxonomy.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "ucenter-console"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 35 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Session

const (
	// SessionCookieName is the default cookie identifying one browser tab's session.
	SessionCookieName = "console_sid"

	// SessionCookiePath scopes the tab cookie to the whole console.
	SessionCookiePath = "/"

	// SessionIdleTTL is how long an untouched tab session stays in memory.
	SessionIdleTTL = 2 * time.Hour

	// SessionSweepInterval is how often idle tab sessions are evicted.
	SessionSweepInterval = 5 * time.Minute

	// TokenRefreshLeeway is how close to expiry an access token is considered stale.
	TokenRefreshLeeway = 60 * time.Second
)

// # Client Storage Keys

const (
	StorageKeyToken        = "token"
	StorageKeyRefreshToken = "refreshToken"
	StorageKeyUser         = "user"
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in mock JWTs.
	AuthIssuer = "ucenter.mock"

	// DevAccessTokenTTL is the lifetime of access tokens minted by the mock API.
	DevAccessTokenTTL = 2 * time.Hour
)

// # JSON Field Identifiers

const (
	FieldError   = "error"
	FieldCode    = "code"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaConsole = "console"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixStorage = "console:storage:"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
	HeaderRetryAfter    = "Retry-After"
)
