package constants

import "time"

const (
	ResultsCacheTTL = 24 * time.Hour
	ProfileCacheTTL = 24 * time.Hour
	BadgeCacheTTL   = 72 * time.Hour
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	MaxFetchRetries   = 5
	FetchRetryBackoff = 3 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)
