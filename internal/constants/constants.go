package constants

import "time"

const (
	RefreshCooldown    = 30 * time.Minute
	HistoryPageSize    = 20
	DefaultSeason      = 2
	HistoryGameMode    = 0
	RecentRefreshLimit = 10
)

const (
	ExternalAPITimeout = 10 * time.Second
	RefreshTimeout     = 15 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RedisTimeout       = 3 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)
