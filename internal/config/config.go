package config

import (
	"fmt"
	"os"
	"rivals-tracker/internal/constants"
	"rivals-tracker/internal/logger"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	ThrottleMemory = "memory"
	ThrottleSQLite = "sqlite"
	ThrottleRedis  = "redis"
)

type Config struct {
	RivalsAPIKey    string
	RivalsBaseURL   string
	Season          int
	DBPath          string
	ServerPort      string
	LogLevel        string
	ThrottleBackend string
	RefreshCooldown time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
}

func Load(log zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		RivalsAPIKey:    getEnv("RIVALS_API_KEY", ""),
		RivalsBaseURL:   getEnv("RIVALS_BASE_URL", "https://marvelrivalsapi.com/api/v1"),
		DBPath:          getEnv("DB_PATH", "rivals.db"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ThrottleBackend: getEnv("THROTTLE_BACKEND", ThrottleMemory),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
	}

	if cfg.RivalsAPIKey == "" {
		return nil, fmt.Errorf("RIVALS_API_KEY is required")
	}

	var err error
	if cfg.Season, err = getEnvInt("RIVALS_SEASON", constants.DefaultSeason); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	cfg.RefreshCooldown = constants.RefreshCooldown
	if raw := os.Getenv("REFRESH_COOLDOWN"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("REFRESH_COOLDOWN must be a positive duration, got %q", raw)
		}
		cfg.RefreshCooldown = d
	}

	switch cfg.ThrottleBackend {
	case ThrottleMemory, ThrottleSQLite, ThrottleRedis:
	default:
		return nil, fmt.Errorf("THROTTLE_BACKEND must be one of memory, sqlite, redis, got %q", cfg.ThrottleBackend)
	}

	if err := logger.SetGlobalLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	log.Info().
		Str("base_url", cfg.RivalsBaseURL).
		Int("season", cfg.Season).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("throttle_backend", cfg.ThrottleBackend).
		Dur("refresh_cooldown", cfg.RefreshCooldown).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

var Module = fx.Provide(Load)
