package fx

import (
	"context"
	"database/sql"
	"fmt"
	"rivals-tracker/internal/api"
	"rivals-tracker/internal/config"
	"rivals-tracker/internal/constants"
	"rivals-tracker/internal/database"
	"rivals-tracker/internal/logger"
	"rivals-tracker/internal/repository"
	"rivals-tracker/internal/server"
	"rivals-tracker/internal/service"
	"rivals-tracker/internal/throttle"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideUpstream(client *api.RivalsClient) service.Upstream {
	return client
}

func ProvideRefreshLog(repo *repository.RefreshLogRepository) service.RefreshLog {
	return repo
}

func ProvideThrottleRepository(sqlDB *sql.DB, cfg *config.Config, logger zerolog.Logger) *repository.ThrottleRepository {
	return repository.NewThrottleRepository(sqlDB, cfg.RefreshCooldown, logger)
}

// ProvideThrottleStore selects the throttle backend named by
// THROTTLE_BACKEND.
func ProvideThrottleStore(lc fx.Lifecycle, cfg *config.Config, repo *repository.ThrottleRepository, logger zerolog.Logger) (throttle.Store, error) {
	logger.Info().Str("backend", cfg.ThrottleBackend).Dur("cooldown", cfg.RefreshCooldown).Msg("refresh throttle configured")

	switch cfg.ThrottleBackend {
	case config.ThrottleSQLite:
		return repo, nil
	case config.ThrottleRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  constants.RedisTimeout,
			ReadTimeout:  constants.RedisTimeout,
			WriteTimeout: constants.RedisTimeout,
		})

		ctx, cancel := context.WithTimeout(context.Background(), constants.RedisTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		return throttle.NewRedisStore(client, cfg.RefreshCooldown), nil
	default:
		return throttle.NewMemoryStore(cfg.RefreshCooldown), nil
	}
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(ProvideThrottleRepository),
	fx.Provide(repository.NewRefreshLogRepository),
	fx.Provide(ProvideRefreshLog),
	fx.Provide(ProvideThrottleStore),
	// api client
	fx.Provide(api.NewRivalsClient),
	fx.Provide(ProvideUpstream),
	// svc
	fx.Provide(service.NewStatsService),
	// server
	fx.Provide(server.NewStatsServer),
)
