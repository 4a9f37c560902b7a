package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/hospital-voicebot/internal/appointments"
	appconfig "github.com/wolfman30/hospital-voicebot/internal/config"
	"github.com/wolfman30/hospital-voicebot/internal/retrieval"
	"github.com/wolfman30/hospital-voicebot/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildResponseCache picks the retrieval response cache. The redis backend
// falls back to memory when no client is available.
func BuildResponseCache(cfg *appconfig.Config, redisClient redis.Cmdable, logger *logging.Logger) retrieval.ResponseCache {
	if logger == nil {
		logger = logging.Default()
	}
	ttl, size := retrieval.DefaultCacheTTL, retrieval.DefaultCacheMaxSize
	backend := "memory"
	if cfg != nil {
		if cfg.ResponseCacheTTL > 0 {
			ttl = cfg.ResponseCacheTTL
		}
		if cfg.ResponseCacheMaxSize > 0 {
			size = cfg.ResponseCacheMaxSize
		}
		backend = cfg.ResponseCacheBackend
	}

	if backend == "redis" {
		if redisClient != nil {
			logger.Info("response cache backend", "backend", "redis", "ttl", ttl, "max_size", size)
			return retrieval.NewRedisResponseCache(redisClient, "", ttl, size)
		}
		logger.Warn("redis response cache requested but redis is unavailable; using memory")
	}
	logger.Info("response cache backend", "backend", "memory", "ttl", ttl, "max_size", size)
	return retrieval.NewMemoryCache(ttl, size)
}

// BuildAppointmentStore returns the configured appointment store and a close
// func for any pool it opened.
func BuildAppointmentStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (appointments.Store, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.AppointmentStore {
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, nil, fmt.Errorf("bootstrap: DATABASE_URL is required for the postgres appointment store")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: open postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		logger.Info("appointment store", "backend", "postgres")
		return appointments.NewPostgresStore(pool), pool.Close, nil
	case "", "file":
		logger.Info("appointment store", "backend", "file", "path", cfg.AppointmentsPath)
		return appointments.NewFileStore(cfg.AppointmentsPath), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown appointment store %q", cfg.AppointmentStore)
	}
}
