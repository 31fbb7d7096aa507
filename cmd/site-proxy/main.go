package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/congregation-site/pkg/cache"
	"github.com/Sternrassler/congregation-site/pkg/client"
	"github.com/Sternrassler/congregation-site/pkg/config"
	"github.com/Sternrassler/congregation-site/pkg/logging"
	"github.com/Sternrassler/congregation-site/pkg/metrics"
	"github.com/Sternrassler/congregation-site/pkg/proxy"
	"github.com/Sternrassler/congregation-site/pkg/tenant"
	"github.com/Sternrassler/congregation-site/pkg/warmup"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.LogLevel)
	logCfg.Pretty = cfg.LogPretty
	logCfg.Service = "site-proxy"
	logCfg.Version = version
	logging.Setup(logCfg)
	logger := logging.NewLogger("site-proxy")
	logger.Info().Str("config", cfg.String()).Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("redis_url", cfg.RedisURL).Msg("Failed to connect to Redis")
	}
	defer closeStore()

	clientCfg := client.DefaultConfig(cfg.APIURL)
	clientCfg.UserAgent = "congregation-site/" + version
	clientCfg.Retry.MaxAttempts = cfg.APIAttempts()
	contentClient, err := client.New(clientCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create content API client")
	}

	p := proxy.New(store, contentClient, proxy.Config{
		TTL:        cfg.CacheTTLDuration(),
		VersionTTL: cfg.VersionTTLDuration(),
	}, logging.NewLogger("proxy"))

	srv := &server{
		proxy:     p,
		resolver:  tenant.NewResolver(cfg.APIToken),
		warmer:    warmup.New(p, warmup.DefaultConfig()),
		warmPaths: warmup.ParsePaths(cfg.WarmPaths),
		theme:     cfg.Theme,
		store:     store,
		logger:    logger,
	}

	metrics.SetServiceInfo(version, cfg.Mode(), cfg.CacheBackend)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           logging.AccessLog(logging.NewLogger("http"), srv.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", httpServer.Addr).
		Str("mode", cfg.Mode()).
		Str("cache_backend", cfg.CacheBackend).
		Bool("caching", p.Enabled()).
		Msg("Starting site proxy server")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}

// openStore builds the configured cache store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	if cfg.CacheBackend == config.BackendMemory {
		store := cache.NewMemoryStore()
		janitorCtx, cancel := context.WithCancel(ctx)
		go store.RunJanitor(janitorCtx, time.Minute)
		return store, cancel, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return nil, nil, err
	}
	log.Info().Str("redis_url", cfg.RedisURL).Msg("Connected to Redis")

	return cache.NewRedisStore(redisClient), func() { redisClient.Close() }, nil
}
