package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	memorycache "github.com/bnema/zalo-accounts/internal/adapters/cache/memory"
	rediscache "github.com/bnema/zalo-accounts/internal/adapters/cache/redis"
	"github.com/bnema/zalo-accounts/internal/adapters/events"
	"github.com/bnema/zalo-accounts/internal/adapters/events/redisrelay"
	"github.com/bnema/zalo-accounts/internal/adapters/media"
	"github.com/bnema/zalo-accounts/internal/adapters/render/qr"
	"github.com/bnema/zalo-accounts/internal/adapters/repo/memory"
	"github.com/bnema/zalo-accounts/internal/adapters/transport/httpapi"
	"github.com/bnema/zalo-accounts/internal/adapters/upstream/gateway"
	"github.com/bnema/zalo-accounts/internal/application"
	"github.com/bnema/zalo-accounts/internal/config"
	"github.com/bnema/zalo-accounts/internal/goroutine"
	"github.com/bnema/zalo-accounts/internal/ports"
)

const cacheSweepInterval = time.Minute

type app struct {
	cfg     config.Config
	log     *slog.Logger
	bus     *events.Bus
	service *application.Service
	logins  *application.LoginService
	server  *httpapi.Server
	qr      qr.Renderer
	closers []func()
}

func wireApp(cfg config.Config, log *slog.Logger) (*app, error) {
	if log == nil {
		log = slog.Default()
	}
	clock := ports.SystemClock{}

	upstream, err := gateway.New(gateway.Config{
		BaseURL:        cfg.Gateway.BaseURL,
		Token:          cfg.Gateway.Token,
		RequestTimeout: cfg.Gateway.RequestTimeout,
	}, http.DefaultClient, log)
	if err != nil {
		return nil, fmt.Errorf("wire gateway: %w", err)
	}

	a := &app{cfg: cfg, log: log, bus: events.NewBus(log), qr: qr.NewRenderer()}

	var redisClient goredis.UniversalClient
	if strings.EqualFold(cfg.Cache.Backend, "redis") || cfg.Events.RedisChannel != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}

	cache, stopCache := wireCache(cfg.Cache, redisClient, clock, log)
	a.closers = append(a.closers, stopCache)

	if cfg.Events.RedisChannel != "" {
		detach := redisrelay.New(redisClient, cfg.Events.RedisChannel, log).Attach(a.bus)
		a.closers = append(a.closers, detach)
	}

	accounts := memory.NewAccountRepository()
	runner := application.NewBatchRunner(memory.NewJobRepository(cfg.Jobs.Retain), a.bus, clock, log, application.BatchOptions{
		ItemDelay: cfg.Batch.ItemDelay,
	})
	collector := application.NewCollector(clock, log, application.CollectOptions{
		MaxPages:  cfg.Pagination.MaxPages,
		PageDelay: cfg.Pagination.PageDelay,
	})

	a.service = application.NewService(accounts, collector, runner, cache, log, application.ServiceOptions{
		GroupSafeLimit: cfg.Batch.GroupSafeLimit,
		GroupChunkSize: cfg.Batch.GroupChunkSize,
		CacheTTL:       cfg.Cache.TTL,
	})
	a.logins = application.NewLoginService(upstream, accounts, memory.NewLoginSessionRepository(), a.bus, a.qr, clock, log, application.LoginOptions{
		Timeout: cfg.Login.Timeout,
	})
	a.server = httpapi.New(httpapi.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadMB:    cfg.Server.MaxUploadMB,
	}, a.service, a.logins, a.bus, media.NewInspector(), log)

	return a, nil
}

func wireCache(cfg config.CacheConfig, client goredis.UniversalClient, clock ports.Clock, log *slog.Logger) (ports.Cache, func()) {
	switch strings.ToLower(cfg.Backend) {
	case "redis":
		return rediscache.New(client, rediscache.DefaultPrefix), func() {}
	case "none":
		return nil, func() {}
	default:
		cache := memorycache.New(clock)
		ctx, cancel := context.WithCancel(context.Background())
		goroutine.SafeGo(log, "cache-sweeper", func() {
			ticker := time.NewTicker(cacheSweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := cache.Sweep(); n > 0 {
						log.Debug("cache swept", "expired", n)
					}
				}
			}
		})
		return cache, cancel
	}
}

func (a *app) Close() {
	a.logins.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
