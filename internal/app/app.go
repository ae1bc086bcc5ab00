// Package app wires configuration, stores, services and transports into a
// runnable HTTP server.
package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"spothire/internal/cache"
	"spothire/internal/codegen"
	"spothire/internal/config"
	"spothire/internal/logging"
	"spothire/internal/repository"
	"spothire/internal/seed"
	"spothire/internal/service"
	"spothire/internal/transport/rest"
	"spothire/internal/transport/rest/middleware"
	"spothire/internal/transport/ws"
)

type App struct {
	cfg    *config.Config
	log    logging.Logger
	store  *repository.Store
	rdb    *redis.Client
	hub    *ws.Hub
	server *http.Server
}

// New connects the stores and builds the server. Neither Mongo nor Redis
// being unreachable is fatal.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	store, err := repository.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:   cfg,
		log:   log,
		store: store,
		rdb:   connectRedis(ctx, cfg, log),
		hub:   ws.NewHub(log),
	}

	sessionRepo := repository.NewSessionRepo(store)
	candidateRepo := repository.NewCandidateRepo(store)
	templateRepo := repository.NewTemplateRepo(store)
	src := seed.NewSource()

	candidateSvc := service.NewCandidateService(candidateRepo, src, cfg.Feed.ReferenceArea, log)
	templateSvc := service.NewTemplateService(templateRepo, src, log)
	matchingSvc := service.NewMatchingService(candidateSvc, templateSvc, log)
	sessionSvc := service.NewSessionService(sessionRepo, candidateSvc, codegen.NewRandom(), log)
	sessionSvc.SetNotifier(a.hub)

	if a.rdb != nil {
		sessionSvc.SetCodeCache(cache.NewCodeCache(a.rdb, cfg.Redis.CodeTTL))
		candidateSvc.SetFeedCache(cache.NewFeedCache(a.rdb, cfg.Redis.FeedTTL))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PublicRPS, cfg.RateLimit.PublicBurst)
	limiter.SetTrustProxy(cfg.RateLimit.TrustProxy)

	container := &rest.Container{
		SessionService:   sessionSvc,
		CandidateService: candidateSvc,
		TemplateService:  templateSvc,
		MatchingService:  matchingSvc,
		WSHub:            a.hub,
		Store:            store,
		Limiter:          limiter,
		CORS: rest.CORSConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: cfg.CORS.AllowedMethods,
			AllowedHeaders: cfg.CORS.AllowedHeaders,
		},
		Log: log,
	}
	if !cfg.IsProduction() {
		container.SeedService = service.NewSeedService(templateRepo, candidateRepo, log)
	}

	a.server = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      rest.NewRouter(container),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return a, nil
}

// connectRedis returns nil when Redis is not configured or not reachable.
func connectRedis(ctx context.Context, cfg *config.Config, log logging.Logger) *redis.Client {
	if cfg.Redis.URL == "" {
		log.Warn(ctx, "REDIS_URI not set, caches disabled")
		return nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		// plain host:port
		opts = &redis.Options{Addr: strings.TrimPrefix(cfg.Redis.URL, "redis://")}
	}
	opts.DialTimeout = cfg.Redis.Timeout
	opts.ReadTimeout = cfg.Redis.Timeout
	opts.WriteTimeout = cfg.Redis.Timeout

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.Timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn(ctx, "redis unreachable, caches disabled", "error", err)
		rdb.Close()
		return nil
	}

	log.Info(ctx, "connected to Redis")
	return rdb
}

// Handler exposes the router for in-process use.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	go a.store.Monitor(monitorCtx, a.cfg.Mongo.PingInterval, a.log)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info(ctx, "server starting", "addr", a.server.Addr, "env", a.cfg.Env, "store_online", a.store.Online())
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			a.close()
			return err
		}
	case <-ctx.Done():
	}

	a.log.Info(context.Background(), "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	a.close()
	if err != nil {
		return err
	}

	a.log.Info(context.Background(), "server exited")
	return nil
}

func (a *App) close() {
	a.hub.Close()
	if a.rdb != nil {
		a.rdb.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.Disconnect(ctx); err != nil {
		a.log.Warn(ctx, "mongo disconnect failed", "error", err)
	}
}
