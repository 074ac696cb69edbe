package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"tasktrail/ai"
	"tasktrail/api"
	"tasktrail/board"
	"tasktrail/history"
	"tasktrail/storage"
)

func main() {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	ctx := context.Background()

	var backend storage.Backend
	switch cfg.Backend {
	case backendMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		backend = storage.NewMemory()
	default:
		store, err := storage.New(cfg.Storage)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		backend = store
		projector := history.NewProjector(store, store, cfg.HistoryPollInterval, int64(cfg.HistoryMaxDequeue))
		go projector.Run(ctx)
	}

	hub := api.NewHub()
	var notifier board.Notifier = hub
	var deduper api.Deduper
	checks := map[string]api.Checker{}
	var changes *api.RedisNotifier
	if cfg.RedisConn != "" {
		rc := redis.NewClient(parseRedisOptions(cfg.RedisConn))
		backend = storage.NewCache(backend, rc, cfg.CacheTTL)
		deduper = api.NewRedisDeduper(rc, cfg.DeduperTTL)
		checks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }

		changes = api.NewRedisNotifier(rc, cfg.ChangesChan)
		notifier = changes
	} else {
		log.Warn("REDIS_CONNECTION_STRING not set, batch idempotency and cross-instance updates are disabled")
	}

	registry := board.NewRegistry(backend, board.Options{Names: cfg.Names, Concurrency: cfg.Concurrency}, notifier)
	if changes != nil {
		go changes.Listen(ctx, func(userID string, remote bool) {
			if remote {
				registry.Forget(userID)
			}
			hub.Broadcast(userID)
		})
	}

	completer, err := ai.NewCompleter(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("ai: %v", err)
	}
	if completer == nil {
		log.Info("no AI provider configured, task parsing uses the fallback")
	}

	auth, err := newAuth(cfg.Auth)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	e.Use(api.GzipRequestMiddleware())
	e.Use(echoprometheus.NewMiddleware("tasktrail"))
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, api.Deps{
		Boards:  registry,
		Store:   backend,
		Auth:    auth,
		Deduper: deduper,
		Parser:  ai.NewParser(completer),
		Hub:     hub,
		Checks:  checks,
		Logger:  log.StandardLogger(),
	})

	log.WithField("addr", cfg.ListenAddr).Info("tasktrail api listening")
	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}

func newAuth(cfg authConfig) (*api.Auth, error) {
	if secret := cfg.sharedSecret(); secret != "" {
		log.Warn("verifying tokens with a shared HS256 secret")
		return api.NewAuth(api.AuthConfig{
			Audience:     cfg.Audience,
			Issuer:       issuerFor(cfg.Domain),
			SharedSecret: secret,
			KeyCacheTTL:  cfg.JWKSCacheTTL,
		}), nil
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Domain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{RefreshInterval: cfg.JWKSCacheTTL})
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	return api.NewAuth(api.AuthConfig{
		JWKS:        jwks,
		Audience:    cfg.Audience,
		Issuer:      issuerFor(cfg.Domain),
		KeyCacheTTL: cfg.JWKSCacheTTL,
	}), nil
}

func issuerFor(domain string) string {
	if domain == "" {
		return ""
	}
	return "https://" + domain + "/"
}
