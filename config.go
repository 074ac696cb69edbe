package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tasktrail/ai"
	"tasktrail/domain"
	"tasktrail/storage"
)

const (
	backendAzure  = "azure"
	backendMemory = "memory"
)

type authConfig struct {
	Audience     string
	Domain       string
	TestMode     bool
	TestSecret   string
	LocalMode    string
	LocalSecret  string
	JWKSCacheTTL time.Duration
}

type config struct {
	Debug       bool
	ListenAddr  string
	Backend     string
	Storage     storage.Config
	RedisConn   string
	CacheTTL    time.Duration
	DeduperTTL  time.Duration
	ChangesChan string
	Concurrency int

	HistoryPollInterval time.Duration
	HistoryMaxDequeue   int

	Names domain.RoleNames
	AI    ai.Config
	Auth  authConfig
}

// loadConfig reads the service configuration from the environment.
func loadConfig(getenv func(string) string) (config, error) {
	var errs []error
	envInt := func(key string, def int) int {
		raw := getenv(key)
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s: must be a positive integer", key))
			return def
		}
		return n
	}
	envDur := func(key string, def time.Duration) time.Duration {
		raw := getenv(key)
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s: must be a positive duration", key))
			return def
		}
		return d
	}
	envStr := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := config{
		Backend:             strings.ToLower(envStr("STORAGE_BACKEND", backendAzure)),
		Storage:             storage.ConfigFromEnv(getenv),
		RedisConn:           getenv("REDIS_CONNECTION_STRING"),
		CacheTTL:            envDur("CACHE_TTL", 5*time.Minute),
		DeduperTTL:          envDur("DEDUPER_TTL", 24*time.Hour),
		ChangesChan:         envStr("BOARD_CHANGES_CHANNEL", "board-changes"),
		Concurrency:         envInt("PERSIST_CONCURRENCY", 8),
		HistoryPollInterval: envDur("HISTORY_POLL_INTERVAL", time.Second),
		HistoryMaxDequeue:   envInt("HISTORY_MAX_DEQUEUE", 5),
		Names: domain.RoleNames{
			Inbox:  envStr("STATUS_INBOX_NAME", domain.DefaultRoleNames.Inbox),
			Active: envStr("STATUS_ACTIVE_NAME", domain.DefaultRoleNames.Active),
			Done:   envStr("STATUS_DONE_NAME", domain.DefaultRoleNames.Done),
		},
		AI: ai.Config{
			Provider:      getenv("AI_PROVIDER"),
			OpenAIKey:     getenv("OPENAI_API_KEY"),
			OpenAIBaseURL: getenv("OPENAI_BASE_URL"),
			GeminiKey:     getenv("GEMINI_API_KEY"),
			Model:         getenv("AI_MODEL"),
			Timeout:       envDur("AI_TIMEOUT", 30*time.Second),
		},
		Auth: authConfig{
			Audience:     getenv("AUTH_AUDIENCE"),
			Domain:       getenv("AUTH_DOMAIN"),
			TestMode:     getenv("AUTH_TEST_MODE") == "1",
			TestSecret:   getenv("TEST_JWT_SECRET"),
			LocalMode:    strings.ToLower(getenv("LOCAL_AUTH_MODE")),
			LocalSecret:  getenv("LOCAL_AUTH_SHARED_SECRET"),
			JWKSCacheTTL: envDur("JWKS_CACHE_TTL", 15*time.Minute),
		},
	}
	if dbg, err := strconv.ParseBool(getenv("DEBUG")); err == nil {
		cfg.Debug = dbg
	}
	cfg.ListenAddr = ":8080"
	if port := getenv("PORT"); port != "" {
		cfg.ListenAddr = ":" + port
	} else if port := getenv("FUNCTIONS_CUSTOMHANDLER_PORT"); port != "" {
		cfg.ListenAddr = ":" + port
	}

	switch cfg.Backend {
	case backendMemory:
	case backendAzure:
		if cfg.Storage.ConnectionString == "" {
			errs = append(errs, errors.New("missing STORAGE_CONNECTION_STRING"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.Backend))
	}

	switch cfg.Auth.LocalMode {
	case "":
		if cfg.Auth.TestMode && cfg.Auth.TestSecret == "" {
			errs = append(errs, errors.New("TEST_JWT_SECRET must be set when AUTH_TEST_MODE=1"))
		}
		if !cfg.Auth.TestMode && (cfg.Auth.Audience == "" || cfg.Auth.Domain == "") {
			errs = append(errs, errors.New("missing AUTH_AUDIENCE or AUTH_DOMAIN"))
		}
	case "hs256":
		if cfg.Auth.LocalSecret == "" {
			errs = append(errs, errors.New("LOCAL_AUTH_SHARED_SECRET must be set when LOCAL_AUTH_MODE=hs256"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported LOCAL_AUTH_MODE %q", cfg.Auth.LocalMode))
	}
	return cfg, errors.Join(errs...)
}

// sharedSecret is the HS256 secret for test and local auth modes, empty when
// tokens are verified against JWKS.
func (a authConfig) sharedSecret() string {
	if a.LocalMode == "hs256" {
		return a.LocalSecret
	}
	if a.TestMode {
		return a.TestSecret
	}
	return ""
}

// parseRedisOptions accepts a redis:// URL or an Azure style
// "host:port,password=...,ssl=true" connection string.
func parseRedisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
