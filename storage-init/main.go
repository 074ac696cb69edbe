package main

import (
	"context"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	"tasktrail/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	cfg := storage.ConfigFromEnv(os.Getenv)
	if cfg.ConnectionString == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}
	if err := storage.EnsureResources(context.Background(), cfg); err != nil {
		log.Fatalf("ensure resources: %v", err)
	}

	log.Info("storage init complete")
}
