// Command cacheadmin runs the cache service: it connects to the shared store, builds the
// domain cache registry and serves the admin HTTP API until interrupted.
package main

import (
	"fmt"
	"os"

	"github.com/communityhub/platform/app"
	"github.com/communityhub/platform/config"
	"github.com/communityhub/platform/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cacheadmin: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	return a.Run()
}
