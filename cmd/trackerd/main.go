/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kentakayama/tracker-over-http/internal/config"
	"github.com/kentakayama/tracker-over-http/internal/domain/model"
	"github.com/kentakayama/tracker-over-http/internal/infra/backend"
	"github.com/kentakayama/tracker-over-http/internal/infra/sqlite"
	"github.com/kentakayama/tracker-over-http/internal/location"
	"github.com/kentakayama/tracker-over-http/internal/server"
	"github.com/kentakayama/tracker-over-http/internal/tracker"
	"github.com/kentakayama/tracker-over-http/internal/util"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		envFile = flag.String("env", ".env", "Optional dotenv file with TRACKER_* settings")
		listen  = flag.String("listen", "", "Control API listen address (overrides "+config.EnvListenAddr+")")
		dbPath  = flag.String("db", "", "SQLite database path (overrides "+config.EnvDBPath+")")
		dump    = flag.Bool("dump", false, "Print the stored records as JSON and exit")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[trackerd] ", log.LstdFlags|log.Lmicroseconds)

	if *dump {
		path := *dbPath
		if path == "" {
			path = config.DefaultDBPath
		}
		if err := dumpRecords(path); err != nil {
			logger.Fatalf("dump records: %v", err)
		}
		return
	}

	cfg, err := config.LoadFromEnv(*envFile)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	cfg.Logger = logger
	cfg.Backend.Logger = logger

	if err := run(cfg); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(cfg config.TrackerConfig) error {
	logger := cfg.Logger
	ctx := context.Background()

	db, err := sqlite.InitDB(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	defer closeDB(db, logger)
	store := sqlite.NewKVStore(db)

	registry, err := backend.NewRegistryClient(cfg.Backend)
	if err != nil {
		return err
	}
	collector, err := backend.NewCollectorClient(cfg.Backend)
	if err != nil {
		return err
	}

	// headless device: the operator grants location access by running the daemon
	provider := location.NewPushProvider()
	source := location.NewPollingSource(provider, location.StaticPrompter(model.PermissionGranted), logger)

	tr, err := tracker.NewTracker(tracker.Options{
		Store:            store,
		Source:           source,
		Registry:         registry,
		Collector:        collector,
		DeliveryInterval: cfg.DeliveryInterval,
		RefreshInterval:  cfg.RefreshInterval,
		DeliveryTimeout:  cfg.Backend.Timeout,
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	defer tr.Close()

	// permissions live in memory only; ask again before resuming a session
	if _, err := tr.RequestPermissions(ctx); err != nil {
		return fmt.Errorf("request permissions: %w", err)
	}
	session, err := tr.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	logger.Printf("session restored tracking=%t", session.Active)

	srv, err := server.New(cfg, tr, provider, store)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Printf("received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown control API: %v", err)
	}
	return nil
}

func dumpRecords(path string) error {
	ctx := context.Background()
	db, err := sqlite.InitDB(ctx, path)
	if err != nil {
		return err
	}
	defer sqlite.CloseDB(db)

	store := sqlite.NewKVStore(db)
	keys, err := store.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		raw, err := store.Get(ctx, key)
		if err != nil {
			return err
		}
		pretty, err := util.RenderCBORPretty(raw)
		if err != nil {
			pretty = fmt.Sprintf("h'%x'", raw)
		}
		fmt.Printf("%s: %s\n", key, pretty)
	}
	return nil
}

func closeDB(db *sql.DB, logger *log.Logger) {
	if err := sqlite.CloseDB(db); err != nil {
		logger.Printf("close store: %v", err)
	}
}
