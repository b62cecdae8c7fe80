package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/implementations"
	"github.com/api-sage/account-ledger/src/internal/config"
	"github.com/api-sage/account-ledger/src/internal/logger"
)

var dryRun = flag.Bool("dry-run", false, "List pending migrations without applying them")

func main() {
	flag.Parse()

	if err := run(*dryRun, os.Stdout); err != nil {
		logger.Error("migrate failed", err, nil)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(dryRun bool, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("load config: %v", err)
		return err
	}
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		log.Printf("init logger: %v", err)
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := implementations.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if dryRun {
		pending, err := implementations.PendingMigrations(ctx, db, cfg.MigrationsDir)
		if err != nil {
			return err
		}
		return printPending(out, pending)
	}

	return implementations.RunMigrations(ctx, db, cfg.MigrationsDir)
}

func printPending(out io.Writer, pending []implementations.Migration) error {
	if len(pending) == 0 {
		_, err := fmt.Fprintln(out, "no pending migrations")
		return err
	}
	for _, m := range pending {
		if _, err := fmt.Fprintf(out, "%s\t%s\n", m.Version, m.Checksum[:12]); err != nil {
			return err
		}
	}
	return nil
}
