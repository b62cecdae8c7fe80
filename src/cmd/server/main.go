package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/http/controller"
	"github.com/api-sage/account-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/account-ledger/src/internal/adapter/http/router"
	"github.com/api-sage/account-ledger/src/internal/bootstrap"
	"github.com/api-sage/account-ledger/src/internal/config"
	"github.com/api-sage/account-ledger/src/internal/logger"
	"github.com/api-sage/account-ledger/src/internal/metrics/prometheus"
	"github.com/api-sage/account-ledger/src/internal/usecase/services"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Error("account ledger server stopped", err, nil)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run() error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := prometheus.NewCollector("ledger")

	startupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, closeStore, err := bootstrap.OpenStore(startupCtx, cfg, collector)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("close ledger store failed", err, nil)
		}
	}()

	ledgerService := services.NewLedgerService(store, collector)

	channelKeyHash, err := middleware.HashChannelKey(cfg.ChannelKey)
	if err != nil {
		return err
	}

	mux := router.New(
		middleware.BasicAuth(cfg.ChannelID, channelKeyHash),
		collector.Handler(),
		controller.NewAccountController(ledgerService),
		controller.NewTransactionController(ledgerService),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           mux,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("account ledger server listening", logger.Fields{
			"address":     cfg.HTTPAddress,
			"storeDriver": cfg.StoreDriver,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("account ledger server shutting down", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
