package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/api-sage/account-ledger/src/internal/bootstrap"
	"github.com/api-sage/account-ledger/src/internal/config"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/logger"
	"github.com/api-sage/account-ledger/src/internal/metrics"
	"github.com/api-sage/account-ledger/src/internal/usecase/service_interfaces"
	"github.com/api-sage/account-ledger/src/internal/usecase/services"
)

const usage = `usage: ledgerctl [flags] <command>

commands:
  accounts                    list every account
  balance <accountId>         show one account's balance
  history <accountId> [start end]
                              show transactions, optionally between YYYY-MM-DD dates
`

var timeout = flag.Duration("timeout", 30*time.Second, "Deadline for the whole command")

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(flag.Args(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := checkStoreDriver(cfg); err != nil {
		return err
	}
	if err := logger.Init(logger.Config{Level: "error", Format: "console"}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, closeStore, err := bootstrap.OpenStore(ctx, cfg, metrics.NoOpCollector{}, bootstrap.SkipMigrations())
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	return execute(ctx, services.NewLedgerService(store, nil), args, out)
}

// checkStoreDriver rejects the memory driver: a fresh process would always
// read an empty ledger.
func checkStoreDriver(cfg config.Config) error {
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("ledgerctl reads a persistent ledger; STORE_DRIVER=%s is not supported", cfg.StoreDriver)
	}
	return nil
}

func execute(ctx context.Context, service service_interfaces.LedgerService, args []string, out io.Writer) error {
	switch args[0] {
	case "accounts":
		summaries, err := service.ListAccounts(ctx)
		if err != nil {
			return err
		}
		renderAccounts(out, summaries)
		return nil

	case "balance":
		if len(args) != 2 {
			return fmt.Errorf("balance takes exactly one account id")
		}
		balance, err := service.Balance(ctx, args[1])
		if err != nil {
			return err
		}
		renderBalance(out, args[1], balance)
		return nil

	case "history":
		if len(args) != 2 && len(args) != 4 {
			return fmt.Errorf("history takes an account id and an optional start and end date")
		}
		var start, end string
		if len(args) == 4 {
			start, end = args[2], args[3]
		}
		dateRange, err := domain.ParseDateRange(start, end)
		if err != nil {
			return err
		}
		entries, err := service.History(ctx, args[1], dateRange)
		if err != nil {
			return err
		}
		renderHistory(out, entries)
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
