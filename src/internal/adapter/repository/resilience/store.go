package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/logger"
	"github.com/api-sage/account-ledger/src/internal/metrics"
	"github.com/sony/gobreaker"
)

var (
	ErrCircuitOpen  = errors.New("ledger store unavailable: circuit open")
	ErrStoreTimeout = errors.New("ledger store timeout")
)

type Config struct {
	Name        string
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Store guards a LedgerStore with a per-call deadline and a circuit breaker.
// Ledger outcomes such as NotFound or InsufficientFunds never count as
// failures; only persistence faults do.
type Store struct {
	next    repo_interfaces.LedgerStore
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
}

func NewStore(next repo_interfaces.LedgerStore, cfg Config, collector metrics.Collector) *Store {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if cfg.Name == "" {
		cfg.Name = "ledger-store"
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	s := &Store{
		next:    next,
		timeout: cfg.Timeout,
		metrics: collector,
	}

	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("ledger store circuit state changed", logger.Fields{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
			s.metrics.RecordCircuitState(name, circuitState(to))
		},
	})

	logger.Info("ledger store resilience enabled", logger.Fields{
		"name":        cfg.Name,
		"timeout":     cfg.Timeout.String(),
		"maxFailures": maxFailures,
		"openTimeout": cfg.OpenTimeout.String(),
	})

	return s
}

func (s *Store) State() gobreaker.State {
	return s.cb.State()
}

func (s *Store) CreateAccount(ctx context.Context, account domain.Account, initial *domain.Transaction) (domain.Account, error) {
	return execute(s, ctx, "create_account", func(ctx context.Context) (domain.Account, error) {
		return s.next.CreateAccount(ctx, account, initial)
	})
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	return execute(s, ctx, "get_account", func(ctx context.Context) (domain.Account, error) {
		return s.next.GetAccount(ctx, accountID)
	})
}

func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return execute(s, ctx, "list_accounts", func(ctx context.Context) ([]domain.Account, error) {
		return s.next.ListAccounts(ctx)
	})
}

func (s *Store) ListTransactions(ctx context.Context, accountID string, dateRange domain.DateRange) ([]domain.Transaction, error) {
	return execute(s, ctx, "list_transactions", func(ctx context.Context) ([]domain.Transaction, error) {
		return s.next.ListTransactions(ctx, accountID, dateRange)
	})
}

func (s *Store) WithAccountsLocked(ctx context.Context, accountIDs []string, fn func(tx repo_interfaces.LedgerTx) error) error {
	_, err := execute(s, ctx, "with_accounts_locked", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.next.WithAccountsLocked(ctx, accountIDs, fn)
	})
	return err
}

func execute[T any](s *Store, ctx context.Context, operation string, call func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.cb.Execute(func() (interface{}, error) {
		return call(ctx)
	})
	if err == nil {
		return result.(T), nil
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		logger.Warn("ledger store request rejected", logger.Fields{
			"operation": operation,
			"state":     s.cb.State().String(),
		})
		return zero, ErrCircuitOpen
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		logger.Warn("ledger store timeout", logger.Fields{
			"operation": operation,
			"timeout":   s.timeout.String(),
			"elapsed":   time.Since(start).String(),
		})
		return zero, errors.Join(ErrStoreTimeout, err)
	}

	return zero, err
}

func isSuccessful(err error) bool {
	if err == nil || domain.IsBusinessError(err) {
		return true
	}
	return errors.Is(err, domain.ErrDuplicateAccountID) || errors.Is(err, context.Canceled)
}

func circuitState(state gobreaker.State) metrics.CircuitState {
	switch state {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}
