package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/metrics"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	err   error
	delay time.Duration
	calls int
}

func (s *stubStore) wait(ctx context.Context) error {
	s.calls++
	if s.delay == 0 {
		return s.err
	}
	select {
	case <-time.After(s.delay):
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stubStore) CreateAccount(ctx context.Context, account domain.Account, initial *domain.Transaction) (domain.Account, error) {
	return account, s.wait(ctx)
}

func (s *stubStore) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	if err := s.wait(ctx); err != nil {
		return domain.Account{}, err
	}
	return domain.Account{ID: accountID, Status: domain.AccountStatusActive}, nil
}

func (s *stubStore) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return nil, s.wait(ctx)
}

func (s *stubStore) ListTransactions(ctx context.Context, accountID string, dateRange domain.DateRange) ([]domain.Transaction, error) {
	return nil, s.wait(ctx)
}

func (s *stubStore) WithAccountsLocked(ctx context.Context, accountIDs []string, fn func(tx repo_interfaces.LedgerTx) error) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return fn(nil)
}

type recordingCollector struct {
	metrics.NoOpCollector
	mu     sync.Mutex
	states []metrics.CircuitState
}

func (c *recordingCollector) RecordCircuitState(name string, state metrics.CircuitState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = append(c.states, state)
}

func TestStorePassesThroughResults(t *testing.T) {
	store := NewStore(&stubStore{}, Config{Timeout: time.Second, MaxFailures: 2, OpenTimeout: time.Minute}, nil)

	account, err := store.GetAccount(context.Background(), "acc1")
	require.NoError(t, err)
	assert.Equal(t, "acc1", account.ID)

	accounts, err := store.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestStoreBusinessErrorsDoNotTripBreaker(t *testing.T) {
	stub := &stubStore{err: domain.ErrAccountNotFound}
	store := NewStore(stub, Config{MaxFailures: 2, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 5; i++ {
		_, err := store.GetAccount(context.Background(), "missing")
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
	}

	err := store.WithAccountsLocked(context.Background(), []string{"a"}, func(tx repo_interfaces.LedgerTx) error {
		return domain.ErrInsufficientFunds
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, gobreaker.StateClosed, store.State())
	assert.Equal(t, 6, stub.calls)
}

func TestStoreOpensAfterConsecutiveFaults(t *testing.T) {
	stub := &stubStore{err: errors.New("connection refused")}
	collector := &recordingCollector{}
	store := NewStore(stub, Config{MaxFailures: 2, OpenTimeout: time.Minute}, collector)

	for i := 0; i < 2; i++ {
		_, err := store.GetAccount(context.Background(), "acc1")
		require.EqualError(t, err, "connection refused")
	}
	assert.Equal(t, gobreaker.StateOpen, store.State())

	_, err := store.GetAccount(context.Background(), "acc1")
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, stub.calls)
	assert.Equal(t, []metrics.CircuitState{metrics.CircuitOpen}, collector.states)
}

func TestStoreAppliesTimeout(t *testing.T) {
	stub := &stubStore{delay: time.Second}
	store := NewStore(stub, Config{Timeout: 20 * time.Millisecond, MaxFailures: 5}, nil)

	_, err := store.ListTransactions(context.Background(), "acc1", domain.DateRange{})
	require.ErrorIs(t, err, ErrStoreTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStoreCallerCancellationIsNotAFault(t *testing.T) {
	stub := &stubStore{delay: time.Second}
	store := NewStore(stub, Config{MaxFailures: 1, OpenTimeout: time.Minute}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ListAccounts(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, store.State())
}
