package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type operationRecord struct {
	operation string
	outcome   string
}

type recordingCollector struct {
	records []operationRecord
}

func (c *recordingCollector) RecordOperation(operation string, outcome string, duration time.Duration) {
	c.records = append(c.records, operationRecord{operation: operation, outcome: outcome})
}

func (c *recordingCollector) RecordCircuitState(string, metrics.CircuitState) {}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func newTestService(t *testing.T, opts ...Option) (*LedgerService, *memory.LedgerStore) {
	t.Helper()
	store := memory.NewLedgerStore()
	return NewLedgerService(store, nil, opts...), store
}

func openAccount(t *testing.T, s *LedgerService, holder string, initial string) string {
	t.Helper()
	account, err := s.Open(context.Background(), holder, "savings", dec(initial))
	require.NoError(t, err)
	return account.ID
}

func requireBalance(t *testing.T, s *LedgerService, accountID string, expected string) {
	t.Helper()
	balance, err := s.Balance(context.Background(), accountID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(expected)), "balance of %s: want %s, got %s", accountID, expected, balance)
}

func TestLedgerScenario(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	// open with an initial deposit
	alice, err := s.Open(ctx, "Alice", "savings", dec("100"))
	require.NoError(t, err)
	assert.Regexp(t, `^acc[0-9a-f]{12}$`, alice.ID)
	assert.Equal(t, domain.AccountStatusActive, alice.Status)
	requireBalance(t, s, alice.ID, "100")

	history, err := s.History(ctx, alice.ID, domain.DateRange{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.EntryCredit, history[0].Type)
	assert.True(t, history[0].Amount.Equal(dec("100")))
	assert.True(t, history[0].BalanceAfter.Equal(dec("100")))
	assert.Equal(t, "Initial deposit", history[0].Description)

	// deposit
	require.NoError(t, s.Deposit(ctx, alice.ID, dec("50"), "bonus"))
	requireBalance(t, s, alice.ID, "150")

	// overdraw fails without effect
	require.ErrorIs(t, s.Withdraw(ctx, alice.ID, dec("1000"), "oops"), domain.ErrInsufficientFunds)
	requireBalance(t, s, alice.ID, "150")

	// transfer the full balance
	bob, err := s.Open(ctx, "Bob", "checking", decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, s.Transfer(ctx, alice.ID, bob.ID, dec("150")))
	requireBalance(t, s, alice.ID, "0")
	requireBalance(t, s, bob.ID, "150")

	// close then deposit
	require.NoError(t, s.Close(ctx, alice.ID))
	require.ErrorIs(t, s.Deposit(ctx, alice.ID, dec("1"), "x"), domain.ErrInactiveAccount)

	// transfer from a closed account
	require.ErrorIs(t, s.Transfer(ctx, alice.ID, bob.ID, dec("10")), domain.ErrInactiveAccount)
	requireBalance(t, s, bob.ID, "150")
}

func TestOpenValidation(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		holder  string
		kind    string
		deposit string
	}{
		{name: "blank holder", holder: "  ", kind: "savings", deposit: "0"},
		{name: "blank type", holder: "Alice", kind: "", deposit: "0"},
		{name: "negative deposit", holder: "Alice", kind: "savings", deposit: "-1"},
		{name: "too many decimals", holder: "Alice", kind: "savings", deposit: "1.001"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Open(ctx, tc.holder, tc.kind, dec(tc.deposit))
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestOpenWithZeroDepositHasNoHistory(t *testing.T) {
	s, _ := newTestService(t)
	id := openAccount(t, s, "Carol", "0")

	history, err := s.History(context.Background(), id, domain.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.NotNil(t, history)
}

func TestOpenRetriesIDCollision(t *testing.T) {
	ids := []string{"acc000000000001", "acc000000000001", "acc000000000002"}
	var next int
	s, _ := newTestService(t, WithIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))

	first := openAccount(t, s, "Alice", "0")
	second := openAccount(t, s, "Bob", "0")

	assert.Equal(t, "acc000000000001", first)
	assert.Equal(t, "acc000000000002", second)
}

func TestOpenGivesUpAfterRepeatedCollisions(t *testing.T) {
	s, _ := newTestService(t, WithIDGenerator(func() string { return "acc000000000001" }))
	openAccount(t, s, "Alice", "0")

	_, err := s.Open(context.Background(), "Bob", "savings", decimal.Zero)
	require.ErrorIs(t, err, domain.ErrDuplicateAccountID)
}

func TestBalanceOfUnknownAccountIsNotFound(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.Balance(context.Background(), "acc-missing")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAmountValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	a := openAccount(t, s, "Alice", "10")
	b := openAccount(t, s, "Bob", "10")

	for _, amount := range []string{"0", "-5", "0.001"} {
		require.ErrorIs(t, s.Deposit(ctx, a, dec(amount), ""), domain.ErrInvalidAmount, amount)
		require.ErrorIs(t, s.Withdraw(ctx, a, dec(amount), ""), domain.ErrInvalidAmount, amount)
		require.ErrorIs(t, s.Transfer(ctx, a, b, dec(amount)), domain.ErrInvalidAmount, amount)
	}

	requireBalance(t, s, a, "10")
	requireBalance(t, s, b, "10")
}

func TestDefaultDescriptions(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	id := openAccount(t, s, "Alice", "0")

	require.NoError(t, s.Deposit(ctx, id, dec("5"), ""))
	require.NoError(t, s.Withdraw(ctx, id, dec("2"), ""))

	history, err := s.History(ctx, id, domain.DateRange{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Withdrawal", history[0].Description)
	assert.Equal(t, "Deposit", history[1].Description)
}

func TestMutationsOnUnknownAccount(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	a := openAccount(t, s, "Alice", "10")

	require.ErrorIs(t, s.Deposit(ctx, "acc-missing", dec("1"), ""), domain.ErrAccountNotFound)
	require.ErrorIs(t, s.Withdraw(ctx, "acc-missing", dec("1"), ""), domain.ErrAccountNotFound)
	require.ErrorIs(t, s.Close(ctx, "acc-missing"), domain.ErrAccountNotFound)
	require.ErrorIs(t, s.Transfer(ctx, a, "acc-missing", dec("1")), domain.ErrAccountNotFound)
	require.ErrorIs(t, s.Transfer(ctx, "acc-missing", a, dec("1")), domain.ErrAccountNotFound)

	requireBalance(t, s, a, "10")
}

func TestTransferToSameAccount(t *testing.T) {
	s, _ := newTestService(t)
	a := openAccount(t, s, "Alice", "10")

	require.ErrorIs(t, s.Transfer(context.Background(), a, a, dec("1")), domain.ErrSameAccount)
	requireBalance(t, s, a, "10")
}

func TestTransferRecordsBothLegs(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	a := openAccount(t, s, "Alice", "100")
	b := openAccount(t, s, "Bob", "5")

	require.NoError(t, s.Transfer(ctx, a, b, dec("40.25")))

	requireBalance(t, s, a, "59.75")
	requireBalance(t, s, b, "45.25")

	fromHistory, err := s.History(ctx, a, domain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryDebit, fromHistory[0].Type)
	assert.Equal(t, "Transfer to "+b, fromHistory[0].Description)
	assert.True(t, fromHistory[0].BalanceAfter.Equal(dec("59.75")))

	toHistory, err := s.History(ctx, b, domain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryCredit, toHistory[0].Type)
	assert.Equal(t, "Transfer from "+a, toHistory[0].Description)
	assert.True(t, toHistory[0].BalanceAfter.Equal(dec("45.25")))
}

func TestFailedTransferLeavesNoTrace(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		prepare func(t *testing.T, s *LedgerService, from string, to string)
		amount  string
		wantErr error
	}{
		{
			name:    "insufficient funds",
			amount:  "500",
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name: "closed destination",
			prepare: func(t *testing.T, s *LedgerService, from string, to string) {
				require.NoError(t, s.Withdraw(ctx, to, dec("20"), ""))
				require.NoError(t, s.Close(ctx, to))
			},
			amount:  "10",
			wantErr: domain.ErrInactiveAccount,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestService(t)
			from := openAccount(t, s, "Alice", "100")
			to := openAccount(t, s, "Bob", "20")
			if tc.prepare != nil {
				tc.prepare(t, s, from, to)
			}

			fromBefore, _ := s.History(ctx, from, domain.DateRange{})
			toBefore, _ := s.History(ctx, to, domain.DateRange{})
			fromBalance, _ := s.Balance(ctx, from)
			toBalance, _ := s.Balance(ctx, to)

			require.ErrorIs(t, s.Transfer(ctx, from, to, dec(tc.amount)), tc.wantErr)

			requireBalance(t, s, from, fromBalance.String())
			requireBalance(t, s, to, toBalance.String())
			fromAfter, _ := s.History(ctx, from, domain.DateRange{})
			toAfter, _ := s.History(ctx, to, domain.DateRange{})
			assert.Equal(t, fromBefore, fromAfter)
			assert.Equal(t, toBefore, toAfter)
		})
	}
}

// failingStore breaks the second ledger append of every unit of work.
type failingStore struct {
	repo_interfaces.LedgerStore
}

type failingTx struct {
	repo_interfaces.LedgerTx
	appends int
}

func (tx *failingTx) AppendTransaction(entry domain.Transaction) (domain.Transaction, error) {
	tx.appends++
	if tx.appends == 2 {
		return domain.Transaction{}, errors.New("disk full")
	}
	return tx.LedgerTx.AppendTransaction(entry)
}

func (s failingStore) WithAccountsLocked(ctx context.Context, ids []string, fn func(tx repo_interfaces.LedgerTx) error) error {
	return s.LedgerStore.WithAccountsLocked(ctx, ids, func(tx repo_interfaces.LedgerTx) error {
		return fn(&failingTx{LedgerTx: tx})
	})
}

func TestTransferPersistenceFaultRollsBackBothLegs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewLedgerStore()
	healthy := NewLedgerService(store, nil)
	from := openAccount(t, healthy, "Alice", "100")
	to := openAccount(t, healthy, "Bob", "0")

	collector := &recordingCollector{}
	faulty := NewLedgerService(failingStore{LedgerStore: store}, collector)

	err := faulty.Transfer(ctx, from, to, dec("30"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, domain.IsBusinessError(err))
	assert.Equal(t, []operationRecord{{operation: "transfer", outcome: "internal"}}, collector.records)

	requireBalance(t, healthy, from, "100")
	requireBalance(t, healthy, to, "0")
	history, err := healthy.History(ctx, from, domain.DateRange{})
	require.NoError(t, err)
	assert.Len(t, history, 1)
	history, err = healthy.History(ctx, to, domain.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCloseRules(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	id := openAccount(t, s, "Alice", "10")

	require.ErrorIs(t, s.Close(ctx, id), domain.ErrNonZeroBalance)
	summaries, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusActive, summaries[id].Status)

	require.NoError(t, s.Withdraw(ctx, id, dec("10"), ""))
	require.NoError(t, s.Close(ctx, id))
	require.NoError(t, s.Close(ctx, id))

	summaries, err = s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusClosed, summaries[id].Status)
	require.ErrorIs(t, s.Withdraw(ctx, id, dec("1"), ""), domain.ErrInactiveAccount)
}

func TestListAccountsIncludesEveryStatus(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	a := openAccount(t, s, "Alice", "12.50")
	b := openAccount(t, s, "Bob", "0")
	require.NoError(t, s.Close(ctx, b))

	summaries, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Alice", summaries[a].HolderName)
	assert.Equal(t, "savings", summaries[a].AccountType)
	assert.True(t, summaries[a].Balance.Equal(dec("12.5")))
	assert.Equal(t, domain.AccountStatusClosed, summaries[b].Status)
}

func TestUpdateDetails(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	id := openAccount(t, s, "Alice", "0")

	holder := "Alice Smith"
	blank := "   "
	require.NoError(t, s.UpdateDetails(ctx, id, &holder, &blank))

	summaries, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", summaries[id].HolderName)
	assert.Equal(t, "savings", summaries[id].AccountType)

	// nothing to change is accepted without a lookup
	require.NoError(t, s.UpdateDetails(ctx, "acc-missing", nil, nil))
	require.ErrorIs(t, s.UpdateDetails(ctx, "acc-missing", &holder, nil), domain.ErrAccountNotFound)

	require.NoError(t, s.Close(ctx, id))
	kind := "checking"
	require.ErrorIs(t, s.UpdateDetails(ctx, id, nil, &kind), domain.ErrInactiveAccount)
}

func TestHistoryFiltersByDate(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC)
	s, _ := newTestService(t, WithClock(func() time.Time { return clock }))

	id := openAccount(t, s, "Alice", "10")
	clock = time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Deposit(ctx, id, dec("1"), "second"))
	clock = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Deposit(ctx, id, dec("1"), "third"))

	dateRange, err := domain.ParseDateRange("2024-03-01", "2024-03-02")
	require.NoError(t, err)
	history, err := s.History(ctx, id, dateRange)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Description)
	assert.Equal(t, "Initial deposit", history[1].Description)

	dateRange, err = domain.ParseDateRange("2025-01-01", "2025-01-31")
	require.NoError(t, err)
	history, err = s.History(ctx, id, dateRange)
	require.NoError(t, err)
	assert.Empty(t, history)

	start := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	history, err = s.History(ctx, id, domain.DateRange{Start: &start, End: &end})
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	history, err = s.History(ctx, "acc-missing", domain.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLedgerAccuracyAndOrdering(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	id := openAccount(t, s, "Alice", "0")

	amounts := []string{"0.10", "0.20", "0.30", "10.05", "3.33"}
	for _, amount := range amounts {
		require.NoError(t, s.Deposit(ctx, id, dec(amount), ""))
		require.NoError(t, s.Withdraw(ctx, id, dec("0.01"), ""))
	}

	balance, err := s.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("13.93")), balance.String())

	again, err := s.Balance(ctx, id)
	require.NoError(t, err)
	assert.True(t, balance.Equal(again))

	history, err := s.History(ctx, id, domain.DateRange{})
	require.NoError(t, err)
	require.Len(t, history, 2*len(amounts))
	assert.True(t, history[0].BalanceAfter.Equal(balance))
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Timestamp.After(history[i-1].Timestamp))
		assert.Less(t, history[i].ID, history[i-1].ID)
	}
}

func TestConcurrentTransfersConserveMoney(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	ids := make([]string, 4)
	for i := range ids {
		ids[i] = openAccount(t, s, fmt.Sprintf("holder-%d", i), "100")
	}

	var succeeded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for worker := 0; worker < 8; worker++ {
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				from := ids[(worker+i)%len(ids)]
				to := ids[(worker+i+1+worker%2)%len(ids)]
				if from == to {
					continue
				}
				err := s.Transfer(gctx, from, to, dec("7.5"))
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.Is(err, domain.ErrInsufficientFunds):
				default:
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Positive(t, succeeded.Load())

	total := decimal.Zero
	for _, id := range ids {
		balance, err := s.Balance(ctx, id)
		require.NoError(t, err)
		assert.False(t, balance.IsNegative())
		total = total.Add(balance)

		history, err := s.History(ctx, id, domain.DateRange{})
		require.NoError(t, err)
		assert.True(t, history[0].BalanceAfter.Equal(balance))
	}
	assert.True(t, total.Equal(dec("400")), total.String())
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	id := openAccount(t, s, "Alice", "100")

	var succeeded atomic.Int64
	g := new(errgroup.Group)
	for i := 0; i < 40; i++ {
		g.Go(func() error {
			err := s.Withdraw(ctx, id, dec("3"), "")
			if err == nil {
				succeeded.Add(1)
				return nil
			}
			if errors.Is(err, domain.ErrInsufficientFunds) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(33), succeeded.Load())
	requireBalance(t, s, id, "1")
}

func TestOperationsAreRecorded(t *testing.T) {
	collector := &recordingCollector{}
	s := NewLedgerService(memory.NewLedgerStore(), collector)
	ctx := context.Background()

	account, err := s.Open(ctx, "Alice", "savings", decimal.Zero)
	require.NoError(t, err)
	_ = s.Withdraw(ctx, account.ID, dec("1"), "")
	_, _ = s.Balance(ctx, "acc-missing")

	assert.Equal(t, []operationRecord{
		{operation: "open", outcome: "success"},
		{operation: "withdraw", outcome: "insufficient_funds"},
		{operation: "balance", outcome: "not_found"},
	}, collector.records)
}

func TestConcurrentDepositsLoseNoUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	id := openAccount(t, s, "Alice", "0")

	g := new(errgroup.Group)
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			return s.Deposit(ctx, id, dec("0.10"), "")
		})
	}
	require.NoError(t, g.Wait())

	requireBalance(t, s, id, "5")
	history, err := s.History(ctx, id, domain.DateRange{})
	require.NoError(t, err)
	assert.Len(t, history, 50)
}

func TestOversizedAmountsAreRejectedBeforeLocking(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	a := openAccount(t, s, "Alice", "10")
	b := openAccount(t, s, "Bob", "0")

	huge := dec("1e5000000")
	start := time.Now()
	require.ErrorIs(t, s.Deposit(ctx, a, huge, "x"), domain.ErrInvalidAmount)
	require.ErrorIs(t, s.Withdraw(ctx, a, huge, "x"), domain.ErrInvalidAmount)
	require.ErrorIs(t, s.Transfer(ctx, a, b, huge), domain.ErrInvalidAmount)
	_, err := s.Open(ctx, "Carol", "savings", huge)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Less(t, time.Since(start), time.Second)

	require.ErrorIs(t, s.Deposit(ctx, a, dec("1000000000000000000"), ""), domain.ErrInvalidAmount)
	requireBalance(t, s, a, "10")
}

func TestCreditBeyondBalanceLimitLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	full := openAccount(t, s, "Alice", "999999999999999999.00")
	source := openAccount(t, s, "Bob", "5")

	require.ErrorIs(t, s.Deposit(ctx, full, dec("1"), ""), domain.ErrBalanceLimit)
	require.NoError(t, s.Deposit(ctx, full, dec("0.99"), ""))
	requireBalance(t, s, full, "999999999999999999.99")

	require.ErrorIs(t, s.Transfer(ctx, source, full, dec("0.01")), domain.ErrBalanceLimit)
	requireBalance(t, s, source, "5")
	requireBalance(t, s, full, "999999999999999999.99")

	history, err := s.History(ctx, source, domain.DateRange{})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
