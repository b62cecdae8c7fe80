package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerStore keeps accounts and their ledger in process memory.
//
// mu guards the maps and every committed account value. Each account also
// owns a writer lock that serializes units of work touching it; writers take
// those locks in ascending id order and only take mu briefly to read and to
// publish their staged changes.
type LedgerStore struct {
	mu       sync.RWMutex
	accounts map[string]*accountEntry
	entries  map[string][]domain.Transaction
	nextTxID int64
	now      func() time.Time
}

type accountEntry struct {
	writer  sync.Mutex
	account domain.Account
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		accounts: make(map[string]*accountEntry),
		entries:  make(map[string][]domain.Transaction),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *LedgerStore) CreateAccount(ctx context.Context, account domain.Account, initial *domain.Transaction) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.ID]; exists {
		return domain.Account{}, domain.ErrDuplicateAccountID
	}

	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = account.CreatedAt
	}
	s.accounts[account.ID] = &accountEntry{account: account}

	if initial != nil {
		entry := *initial
		entry.AccountID = account.ID
		s.appendLocked(entry)
	}

	return account, nil
}

func (s *LedgerStore) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.accounts[accountID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return entry.account, nil
}

func (s *LedgerStore) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, 0, len(s.accounts))
	for _, entry := range s.accounts {
		out = append(out, entry.account)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *LedgerStore) ListTransactions(ctx context.Context, accountID string, dateRange domain.DateRange) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	history := s.entries[accountID]
	out := make([]domain.Transaction, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		if dateRange.Contains(history[i].Timestamp) {
			out = append(out, history[i])
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *LedgerStore) WithAccountsLocked(ctx context.Context, accountIDs []string, fn func(tx repo_interfaces.LedgerTx) error) error {
	ids := sortedUnique(accountIDs)

	s.mu.RLock()
	locked := make([]*accountEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := s.accounts[id]; ok {
			locked = append(locked, entry)
		}
	}
	s.mu.RUnlock()

	for i, entry := range locked {
		if err := ctx.Err(); err != nil {
			for j := i - 1; j >= 0; j-- {
				locked[j].writer.Unlock()
			}
			return err
		}
		entry.writer.Lock()
	}
	defer func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].writer.Unlock()
		}
	}()

	tx := &memoryTx{
		allowed: make(map[string]struct{}, len(ids)),
		staged:  make(map[string]domain.Account, len(locked)),
	}
	for _, id := range ids {
		tx.allowed[id] = struct{}{}
	}

	s.mu.RLock()
	for _, entry := range locked {
		tx.staged[entry.account.ID] = entry.account
	}
	s.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id := range tx.dirty {
		account := tx.staged[id]
		account.UpdatedAt = now
		s.accounts[id].account = account
	}
	for _, pending := range tx.pending {
		s.appendLocked(pending)
	}
	return nil
}

func (s *LedgerStore) appendLocked(entry domain.Transaction) domain.Transaction {
	s.nextTxID++
	entry.ID = s.nextTxID
	s.entries[entry.AccountID] = append(s.entries[entry.AccountID], entry)
	return entry
}

type memoryTx struct {
	allowed map[string]struct{}
	staged  map[string]domain.Account
	dirty   map[string]struct{}
	pending []domain.Transaction
}

func (t *memoryTx) Account(accountID string) (domain.Account, error) {
	if _, ok := t.allowed[accountID]; !ok {
		return domain.Account{}, fmt.Errorf("account %s is not locked in this unit of work", accountID)
	}
	account, ok := t.staged[accountID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

func (t *memoryTx) SetBalance(accountID string, balance decimal.Decimal) error {
	return t.mutate(accountID, func(a *domain.Account) {
		a.Balance = balance
	})
}

func (t *memoryTx) SetStatus(accountID string, status domain.AccountStatus) error {
	return t.mutate(accountID, func(a *domain.Account) {
		a.Status = status
	})
}

func (t *memoryTx) UpdateDetails(accountID string, holderName *string, accountType *string) error {
	return t.mutate(accountID, func(a *domain.Account) {
		if holderName != nil {
			a.HolderName = *holderName
		}
		if accountType != nil {
			a.AccountType = *accountType
		}
	})
}

func (t *memoryTx) AppendTransaction(entry domain.Transaction) (domain.Transaction, error) {
	if _, err := t.Account(entry.AccountID); err != nil {
		return domain.Transaction{}, err
	}
	t.pending = append(t.pending, entry)
	return entry, nil
}

func (t *memoryTx) mutate(accountID string, apply func(a *domain.Account)) error {
	account, err := t.Account(accountID)
	if err != nil {
		return err
	}
	apply(&account)
	t.staged[accountID] = account
	if t.dirty == nil {
		t.dirty = make(map[string]struct{})
	}
	t.dirty[accountID] = struct{}{}
	return nil
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
