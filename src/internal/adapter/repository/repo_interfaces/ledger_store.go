package repo_interfaces

import (
	"context"

	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerStore owns account records and the append-only transaction ledger.
type LedgerStore interface {
	// CreateAccount inserts account and, when initial is non-nil, its first
	// ledger entry in the same atomic unit. ErrDuplicateAccountID signals an
	// id collision.
	CreateAccount(ctx context.Context, account domain.Account, initial *domain.Transaction) (domain.Account, error)
	GetAccount(ctx context.Context, accountID string) (domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	ListTransactions(ctx context.Context, accountID string, dateRange domain.DateRange) ([]domain.Transaction, error)

	// WithAccountsLocked runs fn holding exclusive access to every account in
	// accountIDs, acquired in ascending id order. Writes made through the
	// LedgerTx become visible together when fn returns nil and are discarded
	// otherwise.
	WithAccountsLocked(ctx context.Context, accountIDs []string, fn func(tx LedgerTx) error) error
}

// LedgerTx is the write side of a locked unit of work. Only accounts named
// in the enclosing WithAccountsLocked call may be read or written.
type LedgerTx interface {
	Account(accountID string) (domain.Account, error)
	SetBalance(accountID string, balance decimal.Decimal) error
	SetStatus(accountID string, status domain.AccountStatus) error
	UpdateDetails(accountID string, holderName *string, accountType *string) error
	AppendTransaction(entry domain.Transaction) (domain.Transaction, error)
}
