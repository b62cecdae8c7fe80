package service_interfaces

import (
	"context"

	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type LedgerService interface {
	Open(ctx context.Context, holderName string, accountType string, initialDeposit decimal.Decimal) (domain.Account, error)
	Close(ctx context.Context, accountID string) error
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)
	ListAccounts(ctx context.Context) (map[string]domain.AccountSummary, error)
	UpdateDetails(ctx context.Context, accountID string, holderName *string, accountType *string) error
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) error
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) error
	Transfer(ctx context.Context, fromAccountID string, toAccountID string, amount decimal.Decimal) error
	History(ctx context.Context, accountID string, dateRange domain.DateRange) ([]domain.Transaction, error)
}
