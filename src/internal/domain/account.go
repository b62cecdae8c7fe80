package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusClosed AccountStatus = "closed"
)

func (s AccountStatus) Valid() bool {
	return s == AccountStatusActive || s == AccountStatusClosed
}

type Account struct {
	ID          string
	HolderName  string
	AccountType string
	Balance     decimal.Decimal
	Status      AccountStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

func (a Account) Summary() AccountSummary {
	return AccountSummary{
		HolderName:  a.HolderName,
		AccountType: a.AccountType,
		Balance:     a.Balance,
		Status:      a.Status,
	}
}

// AccountSummary is the per-account value of the account listing.
type AccountSummary struct {
	HolderName  string
	AccountType string
	Balance     decimal.Decimal
	Status      AccountStatus
}
