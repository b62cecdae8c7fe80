package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInactiveAccount    = errors.New("account is not active")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidAmount      = errors.New("amount must be greater than zero with at most two decimal places")
	ErrNonZeroBalance     = errors.New("account balance must be zero to close")
	ErrSameAccount        = errors.New("source and destination accounts must differ")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateAccountID = errors.New("account id already exists")
	ErrBalanceLimit       = errors.New("resulting balance exceeds 18 integer digits")
)

func NewValidationError(detail string) error {
	return fmt.Errorf("%w: %s", ErrValidation, detail)
}

var businessErrors = []struct {
	err  error
	kind string
}{
	{ErrAccountNotFound, "not_found"},
	{ErrInactiveAccount, "inactive_account"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrBalanceLimit, "balance_limit"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrNonZeroBalance, "non_zero_balance"},
	{ErrSameAccount, "same_account"},
	{ErrValidation, "validation"},
}

// IsBusinessError reports whether err is an expected ledger outcome rather
// than a persistence fault.
func IsBusinessError(err error) bool {
	for _, b := range businessErrors {
		if errors.Is(err, b.err) {
			return true
		}
	}
	return false
}

// ErrorKind returns a stable label for err, used by logs and metrics.
func ErrorKind(err error) string {
	if err == nil {
		return "success"
	}
	for _, b := range businessErrors {
		if errors.Is(err, b.err) {
			return b.kind
		}
	}
	return "internal"
}
