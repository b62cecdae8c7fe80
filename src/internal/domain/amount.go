package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MoneyScale is the number of fractional digits a stored amount may carry.
	MoneyScale = 2
	// MaxIntegerDigits bounds amounts and balances to what NUMERIC(20, 2) holds.
	MaxIntegerDigits = 18
)

// ValidateAmount checks precision before any comparison so an exponent-heavy
// input such as 1e5000000 is rejected without being expanded.
func ValidateAmount(amount decimal.Decimal) error {
	if !fitsPrecision(amount) || amount.Sign() <= 0 || !fitsScale(amount) {
		return ErrInvalidAmount
	}
	return nil
}

func ValidateInitialDeposit(amount decimal.Decimal) error {
	if !fitsPrecision(amount) {
		return NewValidationError("initialDeposit must have at most 18 integer digits")
	}
	if amount.Sign() < 0 {
		return NewValidationError("initialDeposit cannot be negative")
	}
	if !fitsScale(amount) {
		return NewValidationError("initialDeposit must have at most two decimal places")
	}
	return nil
}

// FitsBalance reports whether balance can be stored.
func FitsBalance(balance decimal.Decimal) bool {
	return fitsPrecision(balance)
}

func ValidateAccountDetails(holderName string, accountType string) error {
	var errs []string
	if strings.TrimSpace(holderName) == "" {
		errs = append(errs, "holderName is required")
	}
	if strings.TrimSpace(accountType) == "" {
		errs = append(errs, "accountType is required")
	}
	if len(errs) > 0 {
		return NewValidationError(strings.Join(errs, "; "))
	}
	return nil
}

// fitsPrecision only inspects the exponent and coefficient length.
func fitsPrecision(amount decimal.Decimal) bool {
	exp := int(amount.Exponent())
	if exp < -(MaxIntegerDigits + MoneyScale) {
		return false
	}
	if amount.Sign() == 0 {
		return true
	}
	return amount.NumDigits()+exp <= MaxIntegerDigits
}

func fitsScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(MoneyScale))
}
