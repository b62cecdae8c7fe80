package models

import (
	"errors"
	"strings"

	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

// AmountRequest is the body of deposit and withdraw calls.
type AmountRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

func (r AmountRequest) Validate() error {
	return validateAmount(r.Amount)
}

func (r AmountRequest) Value() decimal.Decimal {
	parsed, _ := decimal.NewFromString(strings.TrimSpace(r.Amount))
	return parsed
}

type AmountResponse struct {
	AccountID   string `json:"accountId"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

type TransferRequest struct {
	FromAccountID string `json:"fromAccountId"`
	ToAccountID   string `json:"toAccountId"`
	Amount        string `json:"amount"`
}

func (r TransferRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.FromAccountID) == "" {
		errs = append(errs, "fromAccountId is required")
	}
	if strings.TrimSpace(r.ToAccountID) == "" {
		errs = append(errs, "toAccountId is required")
	}
	if err := validateAmount(r.Amount); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (r TransferRequest) Value() decimal.Decimal {
	parsed, _ := decimal.NewFromString(strings.TrimSpace(r.Amount))
	return parsed
}

type TransferResponse struct {
	FromAccountID string `json:"fromAccountId"`
	ToAccountID   string `json:"toAccountId"`
	Amount        string `json:"amount"`
}

type TransactionResponse struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	Amount       string `json:"amount"`
	Description  string `json:"description"`
	BalanceAfter string `json:"balanceAfter"`
	Timestamp    string `json:"timestamp"`
}

type HistoryResponse struct {
	AccountID    string                `json:"accountId"`
	Transactions []TransactionResponse `json:"transactions"`
}

func NewHistoryResponse(accountID string, entries []domain.Transaction) HistoryResponse {
	out := HistoryResponse{
		AccountID:    accountID,
		Transactions: make([]TransactionResponse, 0, len(entries)),
	}
	for _, entry := range entries {
		out.Transactions = append(out.Transactions, TransactionResponse{
			ID:           entry.ID,
			Type:         string(entry.Type),
			Amount:       FormatMoney(entry.Amount),
			Description:  entry.Description,
			BalanceAfter: FormatMoney(entry.BalanceAfter),
			Timestamp:    entry.Timestamp.UTC().Format(domain.TimestampLayout),
		})
	}
	return out
}

func validateAmount(raw string) error {
	amount := strings.TrimSpace(raw)
	if amount == "" {
		return errors.New("amount is required")
	}
	if _, err := decimal.NewFromString(amount); err != nil {
		return errors.New("amount must be numeric")
	}
	return nil
}
