package models

import (
	"errors"
	"strings"

	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

type OpenAccountRequest struct {
	HolderName     string `json:"holderName"`
	AccountType    string `json:"accountType"`
	InitialDeposit string `json:"initialDeposit,omitempty"`
}

func (r OpenAccountRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.HolderName) == "" {
		errs = append(errs, "holderName is required")
	}
	if strings.TrimSpace(r.AccountType) == "" {
		errs = append(errs, "accountType is required")
	}
	if deposit := strings.TrimSpace(r.InitialDeposit); deposit != "" {
		parsed, err := decimal.NewFromString(deposit)
		if err != nil {
			errs = append(errs, "initialDeposit must be numeric")
		} else if parsed.IsNegative() {
			errs = append(errs, "initialDeposit cannot be negative")
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Deposit returns the initial deposit, zero when omitted. Call Validate first.
func (r OpenAccountRequest) Deposit() decimal.Decimal {
	deposit := strings.TrimSpace(r.InitialDeposit)
	if deposit == "" {
		return decimal.Zero
	}
	parsed, _ := decimal.NewFromString(deposit)
	return parsed
}

type UpdateAccountRequest struct {
	HolderName  *string `json:"holderName,omitempty"`
	AccountType *string `json:"accountType,omitempty"`
}

type AccountResponse struct {
	AccountID   string `json:"accountId"`
	HolderName  string `json:"holderName"`
	AccountType string `json:"accountType"`
	Balance     string `json:"balance"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func NewAccountResponse(account domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:   account.ID,
		HolderName:  account.HolderName,
		AccountType: account.AccountType,
		Balance:     FormatMoney(account.Balance),
		Status:      string(account.Status),
		CreatedAt:   account.CreatedAt.UTC().Format(domain.TimestampLayout),
		UpdatedAt:   account.UpdatedAt.UTC().Format(domain.TimestampLayout),
	}
}

type AccountSummaryResponse struct {
	HolderName  string `json:"holderName"`
	AccountType string `json:"accountType"`
	Balance     string `json:"balance"`
	Status      string `json:"status"`
}

func NewAccountSummaryResponses(summaries map[string]domain.AccountSummary) map[string]AccountSummaryResponse {
	out := make(map[string]AccountSummaryResponse, len(summaries))
	for id, summary := range summaries {
		out[id] = AccountSummaryResponse{
			HolderName:  summary.HolderName,
			AccountType: summary.AccountType,
			Balance:     FormatMoney(summary.Balance),
			Status:      string(summary.Status),
		}
	}
	return out
}

type BalanceResponse struct {
	AccountID string `json:"accountId"`
	Balance   string `json:"balance"`
}

type AccountActionResponse struct {
	AccountID string `json:"accountId"`
}

func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(domain.MoneyScale)
}
