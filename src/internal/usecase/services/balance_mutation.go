package services

import (
	"context"
	"fmt"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	defaultDepositDescription  = "Deposit"
	defaultWithdrawDescription = "Withdrawal"
)

func (s *LedgerService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, description string) (err error) {
	defer s.observe("deposit", time.Now(), &err)

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	if description == "" {
		description = defaultDepositDescription
	}

	logger.Info("ledger service deposit request", logger.Fields{
		"accountId": accountID,
		"amount":    amount.StringFixed(domain.MoneyScale),
	})

	return s.store.WithAccountsLocked(ctx, []string{accountID}, func(tx repo_interfaces.LedgerTx) error {
		return s.post(tx, accountID, domain.EntryCredit, amount, description)
	})
}

func (s *LedgerService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, description string) (err error) {
	defer s.observe("withdraw", time.Now(), &err)

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	if description == "" {
		description = defaultWithdrawDescription
	}

	logger.Info("ledger service withdraw request", logger.Fields{
		"accountId": accountID,
		"amount":    amount.StringFixed(domain.MoneyScale),
	})

	return s.store.WithAccountsLocked(ctx, []string{accountID}, func(tx repo_interfaces.LedgerTx) error {
		return s.post(tx, accountID, domain.EntryDebit, amount, description)
	})
}

// Transfer moves amount between two accounts in one unit of work. Both legs
// commit together or neither does.
func (s *LedgerService) Transfer(ctx context.Context, fromAccountID string, toAccountID string, amount decimal.Decimal) (err error) {
	defer s.observe("transfer", time.Now(), &err)

	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	if fromAccountID == toAccountID {
		return domain.ErrSameAccount
	}

	logger.Info("ledger service transfer request", logger.Fields{
		"fromAccountId": fromAccountID,
		"toAccountId":   toAccountID,
		"amount":        amount.StringFixed(domain.MoneyScale),
	})

	err = s.store.WithAccountsLocked(ctx, []string{fromAccountID, toAccountID}, func(tx repo_interfaces.LedgerTx) error {
		if err := s.post(tx, fromAccountID, domain.EntryDebit, amount, "Transfer to "+toAccountID); err != nil {
			return err
		}
		return s.post(tx, toAccountID, domain.EntryCredit, amount, "Transfer from "+fromAccountID)
	})
	if err != nil {
		return err
	}

	logger.Info("ledger service transfer success", logger.Fields{
		"fromAccountId": fromAccountID,
		"toAccountId":   toAccountID,
	})
	return nil
}

// post applies one balance change and its ledger entry to a locked account.
func (s *LedgerService) post(tx repo_interfaces.LedgerTx, accountID string, entryType domain.EntryType, amount decimal.Decimal, description string) error {
	account, err := tx.Account(accountID)
	if err != nil {
		return err
	}
	if !account.IsActive() {
		return domain.ErrInactiveAccount
	}
	if entryType == domain.EntryDebit && account.Balance.LessThan(amount) {
		return domain.ErrInsufficientFunds
	}

	balanceAfter := entryType.Apply(account.Balance, amount)
	if !domain.FitsBalance(balanceAfter) {
		return domain.ErrBalanceLimit
	}
	if err := tx.SetBalance(accountID, balanceAfter); err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	if _, err := tx.AppendTransaction(domain.Transaction{
		AccountID:    accountID,
		Type:         entryType,
		Amount:       amount,
		Description:  description,
		BalanceAfter: balanceAfter,
		Timestamp:    s.timestamp(),
	}); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}
