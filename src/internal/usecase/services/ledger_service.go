package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/logger"
	"github.com/api-sage/account-ledger/src/internal/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	accountIDPrefix       = "acc"
	maxAccountIDAttempts  = 5
	initialDepositMessage = "Initial deposit"
)

type LedgerService struct {
	store   repo_interfaces.LedgerStore
	metrics metrics.Collector
	now     func() time.Time
	newID   func() string
}

type Option func(*LedgerService)

// WithClock overrides the source of ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *LedgerService) {
		s.newID = newID
	}
}

func NewLedgerService(store repo_interfaces.LedgerStore, collector metrics.Collector, opts ...Option) *LedgerService {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	s := &LedgerService{
		store:   store,
		metrics: collector,
		now:     time.Now,
		newID:   generateAccountID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) Open(ctx context.Context, holderName string, accountType string, initialDeposit decimal.Decimal) (account domain.Account, err error) {
	defer s.observe("open", time.Now(), &err)

	logger.Info("ledger service open account request", logger.Fields{
		"holderName":     holderName,
		"accountType":    accountType,
		"initialDeposit": initialDeposit.StringFixed(domain.MoneyScale),
	})

	if err := domain.ValidateAccountDetails(holderName, accountType); err != nil {
		return domain.Account{}, err
	}
	if err := domain.ValidateInitialDeposit(initialDeposit); err != nil {
		return domain.Account{}, err
	}

	for attempt := 1; attempt <= maxAccountIDAttempts; attempt++ {
		now := s.timestamp()
		candidate := domain.Account{
			ID:          s.newID(),
			HolderName:  strings.TrimSpace(holderName),
			AccountType: strings.TrimSpace(accountType),
			Balance:     initialDeposit,
			Status:      domain.AccountStatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		var initial *domain.Transaction
		if initialDeposit.IsPositive() {
			initial = &domain.Transaction{
				AccountID:    candidate.ID,
				Type:         domain.EntryCredit,
				Amount:       initialDeposit,
				Description:  initialDepositMessage,
				BalanceAfter: initialDeposit,
				Timestamp:    now,
			}
		}

		account, err = s.store.CreateAccount(ctx, candidate, initial)
		if err == nil {
			logger.Info("ledger service open account success", logger.Fields{
				"accountId": account.ID,
			})
			return account, nil
		}
		if !errors.Is(err, domain.ErrDuplicateAccountID) {
			return domain.Account{}, fmt.Errorf("create account: %w", err)
		}

		logger.Warn("ledger service account id collision, retrying", logger.Fields{
			"accountId": candidate.ID,
			"attempt":   attempt,
		})
	}

	return domain.Account{}, fmt.Errorf("create account after %d attempts: %w", maxAccountIDAttempts, domain.ErrDuplicateAccountID)
}

func (s *LedgerService) Close(ctx context.Context, accountID string) (err error) {
	defer s.observe("close", time.Now(), &err)

	logger.Info("ledger service close account request", logger.Fields{
		"accountId": accountID,
	})

	err = s.store.WithAccountsLocked(ctx, []string{accountID}, func(tx repo_interfaces.LedgerTx) error {
		account, err := tx.Account(accountID)
		if err != nil {
			return err
		}
		if account.Status == domain.AccountStatusClosed {
			return nil
		}
		if !account.Balance.IsZero() {
			return domain.ErrNonZeroBalance
		}
		return tx.SetStatus(accountID, domain.AccountStatusClosed)
	})
	if err != nil {
		return err
	}

	logger.Info("ledger service close account success", logger.Fields{
		"accountId": accountID,
	})
	return nil
}

func (s *LedgerService) Balance(ctx context.Context, accountID string) (balance decimal.Decimal, err error) {
	defer s.observe("balance", time.Now(), &err)

	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context) (summaries map[string]domain.AccountSummary, err error) {
	defer s.observe("list_accounts", time.Now(), &err)

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	summaries = make(map[string]domain.AccountSummary, len(accounts))
	for _, account := range accounts {
		summaries[account.ID] = account.Summary()
	}
	return summaries, nil
}

func (s *LedgerService) UpdateDetails(ctx context.Context, accountID string, holderName *string, accountType *string) (err error) {
	defer s.observe("update_details", time.Now(), &err)

	holderName = trimmedOrNil(holderName)
	accountType = trimmedOrNil(accountType)
	if holderName == nil && accountType == nil {
		return nil
	}

	logger.Info("ledger service update details request", logger.Fields{
		"accountId":      accountID,
		"hasHolderName":  holderName != nil,
		"hasAccountType": accountType != nil,
	})

	return s.store.WithAccountsLocked(ctx, []string{accountID}, func(tx repo_interfaces.LedgerTx) error {
		account, err := tx.Account(accountID)
		if err != nil {
			return err
		}
		if !account.IsActive() {
			return domain.ErrInactiveAccount
		}
		return tx.UpdateDetails(accountID, holderName, accountType)
	})
}

func (s *LedgerService) History(ctx context.Context, accountID string, dateRange domain.DateRange) (entries []domain.Transaction, err error) {
	defer s.observe("history", time.Now(), &err)

	entries, err = s.store.ListTransactions(ctx, accountID, dateRange)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.Transaction{}
	}
	return entries, nil
}

func (s *LedgerService) observe(operation string, start time.Time, err *error) {
	outcome := domain.ErrorKind(*err)
	s.metrics.RecordOperation(operation, outcome, time.Since(start))

	switch {
	case *err == nil:
	case domain.IsBusinessError(*err):
		logger.Warn("ledger service operation rejected", logger.Fields{
			"operation": operation,
			"outcome":   outcome,
			"reason":    (*err).Error(),
		})
	default:
		logger.Error("ledger service operation failed", *err, logger.Fields{
			"operation": operation,
		})
	}
}

func (s *LedgerService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func generateAccountID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return accountIDPrefix + raw[:12]
}
