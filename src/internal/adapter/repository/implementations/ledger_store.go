package implementations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/logger"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolationCode = "23505"

type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (r *LedgerStore) CreateAccount(ctx context.Context, account domain.Account, initial *domain.Transaction) (created domain.Account, err error) {
	logger.Debug("ledger store create account", logger.Fields{
		"accountId":   account.ID,
		"accountType": account.AccountType,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Account{}, fmt.Errorf("begin create account transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `
INSERT INTO accounts (
	account_id,
	holder_name,
	account_type,
	balance,
	status,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $6)
RETURNING created_at, updated_at`

	if err = tx.QueryRowContext(
		ctx,
		query,
		account.ID,
		account.HolderName,
		account.AccountType,
		account.Balance,
		account.Status,
		account.CreatedAt,
	).Scan(&account.CreatedAt, &account.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrDuplicateAccountID
			return domain.Account{}, err
		}
		logger.Error("ledger store create account failed", err, logger.Fields{"accountId": account.ID})
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	if initial != nil {
		entry := *initial
		entry.AccountID = account.ID
		if _, err = insertTransaction(ctx, tx, entry); err != nil {
			return domain.Account{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		logger.Error("ledger store create account commit failed", err, logger.Fields{"accountId": account.ID})
		return domain.Account{}, fmt.Errorf("commit create account: %w", err)
	}

	return account, nil
}

func (r *LedgerStore) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	const query = `
SELECT account_id, holder_name, account_type, balance, status, created_at, updated_at
FROM accounts
WHERE account_id = $1`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		logger.Error("ledger store get account failed", err, logger.Fields{"accountId": accountID})
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}

	return account, nil
}

func (r *LedgerStore) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	const query = `
SELECT account_id, holder_name, account_type, balance, status, created_at, updated_at
FROM accounts
ORDER BY created_at, account_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("ledger store list accounts failed", err, nil)
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

func (r *LedgerStore) ListTransactions(ctx context.Context, accountID string, dateRange domain.DateRange) ([]domain.Transaction, error) {
	const query = `
SELECT id, account_id, type, amount, description, balance_after, created_at
FROM transactions
WHERE account_id = $1
  AND (
	NOT $2::boolean
	OR (created_at AT TIME ZONE 'UTC')::date BETWEEN $3::date AND $4::date
  )
ORDER BY created_at DESC, id DESC`

	var start, end any
	if dateRange.Active() {
		start = dateRange.Start.Format(domain.DateLayout)
		end = dateRange.End.Format(domain.DateLayout)
	}

	rows, err := r.db.QueryContext(ctx, query, accountID, dateRange.Active(), start, end)
	if err != nil {
		logger.Error("ledger store list transactions failed", err, logger.Fields{"accountId": accountID})
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	history := make([]domain.Transaction, 0)
	for rows.Next() {
		var entry domain.Transaction
		if err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.Type,
			&entry.Amount,
			&entry.Description,
			&entry.BalanceAfter,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		entry.Timestamp = entry.Timestamp.UTC()
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return history, nil
}

func (r *LedgerStore) WithAccountsLocked(ctx context.Context, accountIDs []string, fn func(tx repo_interfaces.LedgerTx) error) (err error) {
	ids := sortedUnique(accountIDs)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("ledger store begin unit of work failed", err, nil)
		return fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	unit := &postgresTx{
		ctx:     ctx,
		tx:      tx,
		allowed: make(map[string]struct{}, len(ids)),
		locked:  make(map[string]domain.Account, len(ids)),
	}

	const lockQuery = `
SELECT account_id, holder_name, account_type, balance, status, created_at, updated_at
FROM accounts
WHERE account_id = $1
FOR UPDATE`

	// One statement per id keeps lock acquisition in the sorted order.
	for _, id := range ids {
		unit.allowed[id] = struct{}{}
		account, scanErr := scanAccount(tx.QueryRowContext(ctx, lockQuery, id))
		if scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				continue
			}
			err = fmt.Errorf("lock account %s: %w", id, scanErr)
			logger.Error("ledger store lock account failed", scanErr, logger.Fields{"accountId": id})
			return err
		}
		unit.locked[id] = account
	}

	if err = fn(unit); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		logger.Error("ledger store commit unit of work failed", err, logger.Fields{"accountIds": ids})
		return fmt.Errorf("commit ledger transaction: %w", err)
	}

	return nil
}

type postgresTx struct {
	ctx     context.Context
	tx      *sql.Tx
	allowed map[string]struct{}
	locked  map[string]domain.Account
}

func (t *postgresTx) Account(accountID string) (domain.Account, error) {
	if _, ok := t.allowed[accountID]; !ok {
		return domain.Account{}, fmt.Errorf("account %s is not locked in this unit of work", accountID)
	}
	account, ok := t.locked[accountID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}

func (t *postgresTx) SetBalance(accountID string, balance decimal.Decimal) error {
	account, err := t.Account(accountID)
	if err != nil {
		return err
	}

	const query = `
UPDATE accounts
SET balance = $2::numeric,
    updated_at = NOW()
WHERE account_id = $1`

	if _, err := execRequiredRows(t.ctx, t.tx, query, accountID, balance); err != nil {
		return fmt.Errorf("set balance for %s: %w", accountID, err)
	}

	account.Balance = balance
	t.locked[accountID] = account
	return nil
}

func (t *postgresTx) SetStatus(accountID string, status domain.AccountStatus) error {
	account, err := t.Account(accountID)
	if err != nil {
		return err
	}

	const query = `
UPDATE accounts
SET status = $2::varchar,
    updated_at = NOW()
WHERE account_id = $1`

	if _, err := execRequiredRows(t.ctx, t.tx, query, accountID, status); err != nil {
		return fmt.Errorf("set status for %s: %w", accountID, err)
	}

	account.Status = status
	t.locked[accountID] = account
	return nil
}

func (t *postgresTx) UpdateDetails(accountID string, holderName *string, accountType *string) error {
	account, err := t.Account(accountID)
	if err != nil {
		return err
	}

	const query = `
UPDATE accounts
SET holder_name = COALESCE($2, holder_name),
    account_type = COALESCE($3, account_type),
    updated_at = NOW()
WHERE account_id = $1`

	if _, err := execRequiredRows(t.ctx, t.tx, query, accountID, nullableString(holderName), nullableString(accountType)); err != nil {
		return fmt.Errorf("update details for %s: %w", accountID, err)
	}

	if holderName != nil {
		account.HolderName = *holderName
	}
	if accountType != nil {
		account.AccountType = *accountType
	}
	t.locked[accountID] = account
	return nil
}

func (t *postgresTx) AppendTransaction(entry domain.Transaction) (domain.Transaction, error) {
	if _, err := t.Account(entry.AccountID); err != nil {
		return domain.Transaction{}, err
	}
	return insertTransaction(t.ctx, t.tx, entry)
}

func insertTransaction(ctx context.Context, tx *sql.Tx, entry domain.Transaction) (domain.Transaction, error) {
	const query = `
INSERT INTO transactions (
	account_id,
	type,
	amount,
	description,
	balance_after,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

	if err := tx.QueryRowContext(
		ctx,
		query,
		entry.AccountID,
		entry.Type,
		entry.Amount,
		entry.Description,
		entry.BalanceAfter,
		entry.Timestamp,
	).Scan(&entry.ID); err != nil {
		logger.Error("ledger store append transaction failed", err, logger.Fields{
			"accountId": entry.AccountID,
			"type":      entry.Type,
		})
		return domain.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}

	return entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var account domain.Account
	var createdAt, updatedAt time.Time
	if err := row.Scan(
		&account.ID,
		&account.HolderName,
		&account.AccountType,
		&account.Balance,
		&account.Status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Account{}, err
	}
	account.CreatedAt = createdAt.UTC()
	account.UpdatedAt = updatedAt.UTC()
	return account, nil
}

func execRequiredRows(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("execute ledger statement: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read rows affected: %w", err)
	}
	if rows == 0 {
		return 0, errors.New("ledger statement affected no rows on a locked account")
	}
	return rows, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode
	}
	return false
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
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
