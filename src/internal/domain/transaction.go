package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

func (t EntryType) Valid() bool {
	return t == EntryCredit || t == EntryDebit
}

// Apply returns the balance after posting amount with the entry's sign.
func (t EntryType) Apply(balance decimal.Decimal, amount decimal.Decimal) decimal.Decimal {
	if t == EntryDebit {
		return balance.Sub(amount)
	}
	return balance.Add(amount)
}

type Transaction struct {
	ID           int64
	AccountID    string
	Type         EntryType
	Amount       decimal.Decimal
	Description  string
	BalanceAfter decimal.Decimal
	Timestamp    time.Time
}

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// DateRange filters history by calendar date (UTC). It only applies when
// both bounds are set.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (r DateRange) Active() bool {
	return r.Start != nil && r.End != nil
}

// Contains reports whether ts falls on a day within the inclusive range.
func (r DateRange) Contains(ts time.Time) bool {
	if !r.Active() {
		return true
	}
	day := truncateDay(ts)
	return !day.Before(truncateDay(*r.Start)) && !day.After(truncateDay(*r.End))
}

// ParseDateRange builds a filter from YYYY-MM-DD strings. A single bound
// means no filtering, so it is not parsed. A reversed range is valid and
// matches nothing.
func ParseDateRange(start string, end string) (DateRange, error) {
	if start == "" || end == "" {
		return DateRange{}, nil
	}

	startDate, err := time.Parse(DateLayout, start)
	if err != nil {
		return DateRange{}, NewValidationError("startDate must be in YYYY-MM-DD format")
	}
	endDate, err := time.Parse(DateLayout, end)
	if err != nil {
		return DateRange{}, NewValidationError("endDate must be in YYYY-MM-DD format")
	}
	return DateRange{Start: &startDate, End: &endDate}, nil
}

func truncateDay(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
