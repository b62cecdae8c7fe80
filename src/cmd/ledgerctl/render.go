package main

import (
	"io"
	"sort"
	"strconv"

	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

func renderAccounts(out io.Writer, summaries map[string]domain.AccountSummary) {
	ids := make([]string, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Account", "Holder", "Type", "Balance", "Status"})
	for _, id := range ids {
		s := summaries[id]
		table.Append([]string{id, s.HolderName, s.AccountType, s.Balance.StringFixed(domain.MoneyScale), string(s.Status)})
	}
	table.Render()
}

func renderBalance(out io.Writer, accountID string, balance decimal.Decimal) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Account", "Balance"})
	table.Append([]string{accountID, balance.StringFixed(domain.MoneyScale)})
	table.Render()
}

func renderHistory(out io.Writer, entries []domain.Transaction) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Timestamp", "Type", "Amount", "Balance After", "Description"})
	for _, e := range entries {
		table.Append([]string{
			strconv.FormatInt(e.ID, 10),
			e.Timestamp.UTC().Format(domain.TimestampLayout),
			string(e.Type),
			e.Amount.StringFixed(domain.MoneyScale),
			e.BalanceAfter.StringFixed(domain.MoneyScale),
			e.Description,
		})
	}
	table.Render()
}
