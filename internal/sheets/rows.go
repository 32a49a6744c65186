package sheets

import (
	"sort"

	"budgetfamille/internal/core"
)

// Rows renders txs as spreadsheet rows, header first, most recent date
// first. Transactions sharing a date keep their ledger order.
func Rows(txs []core.Transaction) [][]any {
	sorted := append([]core.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date.Time)
	})

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	rows := make([][]any, 0, len(sorted)+1)
	rows = append(rows, header)
	for _, tx := range sorted {
		rows = append(rows, []any{
			tx.Date.String(),
			string(tx.Account),
			string(tx.Type),
			tx.Category,
			tx.Amount.Euros(),
			tx.Description,
			tx.IsVerified,
			tx.ID,
		})
	}
	return rows
}
