// Package sheets defines the outbound port for the spreadsheet mirror.
package sheets

import (
	"context"

	"budgetfamille/internal/core"
)

// LedgerMirror replaces the mirrored copy of the ledger with txs.
type LedgerMirror interface {
	MirrorTransactions(ctx context.Context, txs []core.Transaction) error
}

// Header is the first row written to the mirror tab.
var Header = []string{"Date", "Account", "Type", "Category", "Amount", "Description", "Verified", "ID"}
