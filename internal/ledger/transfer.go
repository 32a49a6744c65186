package ledger

import "budgetfamille/internal/core"

const (
	// ReceivedTransferCategory labels the income side of a transfer into Commun.
	ReceivedTransferCategory = "Virement reçu"
)

// IsOutgoingTransfer reports whether tx moves money from a personal account
// into the shared one.
func IsOutgoingTransfer(tx core.Transaction) bool {
	if tx.Category != core.TransferCategory || tx.Type == core.Revenu {
		return false
	}
	return tx.Account == core.Emilie || tx.Account == core.Cedric
}

// LinkedTransfer returns the Commun income mirroring an outgoing transfer.
// The caller assigns the id and timestamp. ok is false when tx is not a
// transfer into the shared account.
func LinkedTransfer(tx core.Transaction) (linked core.Transaction, ok bool) {
	if !IsOutgoingTransfer(tx) {
		return core.Transaction{}, false
	}
	return core.Transaction{
		Date:        tx.Date,
		Account:     core.Commun,
		Type:        core.Revenu,
		Category:    ReceivedTransferCategory,
		Amount:      tx.Amount,
		Description: "Virement reçu de " + string(tx.Account),
		IsVerified:  tx.IsVerified,
	}, true
}
