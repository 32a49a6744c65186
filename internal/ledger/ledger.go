// Package ledger holds the transaction list and its mutation rules.
package ledger

import (
	"context"
	"fmt"

	"budgetfamille/internal/core"
)

// SaveFunc persists the full ledger.
type SaveFunc func(ctx context.Context, txs []core.Transaction) error

// Ledger is not safe for concurrent use; the owner serializes access.
type Ledger struct {
	txs   []core.Transaction
	save  SaveFunc
	ids   core.IDGenerator
	clock core.Clock
}

func New(txs []core.Transaction, save SaveFunc, ids core.IDGenerator, clock core.Clock) *Ledger {
	if ids == nil {
		ids = core.NewID
	}
	if clock == nil {
		clock = core.SystemClock{}
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return &Ledger{txs: txs, save: save, ids: ids, clock: clock}
}

// Transactions returns the live slice. Callers must not modify it.
func (l *Ledger) Transactions() []core.Transaction {
	return l.txs
}

// Len returns the number of transactions.
func (l *Ledger) Len() int { return len(l.txs) }

// Add records a new transaction at the head of the ledger together with its
// linked transfer when one applies. Both are persisted in a single save and
// returned in ledger order.
func (l *Ledger) Add(ctx context.Context, draft core.TransactionDraft) ([]core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	tx := l.stamp(core.Transaction{
		Date:        draft.Date,
		Account:     draft.Account,
		Type:        draft.Type,
		Category:    draft.Category,
		Amount:      draft.Amount,
		Description: draft.Description,
		IsVerified:  draft.IsVerified,
	})
	created := []core.Transaction{tx}
	if linked, ok := LinkedTransfer(tx); ok {
		created = append(created, l.stamp(linked))
	}

	updated := make([]core.Transaction, 0, len(created)+len(l.txs))
	updated = append(updated, created...)
	updated = append(updated, l.txs...)
	if err := l.commit(ctx, updated); err != nil {
		return nil, err
	}
	return created, nil
}

func (l *Ledger) stamp(tx core.Transaction) core.Transaction {
	tx.ID = l.ids()
	tx.Timestamp = l.clock.Now().UnixMilli()
	return tx
}

// Delete removes the transaction with the given id. Linked transfers are
// independent records and stay.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	idx := l.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	updated := make([]core.Transaction, 0, len(l.txs)-1)
	updated = append(updated, l.txs[:idx]...)
	updated = append(updated, l.txs[idx+1:]...)
	return l.commit(ctx, updated)
}

// DeleteMatching removes every transaction for which match returns true and
// reports how many were removed. Nothing is saved when none match.
func (l *Ledger) DeleteMatching(ctx context.Context, match func(core.Transaction) bool) (int, error) {
	updated := make([]core.Transaction, 0, len(l.txs))
	for _, tx := range l.txs {
		if !match(tx) {
			updated = append(updated, tx)
		}
	}
	removed := len(l.txs) - len(updated)
	if removed == 0 {
		return 0, nil
	}
	if err := l.commit(ctx, updated); err != nil {
		return 0, err
	}
	return removed, nil
}

// ToggleVerified flips the verification flag of one transaction.
func (l *Ledger) ToggleVerified(ctx context.Context, id string) (core.Transaction, error) {
	idx := l.indexOf(id)
	if idx < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	updated := append([]core.Transaction(nil), l.txs...)
	updated[idx].IsVerified = !updated[idx].IsVerified
	if err := l.commit(ctx, updated); err != nil {
		return core.Transaction{}, err
	}
	return updated[idx], nil
}

func (l *Ledger) indexOf(id string) int {
	for i, tx := range l.txs {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

// commit saves first so a failed write leaves the ledger as it was.
func (l *Ledger) commit(ctx context.Context, updated []core.Transaction) error {
	if l.save != nil {
		if err := l.save(ctx, updated); err != nil {
			return fmt.Errorf("save transactions: %w", err)
		}
	}
	l.txs = updated
	return nil
}
