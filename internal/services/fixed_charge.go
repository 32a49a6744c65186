package services

import (
	"context"
	"errors"
	"fmt"

	"budgetfamille/internal/core"
	"budgetfamille/internal/overview"
)

// FixedChargeDescription is the description of transactions created when a
// fixed charge is marked paid.
const FixedChargeDescription = "Charge Fixe Mensuelle"

var ErrNotFixedCharge = errors.New("budget is not a fixed charge")

// FixedChargeResult describes the transition applied by ToggleFixedCharge.
type FixedChargeResult struct {
	Budget  core.Budget        `json:"budget"`
	Paid    bool               `json:"paid"`
	Created []core.Transaction `json:"created,omitempty"`
	Removed int                `json:"removed"`
}

// ToggleFixedCharge flips a fixed charge between paid and unpaid for the
// current month on the budget's account. Paid is detected from the first
// matching Fixe transaction, while unpaid removes every match.
func (s *Session) ToggleFixedCharge(ctx context.Context, budgetID string) (FixedChargeResult, error) {
	var res FixedChargeResult
	err := s.mutate(ctx, "toggle_fixed_charge", func() error {
		b, ok := s.budgetByID(budgetID)
		if !ok {
			return fmt.Errorf("budget %s: %w", budgetID, core.ErrNotFound)
		}
		if !b.IsFixed {
			return fmt.Errorf("budget %q: %w", b.Name, ErrNotFixedCharge)
		}
		res.Budget = b

		today := s.clock.Today()
		y, m, _ := today.Date()
		q := overview.Query{Account: b.Account, Year: y, Month: m}
		monthly := overview.MonthlyTransactions(s.ledger.Transactions(), q)

		if len(overview.FixedChargeMatches(monthly, b)) == 0 {
			created, err := s.markPaid(ctx, b, today)
			if err != nil {
				return err
			}
			res.Paid, res.Created = true, created
			return nil
		}

		removed, err := s.markUnpaid(ctx, b, q)
		if err != nil {
			return err
		}
		res.Paid, res.Removed = false, removed
		return nil
	})
	return res, err
}

func (s *Session) markPaid(ctx context.Context, b core.Budget, today core.Date) ([]core.Transaction, error) {
	return s.ledger.Add(ctx, core.TransactionDraft{
		Date:        today,
		Account:     b.Account,
		Type:        core.Fixe,
		Category:    b.Name,
		Amount:      b.Amount,
		Description: FixedChargeDescription,
		IsVerified:  true,
	})
}

func (s *Session) markUnpaid(ctx context.Context, b core.Budget, q overview.Query) (int, error) {
	return s.ledger.DeleteMatching(ctx, func(tx core.Transaction) bool {
		return tx.Account == q.Account &&
			tx.Date.InMonth(q.Year, q.Month) &&
			tx.Category == b.Name &&
			tx.Type == core.Fixe
	})
}

func (s *Session) budgetByID(id string) (core.Budget, bool) {
	for _, b := range s.budgets {
		if b.ID == id {
			return b, true
		}
	}
	return core.Budget{}, false
}
