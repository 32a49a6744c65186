// Package overview computes the monthly figures shown for one account.
// Every function is pure and accepts empty input.
package overview

import (
	"sort"
	"time"

	"budgetfamille/internal/core"
)

// TopCategories is the number of categories kept by RankCategories.
const TopCategories = 6

type (
	// Query selects one account and calendar month.
	Query struct {
		Account core.Account
		Year    int
		Month   time.Month
	}

	DateGroup struct {
		Date         core.Date          `json:"date"`
		Transactions []core.Transaction `json:"transactions"`
	}

	Totals struct {
		FixedExpenses     core.Money `json:"fixedExpenses"`
		VariableExpenses  core.Money `json:"variableExpenses"`
		TransactionIncome core.Money `json:"transactionIncome"`
		FixedIncome       core.Money `json:"fixedIncome"`
		TotalIncome       core.Money `json:"totalIncome"`
		TotalExpenses     core.Money `json:"totalExpenses"`
		Balance           core.Money `json:"balance"`
	}

	CategoryAmount struct {
		Category string     `json:"category"`
		Amount   core.Money `json:"amount"`
	}

	// BudgetStatus is the consumption of one budget. Paid and
	// PaidTransaction are only meaningful for fixed charges.
	BudgetStatus struct {
		Budget          core.Budget       `json:"budget"`
		Spent           core.Money        `json:"spent"`
		Remaining       core.Money        `json:"remaining"`
		Percent         float64           `json:"percent"`
		Paid            bool              `json:"paid"`
		PaidTransaction *core.Transaction `json:"paidTransaction,omitempty"`
	}

	MonthView struct {
		Query            Query            `json:"-"`
		Account          core.Account     `json:"account"`
		Year             int              `json:"year"`
		Month            int              `json:"month"`
		Totals           Totals           `json:"totals"`
		Groups           []DateGroup      `json:"groups"`
		TopCategories    []CategoryAmount `json:"topCategories"`
		Budgets          []BudgetStatus   `json:"budgets"`
		TransactionCount int              `json:"transactionCount"`
	}
)

// MonthlyTransactions keeps the transactions of q.Account dated inside the
// requested month, in ledger order.
func MonthlyTransactions(txs []core.Transaction, q Query) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, tx := range txs {
		if tx.Account == q.Account && tx.Date.InMonth(q.Year, q.Month) {
			out = append(out, tx)
		}
	}
	return out
}

// GroupByDate groups by calendar day, most recent day first. Within a day
// the input order is kept.
func GroupByDate(monthly []core.Transaction) []DateGroup {
	index := make(map[string]int)
	groups := make([]DateGroup, 0)
	for _, tx := range monthly {
		key := tx.Date.String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DateGroup{Date: tx.Date})
		}
		groups[i].Transactions = append(groups[i].Transactions, tx)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Date.After(groups[j].Date.Time)
	})
	return groups
}

// ComputeTotals sums the month per entry type and adds the recurring
// incomes configured for account.
func ComputeTotals(monthly []core.Transaction, incomes []core.IncomeConfig, account core.Account) Totals {
	var t Totals
	for _, tx := range monthly {
		switch tx.Type {
		case core.Fixe:
			t.FixedExpenses = t.FixedExpenses.Add(tx.Amount)
		case core.Variable:
			t.VariableExpenses = t.VariableExpenses.Add(tx.Amount)
		case core.Revenu:
			t.TransactionIncome = t.TransactionIncome.Add(tx.Amount)
		}
	}
	for _, inc := range incomes {
		if inc.Account == account {
			t.FixedIncome = t.FixedIncome.Add(inc.Amount)
		}
	}
	t.TotalIncome = t.TransactionIncome.Add(t.FixedIncome)
	t.TotalExpenses = t.FixedExpenses.Add(t.VariableExpenses)
	t.Balance = t.TotalIncome.Sub(t.TotalExpenses)
	return t
}

// RankCategories sums expenses per category and returns the largest ones,
// at most limit entries. Ties keep first-seen order.
func RankCategories(monthly []core.Transaction, limit int) []CategoryAmount {
	index := make(map[string]int)
	ranked := make([]CategoryAmount, 0)
	for _, tx := range monthly {
		if tx.Type == core.Revenu {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(ranked)
			index[tx.Category] = i
			ranked = append(ranked, CategoryAmount{Category: tx.Category})
		}
		ranked[i].Amount = ranked[i].Amount.Add(tx.Amount)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Amount.Cents > ranked[j].Amount.Cents
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// FixedChargeMatches returns the monthly Fixe transactions booked on the
// budget's category, in ledger order.
func FixedChargeMatches(monthly []core.Transaction, b core.Budget) []core.Transaction {
	var out []core.Transaction
	for _, tx := range monthly {
		if tx.Category == b.Name && tx.Type == core.Fixe {
			out = append(out, tx)
		}
	}
	return out
}

// TrackBudgets reports consumption for every budget of account.
func TrackBudgets(monthly []core.Transaction, budgets []core.Budget, account core.Account) []BudgetStatus {
	out := make([]BudgetStatus, 0)
	for _, b := range budgets {
		if b.Account != account {
			continue
		}
		st := BudgetStatus{Budget: b}
		for _, tx := range monthly {
			if tx.Category == b.Name && tx.Type != core.Revenu {
				st.Spent = st.Spent.Add(tx.Amount)
			}
		}
		st.Remaining = b.Amount.Sub(st.Spent)
		st.Percent = percent(st.Spent, b.Amount)
		if b.IsFixed {
			if matches := FixedChargeMatches(monthly, b); len(matches) > 0 {
				paid := matches[0]
				st.Paid = true
				st.PaidTransaction = &paid
			}
		}
		out = append(out, st)
	}
	return out
}

func percent(spent, target core.Money) float64 {
	if target.Cents <= 0 {
		return 0
	}
	p := float64(spent.Cents) / float64(target.Cents) * 100
	if p > 100 {
		return 100
	}
	return p
}

// Build assembles the complete month view for q.
func Build(q Query, txs []core.Transaction, budgets []core.Budget, incomes []core.IncomeConfig) MonthView {
	monthly := MonthlyTransactions(txs, q)
	return MonthView{
		Query:            q,
		Account:          q.Account,
		Year:             q.Year,
		Month:            int(q.Month),
		Totals:           ComputeTotals(monthly, incomes, q.Account),
		Groups:           GroupByDate(monthly),
		TopCategories:    RankCategories(monthly, TopCategories),
		Budgets:          TrackBudgets(monthly, budgets, q.Account),
		TransactionCount: len(monthly),
	}
}
