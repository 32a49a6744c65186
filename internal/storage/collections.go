package storage

import "budgetfamille/internal/core"

const (
	KeyTransactions = "transactions"
	KeyCategories   = "categories"
	KeyBudgets      = "budgets"
	KeyIncomes      = "incomes"
)

// Keys lists every persisted collection.
func Keys() []string {
	return []string{KeyTransactions, KeyCategories, KeyBudgets, KeyIncomes}
}

func Transactions() Collection[core.Transaction] {
	return Collection[core.Transaction]{
		Key:      KeyTransactions,
		Defaults: func() []core.Transaction { return []core.Transaction{} },
		Migrations: []Migration{
			DefaultField("isVerified", false),
		},
	}
}

func Categories() Collection[core.Category] {
	return Collection[core.Category]{
		Key:      KeyCategories,
		Defaults: core.DefaultCategories,
	}
}

// Budgets predate per-account budgets and fixed charges, hence the two steps.
func Budgets() Collection[core.Budget] {
	return Collection[core.Budget]{
		Key:      KeyBudgets,
		Defaults: core.DefaultBudgets,
		Migrations: []Migration{
			DefaultField("account", core.Commun),
			DefaultField("isFixed", false),
		},
	}
}

func Incomes() Collection[core.IncomeConfig] {
	return Collection[core.IncomeConfig]{
		Key:      KeyIncomes,
		Defaults: func() []core.IncomeConfig { return []core.IncomeConfig{} },
	}
}
