package core

import "strconv"

// TransferCategory triggers the linked-transfer rule when used on a
// personal account.
const TransferCategory = "Virement compte commun"

// DefaultCategories returns the preset categories seeded on first run.
func DefaultCategories() []Category {
	names := []string{
		"Courses",
		"Loyer",
		"Électricité",
		"Sorties",
		"Téléphonie",
		"Divers",
		"Transport",
		"Santé",
		"Salaire",
		"Aides",
		TransferCategory,
	}
	out := make([]Category, len(names))
	for i, n := range names {
		out[i] = Category{ID: strconv.Itoa(i + 1), Name: n}
	}
	return out
}

// DefaultBudgets returns the preset budgets seeded on first run.
func DefaultBudgets() []Budget {
	return []Budget{
		{ID: "1", Name: "Courses", Amount: NewMoney(600, 0), Account: Commun, IsFixed: false},
		{ID: "2", Name: "Loyer", Amount: NewMoney(850, 0), Account: Commun, IsFixed: true},
	}
}
