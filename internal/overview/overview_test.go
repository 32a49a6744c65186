package overview

import (
	"testing"
	"time"

	"budgetfamille/internal/core"
)

func tx(id string, account core.Account, typ core.EntryType, category string, euros int64, day int) core.Transaction {
	return core.Transaction{
		ID:       id,
		Date:     core.NewDate(2025, time.March, day),
		Account:  account,
		Type:     typ,
		Category: category,
		Amount:   core.NewMoney(euros, 0),
	}
}

var march = Query{Account: core.Commun, Year: 2025, Month: time.March}

func TestMonthlyTransactions(t *testing.T) {
	txs := []core.Transaction{
		tx("1", core.Commun, core.Variable, "Courses", 10, 1),
		tx("2", core.Emilie, core.Variable, "Courses", 10, 1),
		{ID: "3", Account: core.Commun, Date: core.NewDate(2025, time.April, 1)},
		{ID: "4", Account: core.Commun, Date: core.NewDate(2024, time.March, 31)},
		tx("5", core.Commun, core.Revenu, "Salaire", 10, 31),
	}
	got := MonthlyTransactions(txs, march)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "5" {
		t.Fatalf("unexpected monthly selection: %+v", got)
	}
	if empty := MonthlyTransactions(nil, march); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice")
	}
}

func TestGroupByDate(t *testing.T) {
	monthly := []core.Transaction{
		tx("a", core.Commun, core.Variable, "Courses", 1, 5),
		tx("b", core.Commun, core.Variable, "Courses", 1, 20),
		tx("c", core.Commun, core.Variable, "Courses", 1, 5),
		tx("d", core.Commun, core.Variable, "Courses", 1, 12),
	}
	groups := GroupByDate(monthly)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	wantDays := []string{"2025-03-20", "2025-03-12", "2025-03-05"}
	for i, want := range wantDays {
		if groups[i].Date.String() != want {
			t.Fatalf("group %d: expected %s, got %s", i, want, groups[i].Date)
		}
	}
	if g := groups[2].Transactions; g[0].ID != "a" || g[1].ID != "c" {
		t.Fatalf("expected stable order within a day, got %+v", g)
	}
}

func TestComputeTotals(t *testing.T) {
	monthly := []core.Transaction{
		tx("1", core.Commun, core.Fixe, "Loyer", 850, 1),
		tx("2", core.Commun, core.Variable, "Courses", 120, 2),
		tx("3", core.Commun, core.Variable, "Sorties", 30, 3),
		tx("4", core.Commun, core.Revenu, "Virement reçu", 500, 4),
	}
	incomes := []core.IncomeConfig{
		{Name: "Salaire", Amount: core.NewMoney(1000, 0), Account: core.Commun},
		{Name: "Aides", Amount: core.NewMoney(200, 0), Account: core.Emilie},
	}
	got := ComputeTotals(monthly, incomes, core.Commun)
	want := Totals{
		FixedExpenses:     core.NewMoney(850, 0),
		VariableExpenses:  core.NewMoney(150, 0),
		TransactionIncome: core.NewMoney(500, 0),
		FixedIncome:       core.NewMoney(1000, 0),
		TotalIncome:       core.NewMoney(1500, 0),
		TotalExpenses:     core.NewMoney(1000, 0),
		Balance:           core.NewMoney(500, 0),
	}
	if got != want {
		t.Fatalf("unexpected totals:\n got %+v\nwant %+v", got, want)
	}
	if got.TotalExpenses.Add(got.Balance) != got.TotalIncome {
		t.Fatalf("expenses + balance must equal income")
	}
	if zero := ComputeTotals(nil, nil, core.Commun); zero != (Totals{}) {
		t.Fatalf("expected zero totals, got %+v", zero)
	}
}

func TestRankCategories(t *testing.T) {
	var monthly []core.Transaction
	amounts := map[string]int64{"A": 10, "B": 70, "C": 30, "D": 30, "E": 5, "F": 50, "G": 1}
	for _, c := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		monthly = append(monthly, tx(c, core.Commun, core.Variable, c, amounts[c], 1))
	}
	monthly = append(monthly, tx("r", core.Commun, core.Revenu, "Salaire", 9999, 1))
	monthly = append(monthly, tx("a2", core.Commun, core.Fixe, "A", 15, 2))

	got := RankCategories(monthly, TopCategories)
	want := []string{"B", "F", "C", "D", "A", "E"}
	if len(got) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(got))
	}
	for i, c := range want {
		if got[i].Category != c {
			t.Fatalf("rank %d: expected %s, got %s (%+v)", i, c, got[i].Category, got)
		}
	}
	if got[4].Amount.Cents != 2500 {
		t.Fatalf("expected A to sum Fixe and Variable, got %v", got[4].Amount)
	}
	if len(RankCategories(nil, TopCategories)) != 0 {
		t.Fatalf("expected no categories")
	}
}

func TestTrackBudgetsClampAndRemaining(t *testing.T) {
	budgets := []core.Budget{
		{ID: "1", Name: "Courses", Amount: core.NewMoney(600, 0), Account: core.Commun},
		{ID: "2", Name: "Courses", Amount: core.NewMoney(100, 0), Account: core.Emilie},
		{ID: "3", Name: "Sorties", Amount: core.NewMoney(200, 0), Account: core.Commun},
	}
	monthly := []core.Transaction{
		tx("1", core.Commun, core.Variable, "Courses", 400, 1),
		tx("2", core.Commun, core.Fixe, "Courses", 250, 2),
		tx("3", core.Commun, core.Revenu, "Courses", 1000, 3),
	}
	got := TrackBudgets(monthly, budgets, core.Commun)
	if len(got) != 2 {
		t.Fatalf("expected only Commun budgets, got %d", len(got))
	}
	courses := got[0]
	if courses.Spent.Cents != 65000 || courses.Remaining.Cents != -5000 || courses.Percent != 100 {
		t.Fatalf("unexpected courses status: %+v", courses)
	}
	sorties := got[1]
	if sorties.Spent.Cents != 0 || sorties.Percent != 0 || sorties.Remaining.Cents != 20000 {
		t.Fatalf("unexpected sorties status: %+v", sorties)
	}
	if courses.Paid || courses.PaidTransaction != nil {
		t.Fatalf("variable budgets are never paid")
	}
}

func TestTrackBudgetsPercentNonPositiveTarget(t *testing.T) {
	budgets := []core.Budget{{Name: "Divers", Amount: core.Money{}, Account: core.Commun}}
	monthly := []core.Transaction{tx("1", core.Commun, core.Variable, "Divers", 10, 1)}
	got := TrackBudgets(monthly, budgets, core.Commun)
	if got[0].Percent != 0 {
		t.Fatalf("expected 0 percent for a zero target, got %v", got[0].Percent)
	}
}

func TestTrackBudgetsFixedChargePaid(t *testing.T) {
	rent := core.Budget{ID: "2", Name: "Loyer", Amount: core.NewMoney(850, 0), Account: core.Commun, IsFixed: true}
	monthly := []core.Transaction{
		tx("v", core.Commun, core.Variable, "Loyer", 10, 1),
		tx("first", core.Commun, core.Fixe, "Loyer", 850, 2),
		tx("second", core.Commun, core.Fixe, "Loyer", 850, 3),
	}
	st := TrackBudgets(monthly, []core.Budget{rent}, core.Commun)[0]
	if !st.Paid || st.PaidTransaction == nil || st.PaidTransaction.ID != "first" {
		t.Fatalf("expected first Fixe match as paid marker, got %+v", st)
	}
	if m := FixedChargeMatches(monthly, rent); len(m) != 2 {
		t.Fatalf("expected 2 fixed matches, got %d", len(m))
	}

	unpaid := TrackBudgets(monthly[:1], []core.Budget{rent}, core.Commun)[0]
	if unpaid.Paid {
		t.Fatalf("a Variable record must not mark a fixed charge paid")
	}
}

func TestBuild(t *testing.T) {
	txs := []core.Transaction{
		tx("1", core.Commun, core.Fixe, "Loyer", 850, 1),
		tx("2", core.Commun, core.Variable, "Courses", 50, 2),
		tx("3", core.Emilie, core.Variable, "Courses", 50, 2),
	}
	view := Build(march, txs, core.DefaultBudgets(), nil)
	if view.TransactionCount != 2 || view.Month != 3 || view.Year != 2025 || view.Account != core.Commun {
		t.Fatalf("unexpected header: %+v", view)
	}
	if len(view.Groups) != 2 || len(view.TopCategories) != 2 || len(view.Budgets) != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if !view.Budgets[1].Paid {
		t.Fatalf("expected rent to be paid")
	}
	if view.Totals.Balance.Cents != -90000 {
		t.Fatalf("unexpected balance %v", view.Totals.Balance)
	}
}
