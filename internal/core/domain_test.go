package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-03-09", "2025-03-09", true},
		{" 2025-03-09 ", "2025-03-09", true},
		{"2025-03-09T23:30:00+02:00", "2025-03-09", true},
		{"09/03/2025", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
		} else if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestDateInMonth(t *testing.T) {
	d := NewDate(2025, time.February, 28)
	if !d.InMonth(2025, time.February) {
		t.Fatalf("expected date in February 2025")
	}
	if d.InMonth(2024, time.February) || d.InMonth(2025, time.March) {
		t.Fatalf("date matched the wrong month")
	}
}

func TestParseAccountAndType(t *testing.T) {
	if a, err := ParseAccount("emilie"); err != nil || a != Emilie {
		t.Fatalf("expected Emilie, got %q (err=%v)", a, err)
	}
	if _, err := ParseAccount("Bob"); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
	if typ, err := ParseEntryType("REVENU"); err != nil || typ != Revenu {
		t.Fatalf("expected Revenu, got %q (err=%v)", typ, err)
	}
	if _, err := ParseEntryType("Other"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if Revenu.IsExpense() || !Fixe.IsExpense() || !Variable.IsExpense() {
		t.Fatalf("IsExpense mismatch")
	}
}

func TestTransactionDraftValidate(t *testing.T) {
	good := TransactionDraft{
		Date:     NewDate(2025, 1, 1),
		Account:  Commun,
		Type:     Variable,
		Category: "Courses",
		Amount:   Money{Cents: 100},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	for _, desc := range []string{strings.Repeat("é", 150), strings.Repeat("x", 1000)} {
		d := good
		d.Description = desc
		if err := d.Validate(); err != nil {
			t.Fatalf("description of %d bytes: expected ok, got %v", len(desc), err)
		}
	}

	bads := []struct {
		mutate func(*TransactionDraft)
		want   error
	}{
		{func(d *TransactionDraft) { d.Date = Date{} }, ErrInvalidDate},
		{func(d *TransactionDraft) { d.Account = "Bob" }, ErrInvalidAccount},
		{func(d *TransactionDraft) { d.Type = "Other" }, ErrInvalidType},
		{func(d *TransactionDraft) { d.Category = "  " }, ErrEmptyCategory},
		{func(d *TransactionDraft) { d.Amount = Money{} }, ErrInvalidAmount},
		{func(d *TransactionDraft) { d.Amount = Money{Cents: -5} }, ErrInvalidAmount},
	}
	for i, tc := range bads {
		d := good
		tc.mutate(&d)
		if err := d.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestBudgetAndIncomeValidate(t *testing.T) {
	if err := (Budget{Name: "Loyer", Amount: NewMoney(850, 0), Account: Commun}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Budget{Name: "Loyer", Amount: Money{}, Account: Commun}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := (IncomeConfig{Name: "", Amount: NewMoney(1, 0), Account: Cedric}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := (Category{Name: " "}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestTransactionJSONFieldNames(t *testing.T) {
	tx := Transaction{
		ID:          "a",
		Date:        NewDate(2025, 5, 4),
		Account:     Emilie,
		Type:        Variable,
		Category:    "Sorties",
		Amount:      NewMoney(12, 50),
		Description: "cinéma",
		Timestamp:   1714800000000,
		IsVerified:  true,
	}
	b, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"a","date":"2025-05-04","account":"Emilie","type":"Variable","category":"Sorties","amount":12.5,"description":"cinéma","timestamp":1714800000000,"isVerified":true}`
	if string(b) != want {
		t.Fatalf("unexpected json:\n got %s\nwant %s", b, want)
	}
}

func TestDefaults(t *testing.T) {
	cats := DefaultCategories()
	if len(cats) != 11 {
		t.Fatalf("expected 11 default categories, got %d", len(cats))
	}
	if cats[0].ID != "1" || cats[10].ID != "11" || cats[10].Name != TransferCategory {
		t.Fatalf("unexpected default categories: %+v", cats)
	}
	budgets := DefaultBudgets()
	if len(budgets) != 2 || budgets[0].IsFixed || !budgets[1].IsFixed {
		t.Fatalf("unexpected default budgets: %+v", budgets)
	}
	if budgets[1].Amount.Cents != 85000 || budgets[1].Account != Commun {
		t.Fatalf("unexpected rent budget: %+v", budgets[1])
	}
}
