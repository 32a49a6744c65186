package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Commun Account = "Commun"
	Emilie Account = "Emilie"
	Cedric Account = "Cedric"
)

const (
	Fixe     EntryType = "Fixe"
	Variable EntryType = "Variable"
	Revenu   EntryType = "Revenu"
)

type (
	// Account is one of the three independent budget partitions.
	Account string

	// EntryType tells whether a transaction is an outflow (Fixe, Variable)
	// or an inflow (Revenu). Amounts are always stored positive.
	EntryType string

	// Date is a calendar day with no time component.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          string    `json:"id"`
		Date        Date      `json:"date"`
		Account     Account   `json:"account"`
		Type        EntryType `json:"type"`
		Category    string    `json:"category"`
		Amount      Money     `json:"amount"`
		Description string    `json:"description"`
		Timestamp   int64     `json:"timestamp"` // unix milliseconds
		IsVerified  bool      `json:"isVerified"`
	}

	// TransactionDraft holds the user-supplied part of a transaction;
	// id and timestamp are assigned by the ledger.
	TransactionDraft struct {
		Date        Date
		Account     Account
		Type        EntryType
		Category    string
		Amount      Money
		Description string
		IsVerified  bool
	}

	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Budget is a monthly target for a category name on one account.
	// IsFixed marks a recurring fixed charge tracked as paid/unpaid.
	Budget struct {
		ID      string  `json:"id"`
		Name    string  `json:"name"`
		Amount  Money   `json:"amount"`
		Account Account `json:"account"`
		IsFixed bool    `json:"isFixed"`
	}

	// IncomeConfig is a recurring monthly income added to totals without
	// a matching transaction.
	IncomeConfig struct {
		ID      string  `json:"id"`
		Name    string  `json:"name"`
		Amount  Money   `json:"amount"`
		Account Account `json:"account"`
	}
)

var (
	ErrInvalidDay     = errors.New("invalid day")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidAccount = errors.New("invalid account")
	ErrInvalidType    = errors.New("invalid entry type")
	ErrEmptyCategory  = errors.New("empty category")
	ErrEmptyName      = errors.New("empty name")
	ErrNotFound       = errors.New("not found")
)

// Accounts returns the accounts in display order.
func Accounts() []Account {
	return []Account{Commun, Emilie, Cedric}
}

func (a Account) Valid() bool {
	switch a {
	case Commun, Emilie, Cedric:
		return true
	}
	return false
}

// ParseAccount accepts an account name case-insensitively.
func ParseAccount(s string) (Account, error) {
	for _, a := range Accounts() {
		if strings.EqualFold(strings.TrimSpace(s), string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccount, s)
}

func (t EntryType) Valid() bool {
	switch t {
	case Fixe, Variable, Revenu:
		return true
	}
	return false
}

// IsExpense reports whether the entry is an outflow.
func (t EntryType) IsExpense() bool {
	return t == Fixe || t == Variable
}

func ParseEntryType(s string) (EntryType, error) {
	for _, t := range []EntryType{Fixe, Variable, Revenu} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Time.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string. An RFC 3339 instant is accepted
// too and keeps only its calendar day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// InMonth reports whether the date falls within the given calendar month.
func (d Date) InMonth(year int, month time.Month) bool {
	y, m, _ := d.Time.Date()
	return y == year && m == month
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (td TransactionDraft) Validate() error {
	if err := td.Date.Validate(); err != nil {
		return err
	}
	if !td.Account.Valid() {
		return ErrInvalidAccount
	}
	if !td.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(td.Category) == "" {
		return ErrEmptyCategory
	}
	return td.Amount.Validate()
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if !b.Account.Valid() {
		return ErrInvalidAccount
	}
	return b.Amount.Validate()
}

func (i IncomeConfig) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if !i.Account.Valid() {
		return ErrInvalidAccount
	}
	return i.Amount.Validate()
}
