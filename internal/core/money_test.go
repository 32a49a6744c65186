package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"0.001", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestMoneyString(t *testing.T) {
	if got := NewMoney(12, 5).String(); got != "12.05" {
		t.Fatalf("expected 12.05, got %s", got)
	}
	if got := (Money{Cents: -5000}).String(); got != "-50.00" {
		t.Fatalf("expected -50.00, got %s", got)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(NewMoney(600, 0))
	if err != nil || string(b) != "600" {
		t.Fatalf("expected 600, got %s (err=%v)", b, err)
	}

	cases := []struct {
		in   string
		want int64
	}{
		{`12.5`, 1250},
		{`"12.50"`, 1250},
		{`"12,5"`, 1250},
		{`0.335`, 34},
		{`850`, 85000},
		{`null`, 0},
	}
	for _, tc := range cases {
		var m Money
		if err := json.Unmarshal([]byte(tc.in), &m); err != nil {
			t.Fatalf("%s: unexpected error %v", tc.in, err)
		}
		if m.Cents != tc.want {
			t.Fatalf("%s: expected %d cents, got %d", tc.in, tc.want, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"abc"`), &m); err == nil {
		t.Fatalf("expected error for non numeric amount")
	}
	for _, in := range []string{`1e30`, `-1e30`, `"92233720368547758.08"`} {
		m = Money{Cents: 42}
		if err := json.Unmarshal([]byte(in), &m); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%s: expected ErrInvalidAmount, got %v", in, err)
		}
		if m.Cents != 42 {
			t.Fatalf("%s: out of range amount must not be stored, got %d", in, m.Cents)
		}
	}
}
