package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"budgetfamille/internal/core"
	"budgetfamille/internal/services"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Body(map[string]int{"n": 2}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d", rr.Code)
	}
	if rr.Header().Get("X-Test") != "1" {
		t.Error("custom header not set")
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	var got map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil || got["n"] != 2 {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(rr)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 {
		t.Errorf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"malformed body", fmt.Errorf("%w: eof", ErrMalformedBody), http.StatusBadRequest},
		{"invalid amount", core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{"wrapped account", fmt.Errorf("add: %w", core.ErrInvalidAccount), http.StatusUnprocessableEntity},
		{"empty name", core.ErrEmptyName, http.StatusUnprocessableEntity},
		{"not a fixed charge", services.ErrNotFixedCharge, http.StatusUnprocessableEntity},
		{"duplicate budget", &services.DuplicateBudgetError{Name: "Courses", Account: core.Commun}, http.StatusConflict},
		{"not found", fmt.Errorf("transaction %q: %w", "x", core.ErrNotFound), http.StatusNotFound},
		{"store failure", errors.New("database is locked"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			ErrorFor(tt.err).Write(rr)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Fatalf("body = %s", rr.Body.String())
			}
		})
	}
}
