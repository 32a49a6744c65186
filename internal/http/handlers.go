package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"budgetfamille/internal/log"
	"budgetfamille/internal/overview"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the backing store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{"store": "ok"}
	if err := s.session.Ping(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if s.limiter != nil {
		checks["rate_limiter"] = map[string]any{
			"active_clients": s.limiter.ActiveClients(),
			"rejected":       s.limiter.Rejected(),
		}
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleListTransactions returns the whole ledger, or one month view's
// transactions when account, year or month is given.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs := s.session.Transactions()
	if hasMonthFilter(r.URL.Query()) {
		q, err := ParseMonthQuery(r.URL.Query(), s.session.Today())
		if err != nil {
			ErrorFor(err).Write(w)
			return
		}
		txs = overview.MonthlyTransactions(txs, q)
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	draft, err := parseTransactionDraft(p, s.session.Today())
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}

	created, err := s.session.AddTransaction(r.Context(), draft)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	for i, tx := range created {
		s.events.LogTransactionCreated(r.Context(), tx.ID, string(tx.Account), string(tx.Type), tx.Category, tx.Amount.Cents, i > 0)
	}
	NewJSONResponse().Status(http.StatusCreated).Body(created).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.session.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleToggleVerified(w http.ResponseWriter, r *http.Request) {
	tx, err := s.session.ToggleVerified(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Body(tx).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.session.Categories()).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	c, err := s.session.AddCategory(r.Context(), p.Get("name"))
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.session.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.session.Budgets()).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	draft, err := parseBudgetDraft(p)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	b, err := s.session.AddBudget(r.Context(), draft)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(b).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.session.DeleteBudget(r.Context(), chi.URLParam(r, "id")); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleToggleFixedCharge(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.ToggleFixedCharge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.session.Incomes()).Write(w)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	p, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	draft, err := parseIncomeDraft(p)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	inc, err := s.session.AddIncome(r.Context(), draft)
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(inc).Write(w)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.session.DeleteIncome(r.Context(), chi.URLParam(r, "id")); err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleOverview serves the month view; defaults are Commun and the
// current month.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	q, err := ParseMonthQuery(r.URL.Query(), s.session.Today())
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Body(s.session.MonthView(r.Context(), q)).Write(w)
}

func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		ErrorFor(err).Write(w)
		return nil, false
	}
	return p, true
}
