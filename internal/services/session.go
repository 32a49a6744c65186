package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"budgetfamille/internal/cache"
	"budgetfamille/internal/core"
	"budgetfamille/internal/ledger"
	"budgetfamille/internal/log"
	"budgetfamille/internal/metrics"
	"budgetfamille/internal/overview"
	"budgetfamille/internal/storage"
)

// DuplicateBudgetError rejects a second budget for the same name and account.
type DuplicateBudgetError struct {
	Name    string
	Account core.Account
}

func (e *DuplicateBudgetError) Error() string {
	return fmt.Sprintf("Un budget %q pour %s existe déjà.", e.Name, e.Account)
}

// BudgetDraft is the user input for a new budget.
type BudgetDraft struct {
	Name    string
	Amount  core.Money
	Account core.Account
	IsFixed bool
}

// IncomeDraft is the user input for a recurring income.
type IncomeDraft struct {
	Name    string
	Amount  core.Money
	Account core.Account
}

// Session owns the four collections for the lifetime of the process. Every
// mutation is persisted before it becomes visible. All methods are safe for
// concurrent use; they run one at a time.
type Session struct {
	mu sync.Mutex

	gw         *storage.Gateway
	ledger     *ledger.Ledger
	categories []core.Category
	budgets    []core.Budget
	incomes    []core.IncomeConfig

	clock   core.Clock
	ids     core.IDGenerator
	logger  *log.Logger
	events  *log.StructuredLogger
	metrics *metrics.Metrics
	views   cache.Cache[overview.MonthView]
}

type Option func(*Session)

func WithClock(c core.Clock) Option { return func(s *Session) { s.clock = c } }

func WithIDGenerator(g core.IDGenerator) Option { return func(s *Session) { s.ids = g } }

func WithLogger(l *log.Logger) Option { return func(s *Session) { s.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Session) { s.metrics = m } }

// WithViewCache caches computed month views until the next mutation or ttl.
func WithViewCache(size int, ttl time.Duration) Option {
	return func(s *Session) {
		if size > 0 && ttl > 0 {
			s.views = cache.NewLRUCache[overview.MonthView](size, ttl)
		}
	}
}

// NewSession loads every collection through gw. A store failure aborts;
// unreadable content has already been replaced by defaults in the gateway.
func NewSession(ctx context.Context, gw *storage.Gateway, opts ...Option) (*Session, error) {
	s := &Session{
		gw:     gw,
		clock:  core.SystemClock{},
		ids:    core.NewID,
		logger: log.New(log.Config{Handler: slog.Default().Handler()}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentSession)
	s.events = log.NewStructuredLogger(s.logger)

	txs, err := storage.Transactions().Load(ctx, gw)
	if err != nil {
		return nil, err
	}
	if s.categories, err = storage.Categories().Load(ctx, gw); err != nil {
		return nil, err
	}
	if s.budgets, err = storage.Budgets().Load(ctx, gw); err != nil {
		return nil, err
	}
	if s.incomes, err = storage.Incomes().Load(ctx, gw); err != nil {
		return nil, err
	}

	s.ledger = ledger.New(txs, func(ctx context.Context, txs []core.Transaction) error {
		return storage.Transactions().Save(ctx, s.gw, txs)
	}, s.ids, s.clock)

	s.logger.InfoContext(ctx, "Session loaded",
		"transactions", len(txs),
		"categories", len(s.categories),
		"budgets", len(s.budgets),
		"incomes", len(s.incomes))
	return s, nil
}

// CacheCleaner exposes the view cache to a cache.Manager, or nil when
// caching is disabled.
func (s *Session) CacheCleaner() cache.Cleaner {
	if c, ok := s.views.(cache.Cleaner); ok {
		return c
	}
	return nil
}

// Ping reports whether the backing store is reachable.
func (s *Session) Ping(ctx context.Context) error {
	return s.gw.Ping(ctx)
}

// mutate runs fn under the lock, then records the outcome and drops cached
// views when something may have changed.
func (s *Session) mutate(ctx context.Context, op string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := fn()
	s.metrics.ObserveOperation(op, time.Since(start), err)
	if err == nil && s.views != nil {
		s.views.Purge()
	}

	var dup *DuplicateBudgetError
	switch {
	case err == nil:
		s.logger.DebugContext(ctx, "Operation applied", log.FieldOperation, op)
	case isUserError(err) || errors.As(err, &dup):
		s.logger.InfoContext(ctx, "Operation rejected", log.FieldOperation, op, log.FieldError, err)
	default:
		s.events.LogError(ctx, "Operation failed", err, log.ComponentSession, op, nil)
	}
	return err
}

func isUserError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount, core.ErrInvalidAccount, core.ErrInvalidType,
		core.ErrInvalidDate, core.ErrEmptyCategory, core.ErrEmptyName,
		core.ErrInvalidDay, core.ErrInvalidMonth, core.ErrNotFound, ErrNotFixedCharge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Session) AddTransaction(ctx context.Context, d core.TransactionDraft) ([]core.Transaction, error) {
	var created []core.Transaction
	err := s.mutate(ctx, "add_transaction", func() error {
		var err error
		created, err = s.ledger.Add(ctx, d)
		return err
	})
	return created, err
}

func (s *Session) DeleteTransaction(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_transaction", func() error {
		return s.ledger.Delete(ctx, id)
	})
}

func (s *Session) ToggleVerified(ctx context.Context, id string) (core.Transaction, error) {
	var tx core.Transaction
	err := s.mutate(ctx, "toggle_verified", func() error {
		var err error
		tx, err = s.ledger.ToggleVerified(ctx, id)
		return err
	})
	return tx, err
}

func (s *Session) AddCategory(ctx context.Context, name string) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name)}
	err := s.mutate(ctx, "add_category", func() error {
		if err := c.Validate(); err != nil {
			return err
		}
		c.ID = s.ids()
		updated := append(append([]core.Category(nil), s.categories...), c)
		if err := storage.Categories().Save(ctx, s.gw, updated); err != nil {
			return err
		}
		s.categories = updated
		return nil
	})
	return c, err
}

// DeleteCategory leaves budgets and transactions using the name untouched.
func (s *Session) DeleteCategory(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_category", func() error {
		updated, ok := without(s.categories, func(c core.Category) bool { return c.ID == id })
		if !ok {
			return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
		}
		if err := storage.Categories().Save(ctx, s.gw, updated); err != nil {
			return err
		}
		s.categories = updated
		return nil
	})
}

func (s *Session) AddBudget(ctx context.Context, d BudgetDraft) (core.Budget, error) {
	b := core.Budget{
		Name:    strings.TrimSpace(d.Name),
		Amount:  d.Amount,
		Account: d.Account,
		IsFixed: d.IsFixed,
	}
	err := s.mutate(ctx, "add_budget", func() error {
		if err := b.Validate(); err != nil {
			return err
		}
		for _, existing := range s.budgets {
			if existing.Name == b.Name && existing.Account == b.Account {
				return &DuplicateBudgetError{Name: b.Name, Account: b.Account}
			}
		}
		b.ID = s.ids()
		updated := append(append([]core.Budget(nil), s.budgets...), b)
		if err := storage.Budgets().Save(ctx, s.gw, updated); err != nil {
			return err
		}
		s.budgets = updated
		return nil
	})
	return b, err
}

func (s *Session) DeleteBudget(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_budget", func() error {
		updated, ok := without(s.budgets, func(b core.Budget) bool { return b.ID == id })
		if !ok {
			return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
		}
		if err := storage.Budgets().Save(ctx, s.gw, updated); err != nil {
			return err
		}
		s.budgets = updated
		return nil
	})
}

func (s *Session) AddIncome(ctx context.Context, d IncomeDraft) (core.IncomeConfig, error) {
	inc := core.IncomeConfig{
		Name:    strings.TrimSpace(d.Name),
		Amount:  d.Amount,
		Account: d.Account,
	}
	err := s.mutate(ctx, "add_income", func() error {
		if err := inc.Validate(); err != nil {
			return err
		}
		inc.ID = s.ids()
		updated := append(append([]core.IncomeConfig(nil), s.incomes...), inc)
		if err := storage.Incomes().Save(ctx, s.gw, updated); err != nil {
			return err
		}
		s.incomes = updated
		return nil
	})
	return inc, err
}

func (s *Session) DeleteIncome(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete_income", func() error {
		updated, ok := without(s.incomes, func(i core.IncomeConfig) bool { return i.ID == id })
		if !ok {
			return fmt.Errorf("income %s: %w", id, core.ErrNotFound)
		}
		if err := storage.Incomes().Save(ctx, s.gw, updated); err != nil {
			return err
		}
		s.incomes = updated
		return nil
	})
}

// without returns a copy of items minus the first element matching.
func without[T any](items []T, match func(T) bool) ([]T, bool) {
	for i, item := range items {
		if match(item) {
			out := make([]T, 0, len(items)-1)
			out = append(out, items[:i]...)
			return append(out, items[i+1:]...), true
		}
	}
	return items, false
}

func (s *Session) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.ledger.Transactions()...)
}

func (s *Session) Categories() []core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.categories...)
}

func (s *Session) Budgets() []core.Budget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Budget(nil), s.budgets...)
}

func (s *Session) Incomes() []core.IncomeConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.IncomeConfig(nil), s.incomes...)
}

// Today returns the session's current calendar day.
func (s *Session) Today() core.Date {
	return s.clock.Today()
}

// MonthView computes, or returns the cached, view of one account and month.
func (s *Session) MonthView(ctx context.Context, q overview.Query) overview.MonthView {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%s:%04d-%02d", q.Account, q.Year, q.Month)
	if s.views != nil {
		if v, ok := s.views.Get(key); ok {
			s.metrics.IncViewCache(true)
			return v
		}
		s.metrics.IncViewCache(false)
	}

	v := overview.Build(q, s.ledger.Transactions(), s.budgets, s.incomes)
	if s.views != nil {
		s.views.Set(key, v)
	}
	s.logger.DebugContext(ctx, "Month view computed", "key", key, "transactions", v.TransactionCount)
	return v
}
