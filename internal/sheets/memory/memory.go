// Package memory is an in-process sheets.LedgerMirror, used when no
// spreadsheet is configured and in tests.
package memory

import (
	"context"
	"sync"

	"budgetfamille/internal/core"
	"budgetfamille/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows [][]any
	runs int
	fail error
}

var _ sheets.LedgerMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// FailWith makes subsequent mirror calls return err; nil restores success.
func (m *Mirror) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *Mirror) MirrorTransactions(ctx context.Context, txs []core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	if m.fail != nil {
		return m.fail
	}
	m.rows = sheets.Rows(txs)
	return nil
}

// Rows returns the last mirrored rows, header included.
func (m *Mirror) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]any(nil), m.rows...)
}

// Runs counts every mirror attempt, failed ones included.
func (m *Mirror) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}
