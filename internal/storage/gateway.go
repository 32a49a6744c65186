package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"budgetfamille/internal/log"
)

// SaveListener is notified after a collection was written successfully.
type SaveListener interface {
	CollectionSaved(ctx context.Context, key string, count int)
}

// Gateway wraps a Store and fans out save notifications.
type Gateway struct {
	store     Store
	listeners []SaveListener
}

func NewGateway(store Store, listeners ...SaveListener) *Gateway {
	return &Gateway{store: store, listeners: listeners}
}

// AddListener registers a listener for subsequent saves.
func (g *Gateway) AddListener(l SaveListener) {
	g.listeners = append(g.listeners, l)
}

// Store returns the underlying store.
func (g *Gateway) Store() Store { return g.store }

// Ping checks the underlying store when it supports it.
func (g *Gateway) Ping(ctx context.Context) error {
	if p, ok := g.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Migration upgrades one raw record in place. Apply must be idempotent
// since migrations run on every load.
type Migration struct {
	Name  string
	Apply func(rec map[string]json.RawMessage)
}

// DefaultField returns a migration that sets field to value when it is
// missing, null or an empty string.
func DefaultField(field string, value any) Migration {
	encoded, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("storage: default for %s: %v", field, err))
	}
	return Migration{
		Name: "default_" + field,
		Apply: func(rec map[string]json.RawMessage) {
			raw, ok := rec[field]
			if !ok || isBlank(raw) {
				rec[field] = encoded
			}
		},
	}
}

func isBlank(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

// Collection describes one persisted list: its key, the value used when
// nothing usable is stored, and the record migrations run on load.
type Collection[T any] struct {
	Key        string
	Defaults   func() []T
	Migrations []Migration
}

// Load reads the collection. A missing key or unreadable content yields the
// defaults; only store failures are returned.
func (c Collection[T]) Load(ctx context.Context, gw *Gateway) ([]T, error) {
	raw, err := gw.store.Get(ctx, c.Key)
	if errors.Is(err, ErrNotFound) {
		return c.defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.Key, err)
	}

	items, err := c.decode(raw)
	if err != nil {
		slog.WarnContext(ctx, "Stored collection unreadable, using defaults",
			log.FieldComponent, log.ComponentStorage,
			"key", c.Key,
			"error", err)
		return c.defaults(), nil
	}
	return items, nil
}

func (c Collection[T]) decode(raw []byte) ([]T, error) {
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("not an array of objects: %w", err)
	}
	if records == nil {
		return nil, errors.New("null collection")
	}

	items := make([]T, 0, len(records))
	for i, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("record %d is null", i)
		}
		for _, m := range c.Migrations {
			m.Apply(rec)
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		var item T
		if err := json.Unmarshal(b, &item); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (c Collection[T]) defaults() []T {
	if c.Defaults == nil {
		return []T{}
	}
	return c.Defaults()
}

// Save overwrites the whole collection and notifies listeners.
func (c Collection[T]) Save(ctx context.Context, gw *Gateway, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.Key, err)
	}
	if err := gw.store.Put(ctx, c.Key, b); err != nil {
		return fmt.Errorf("save %s: %w", c.Key, err)
	}
	for _, l := range gw.listeners {
		l.CollectionSaved(ctx, c.Key, len(items))
	}
	return nil
}
