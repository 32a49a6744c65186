// Package backend builds the persistence gateway for the configured store.
package backend

import (
	"context"

	"budgetfamille/internal/storage"
)

// CleanupFunc releases the resources opened by the factory.
type CleanupFunc func() error

// BackendResult is a ready gateway and the cleanup for everything behind it.
type BackendResult struct {
	Gateway *storage.Gateway
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// SQLite
	SQLiteDBPath string

	// Memory: directory of <key>.json seed files
	DataDirectory string

	// AMQP. Publish attaches a collection saved notifier to the gateway.
	Publish      bool
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
