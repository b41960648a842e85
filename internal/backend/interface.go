package backend

import (
	"context"

	"planledger/internal/amqp"
	"planledger/internal/invalidation"
	"planledger/internal/storage"
)

// CleanupFunc releases what a factory opened.
type CleanupFunc func() error

// BackendResult is a ready store plus the pending-recompute queue chosen for it.
type BackendResult struct {
	Store storage.Store
	Queue invalidation.Queue
	// Broker is set when the queue is RabbitMQ, so workers can consume from it.
	Broker  *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type      BackendType
	QueueType QueueType

	SQLiteDBPath string
	PostgresDSN  string

	RedisAddr     string
	RedisQueueKey string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType selects where plans, installments and ledger entries live.
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// QueueType selects where pending recomputations are kept. StoreQueue keeps
// them in a table of the data backend itself.
type QueueType string

const (
	MemoryQueue QueueType = "memory"
	StoreQueue  QueueType = "store"
	RedisQueue  QueueType = "redis"
	AMQPQueue   QueueType = "amqp"
)

func (qt QueueType) String() string {
	return string(qt)
}

func (qt QueueType) IsValid() bool {
	switch qt {
	case MemoryQueue, StoreQueue, RedisQueue, AMQPQueue:
		return true
	default:
		return false
	}
}
