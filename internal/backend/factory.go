package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"planledger/internal/amqp"
	"planledger/internal/invalidation"
	"planledger/internal/log"
	"planledger/internal/storage"
	"planledger/internal/storage/memory"
	"planledger/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.ForComponent(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the data store and then the queue. If the queue cannot
// be opened the store is closed again.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	res := &BackendResult{Store: store}
	var closers []func() error
	switch config.QueueType {
	case MemoryQueue:
		res.Queue = invalidation.NewMemoryQueue()
	case StoreQueue:
		q, ok := store.(invalidation.Queue)
		if !ok {
			_ = store.Close()
			return nil, fmt.Errorf("%s backend cannot hold the pending queue", config.Type)
		}
		res.Queue = q
	case RedisQueue:
		rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.RedisAddr, err)
		}
		res.Queue = invalidation.NewRedisQueue(rdb, config.RedisQueueKey)
		closers = append(closers, rdb.Close)
	case AMQPQueue:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		res.Queue = client
		res.Broker = client
		closers = append(closers, client.Close)
	default:
		_ = store.Close()
		return nil, fmt.Errorf("unsupported queue type: %s", config.QueueType)
	}
	closers = append(closers, store.Close)

	res.Cleanup = func() error {
		var errs []error
		for _, c := range closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized backend",
		"data_backend", config.Type.String(),
		"queue_backend", config.QueueType.String())
	return res, nil
}

func (f *DefaultFactory) createStore(config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case PostgresBackend:
		repo, err := postgres.Open(config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
		}
		return repo, nil
	case MemoryBackend:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
