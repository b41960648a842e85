package backend

import (
	"context"
	"path/filepath"
	"testing"

	"planledger/internal/config"
	"planledger/internal/invalidation"
	"planledger/internal/storage"
	"planledger/internal/storage/memory"
)

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name      string
		config    Config
		wantErr   bool
		wantStore func(storage.Store) bool
		wantQueue func(invalidation.Queue) bool
	}{
		{
			name:      "memory store with memory queue",
			config:    Config{Type: MemoryBackend, QueueType: MemoryQueue},
			wantStore: func(s storage.Store) bool { _, ok := s.(*memory.Store); return ok },
			wantQueue: func(q invalidation.Queue) bool { _, ok := q.(*invalidation.MemoryQueue); return ok },
		},
		{
			name:      "memory store holding its own queue",
			config:    Config{Type: MemoryBackend, QueueType: StoreQueue},
			wantStore: func(s storage.Store) bool { _, ok := s.(*memory.Store); return ok },
			wantQueue: func(q invalidation.Queue) bool { _, ok := q.(*memory.Store); return ok },
		},
		{
			name:      "sqlite store holding its own queue",
			config:    Config{Type: SQLiteBackend, QueueType: StoreQueue, SQLiteDBPath: filepath.Join(dir, "ledger.db")},
			wantStore: func(s storage.Store) bool { _, ok := s.(*storage.SQLiteRepository); return ok },
			wantQueue: func(q invalidation.Queue) bool { _, ok := q.(*storage.SQLiteRepository); return ok },
		},
		{
			name:    "sqlite without path",
			config:  Config{Type: SQLiteBackend, QueueType: StoreQueue},
			wantErr: true,
		},
		{
			name:    "amqp queue without url",
			config:  Config{Type: MemoryBackend, QueueType: AMQPQueue},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			config:  Config{Type: "sheets", QueueType: MemoryQueue},
			wantErr: true,
		},
	}

	f := NewFactory(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(ctx, tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer func() {
				if err := res.Cleanup(); err != nil {
					t.Errorf("Cleanup() error = %v", err)
				}
			}()
			if !tt.wantStore(res.Store) {
				t.Errorf("unexpected store %T", res.Store)
			}
			if !tt.wantQueue(res.Queue) {
				t.Errorf("unexpected queue %T", res.Queue)
			}
			if res.Broker != nil {
				t.Error("broker set without amqp queue")
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "postgres", QueueBackend: "redis", PostgresDSN: "dsn", RedisAddr: "r:6379", RedisQueueKey: "k"}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != PostgresBackend || got.QueueType != RedisQueue || got.PostgresDSN != "dsn" || got.RedisQueueKey != "k" {
		t.Errorf("FromAppConfig() = %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sqlite", QueueBackend: "kafka"}); err == nil {
		t.Error("expected error for unknown queue type")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}
