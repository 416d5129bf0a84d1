package oplog

import (
	"context"
	"testing"
	"time"

	"github.com/optmon/option-data/internal/config"
	"github.com/optmon/option-data/internal/model"
)

func testConfig() config.OplogConfig {
	return config.OplogConfig{
		BatchSize:     100, // Large so tests control flushing
		FlushInterval: time.Hour,
		BufferSize:    5,
	}
}

func TestRecorder_Record_Batches(t *testing.T) {
	r := NewRecorder(testConfig(), nil, nil)

	r.Record(model.SystemLogEntry{Level: "info", Module: "writer", Message: "m"})
	r.Record(model.SystemLogEntry{Level: "warn", Module: "health", Message: "n"})

	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	if len(r.batch) != 2 {
		t.Errorf("batch length = %d, want 2", len(r.batch))
	}
	if r.batch[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not defaulted")
	}
}

func TestRecorder_BufferBounded_DropsOldest(t *testing.T) {
	r := NewRecorder(testConfig(), nil, nil)

	for i := 0; i < 8; i++ {
		r.Record(model.SystemLogEntry{Level: "info", Module: "writer", Message: string(rune('a' + i))})
	}

	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	if len(r.batch) != 5 {
		t.Fatalf("batch length = %d, want 5 (buffer size)", len(r.batch))
	}
	if r.batch[0].Message != "d" {
		t.Errorf("oldest surviving entry = %q, want %q", r.batch[0].Message, "d")
	}
	if r.metrics.Dropped != 3 {
		t.Errorf("Dropped = %d, want 3", r.metrics.Dropped)
	}
}

func TestRecorder_FlushWithoutStoreDrops(t *testing.T) {
	r := NewRecorder(testConfig(), nil, nil)

	r.Record(model.SystemLogEntry{Level: "info", Module: "writer", Message: "m"})
	r.flush()

	stats := r.Stats()
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", stats.Dropped)
	}

	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	if len(r.batch) != 0 {
		t.Errorf("batch length after flush = %d, want 0", len(r.batch))
	}
}

func TestRecorder_Lifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.FlushInterval = 50 * time.Millisecond
	r := NewRecorder(cfg, nil, nil)

	r.Start(context.Background())
	time.Sleep(20 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.Stop(stopCtx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}
}
