package analytics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ira-chat/ira/internal/model"
)

func openTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := OpenRepo(filepath.Join(t.TempDir(), "analytics.db"))
	if err != nil {
		t.Fatalf("OpenRepo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func event(id string, tsNs int64) Event {
	return Event{
		ID: id, TsNs: tsNs, UserID: "u1", Tier: model.TierFree,
		Pool: model.PoolOverflow, Action: "forward", Reason: "ok",
	}
}

func TestInsertBatchAndCount(t *testing.T) {
	repo := openTestRepo(t)

	n, err := repo.InsertBatch([]Event{event("a", 10), event("b", 20), event("c", 30)})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if n != 3 {
		t.Fatalf("inserted %d, want 3", n)
	}

	// Duplicate ids are skipped, not fatal.
	n, err = repo.InsertBatch([]Event{event("b", 20), event("d", 40)})
	if err != nil {
		t.Fatal(err)
	}
	total, err := repo.CountSince(0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Fatalf("total = %d, want 4", total)
	}

	if n, _ := repo.InsertBatch(nil); n != 0 {
		t.Fatalf("empty batch inserted %d", n)
	}
}

func TestPrune(t *testing.T) {
	repo := openTestRepo(t)
	if _, err := repo.InsertBatch([]Event{event("a", 10), event("b", 20), event("c", 30)}); err != nil {
		t.Fatal(err)
	}

	removed, err := repo.Prune(25)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Fatalf("pruned %d, want 2", removed)
	}
	total, _ := repo.CountSince(0)
	if total != 1 {
		t.Fatalf("remaining = %d, want 1", total)
	}
}

func TestServiceFlushesOnStop(t *testing.T) {
	repo := openTestRepo(t)
	svc := NewService(ServiceConfig{
		Repo:          repo,
		QueueSize:     64,
		FlushBatch:    32,
		FlushInterval: time.Hour, // only the drain on Stop flushes
	})
	svc.Start()

	for i := 0; i < 10; i++ {
		svc.Emit(event(string(rune('a'+i)), int64(i)))
	}
	svc.Stop()

	total, err := repo.CountSince(0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 10 {
		t.Fatalf("flushed %d events, want 10", total)
	}
}

func TestServiceDropsOnOverflowWithoutBlocking(t *testing.T) {
	repo := openTestRepo(t)
	svc := NewService(ServiceConfig{
		Repo:          repo,
		QueueSize:     4,
		FlushBatch:    2,
		FlushInterval: time.Hour,
	})
	// Not started: the queue can only absorb its capacity.

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			svc.Emit(event(string(rune('a'+i)), int64(i)))
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full queue")
	}

	svc.Start()
	svc.Stop()
	total, _ := repo.CountSince(0)
	if total != 4 {
		t.Fatalf("persisted %d events, want the queue capacity of 4", total)
	}
}
