package history_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"restack/internal/history"
	"restack/internal/testsupport"
)

func TestAppendAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	started := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	rec := history.Record{
		RequestID:   "req-1",
		Operation:   "move",
		Items:       3,
		Completed:   2,
		Failed:      1,
		BytesCopied: 4096,
		Errors:      []string{"Already exists: a.mkv"},
		StartedAt:   started,
		FinishedAt:  started.Add(2 * time.Second),
	}
	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.RequestID != "req-1" || got.Operation != "move" {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Completed != 2 || got.Failed != 1 || got.BytesCopied != 4096 {
		t.Fatalf("counters not preserved: %+v", got)
	}
	if len(got.Errors) != 1 || got.Errors[0] != "Already exists: a.mkv" {
		t.Fatalf("errors not preserved: %v", got.Errors)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("started at %v", got.StartedAt)
	}
}

func TestListNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		rec := history.Record{
			RequestID:  fmt.Sprintf("req-%d", i),
			Operation:  "copy",
			Items:      1,
			Completed:  1,
			StartedAt:  time.Now().UTC(),
			FinishedAt: time.Now().UTC(),
		}
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	records, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RequestID != "req-2" || records[1].RequestID != "req-1" {
		t.Fatalf("records out of order: %s, %s", records[0].RequestID, records[1].RequestID)
	}
}

func TestAppendPrunesBeyondCap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.History.MaxEntries = 2
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		rec := history.Record{
			RequestID:  fmt.Sprintf("req-%d", i),
			Operation:  "copy",
			Items:      1,
			Completed:  1,
			StartedAt:  time.Now().UTC(),
			FinishedAt: time.Now().UTC(),
		}
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected pruned count 2, got %d", count)
	}
	records, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if records[0].RequestID != "req-4" {
		t.Fatalf("newest record = %s", records[0].RequestID)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rec := history.Record{
		RequestID:  "req-persist",
		Operation:  "move",
		Items:      1,
		Completed:  1,
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if err := store.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	count, err := reopened.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record after reopen, got %d", count)
	}
}
