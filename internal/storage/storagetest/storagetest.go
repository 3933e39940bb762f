// Package storagetest holds a conformance suite shared by the backends.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/FranksOps/sitehunt/internal/storage"
)

// Records returns three records from two runs, oldest first.
func Records(now time.Time) []*storage.LookupRecord {
	return []*storage.LookupRecord{
		{
			ID: "rec-1", RunID: "run-a", Workbook: "expo.xlsx", Row: 9,
			Company: "Acme Widgets", Query: "Acme Widgets", Website: "https://acme.com",
			Engine: "duckduckgo", Found: true, Attempts: 1,
			Duration: 12 * time.Second, CreatedAt: now.Add(-2 * time.Minute),
		},
		{
			ID: "rec-2", RunID: "run-a", Workbook: "expo.xlsx", Row: 10,
			Company: "Globex", Query: "Globex", Website: "Search failed after retries",
			Found: false, Attempts: 2, BlockedBy: []string{"duckduckgo", "startpage"},
			Duration: 30 * time.Second, CreatedAt: now.Add(-time.Minute),
		},
		{
			ID: "rec-3", RunID: "run-b", Workbook: "expo.xlsx", Row: 11,
			Company: "Initech", Query: "Initech", Website: "https://initech.io",
			Engine: "startpage", Found: true, Attempts: 2, BlockedBy: []string{"duckduckgo"},
			Duration: 20 * time.Second, CreatedAt: now,
		},
	}
}

// Run saves Records into b and checks Query semantics.
func Run(t *testing.T, b storage.Backend) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for _, rec := range Records(now) {
		if err := b.Save(ctx, rec); err != nil {
			t.Fatalf("save %s: %v", rec.ID, err)
		}
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].ID != "rec-3" || all[2].ID != "rec-1" {
		t.Errorf("expected newest first, got %s..%s", all[0].ID, all[2].ID)
	}

	got := all[1]
	if got.Company != "Globex" || got.Row != 10 || got.Attempts != 2 || got.Found {
		t.Errorf("unexpected record %+v", got)
	}
	if len(got.BlockedBy) != 2 || got.BlockedBy[1] != "startpage" {
		t.Errorf("expected blocked_by round trip, got %v", got.BlockedBy)
	}
	if got.Duration != 30*time.Second {
		t.Errorf("expected duration 30s, got %v", got.Duration)
	}
	if !got.CreatedAt.Equal(now.Add(-time.Minute)) {
		t.Errorf("expected created_at %v, got %v", now.Add(-time.Minute), got.CreatedAt)
	}

	byRun, err := b.Query(ctx, storage.Filter{RunID: "run-a"})
	if err != nil || len(byRun) != 2 {
		t.Errorf("expected 2 records for run-a, got %d (%v)", len(byRun), err)
	}

	found := true
	hits, err := b.Query(ctx, storage.Filter{Found: &found})
	if err != nil || len(hits) != 2 {
		t.Errorf("expected 2 found records, got %d (%v)", len(hits), err)
	}

	named, err := b.Query(ctx, storage.Filter{Company: "initech"})
	if err != nil || len(named) != 1 || named[0].Website != "https://initech.io" {
		t.Errorf("expected company filter to match Initech, got %v (%v)", named, err)
	}

	since := now.Add(-90 * time.Second)
	recent, err := b.Query(ctx, storage.Filter{Since: &since})
	if err != nil || len(recent) != 2 {
		t.Errorf("expected 2 recent records, got %d (%v)", len(recent), err)
	}

	page, err := b.Query(ctx, storage.Filter{Limit: 1, Offset: 1})
	if err != nil || len(page) != 1 || page[0].ID != "rec-2" {
		t.Errorf("expected rec-2 on page 2, got %v (%v)", page, err)
	}
}
