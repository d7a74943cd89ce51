package memory

import (
	"context"
	"testing"

	"spendwise/internal/core"
)

func TestPublishSnapshotReplacesMonth(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.PublishSnapshot(ctx, core.Snapshot{Month: "2024-03", Total: 1500, Want: 300, Need: 1200})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected publish: ref=%q err=%v", ref, err)
	}
	ref, err = s.PublishSnapshot(ctx, core.Snapshot{Month: "2024-04", Total: 10})
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected publish: ref=%q err=%v", ref, err)
	}
	ref, err = s.PublishSnapshot(ctx, core.Snapshot{
		Month: "2024-03", Total: 1600.004, Want: 400, Need: 1200,
		TopSuggestion: "Over Budget: Groceries", TopImpact: 200,
	})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected republish: ref=%q err=%v", ref, err)
	}

	rows := s.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	want := []any{"2024-03", 1600.0, 400.0, 1200.0, "Over Budget: Groceries", 200.0}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, rows[0][i], want[i])
		}
	}
}

func TestPublishSnapshotRejectsBadMonth(t *testing.T) {
	if _, err := New().PublishSnapshot(context.Background(), core.Snapshot{Month: "March"}); err == nil {
		t.Fatal("expected error for invalid month")
	}
}
