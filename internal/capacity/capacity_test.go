package capacity

import (
	"context"
	"strings"
	"testing"

	"github.com/memfleet/agent-coord/internal/model"
	"github.com/memfleet/agent-coord/internal/store"
)

func TestClassifyAvailable(t *testing.T) {
	d := Classify(model.Capacity{Used: 10, Limit: 50, OrgUsed: 100, OrgLimit: 1000})

	if d.IsFull || d.IsSoftFull || d.IsApproaching {
		t.Errorf("expected available, got %+v", d)
	}
	if !strings.Contains(d.Guidance, "available") {
		t.Errorf("unexpected guidance %q", d.Guidance)
	}
	if !strings.Contains(d.Guidance, "10/50") || !strings.Contains(d.Guidance, "100/1000") {
		t.Errorf("guidance missing figures: %q", d.Guidance)
	}
}

func TestClassifySoftFull(t *testing.T) {
	// Project at its limit, org well under: soft block only.
	d := Classify(model.Capacity{Used: 50, Limit: 50, OrgUsed: 300, OrgLimit: 1000})

	if !d.IsSoftFull {
		t.Error("expected is_soft_full")
	}
	if d.IsFull {
		t.Error("expected is_full false")
	}
	if !strings.Contains(d.Guidance, "project memory is full") {
		t.Errorf("unexpected guidance %q", d.Guidance)
	}
}

func TestClassifyOrgFullWinsOverProjectHeadroom(t *testing.T) {
	d := Classify(model.Capacity{Used: 10, Limit: 50, OrgUsed: 1000, OrgLimit: 1000})

	if !d.IsFull {
		t.Error("expected is_full")
	}
	if d.IsSoftFull {
		t.Error("soft-full must not be set when org is full")
	}
	if !strings.Contains(d.Guidance, "organization memory is full") {
		t.Errorf("org-full guidance must win, got %q", d.Guidance)
	}
}

func TestClassifyApproaching(t *testing.T) {
	d := Classify(model.Capacity{Used: 40, Limit: 50, OrgUsed: 100, OrgLimit: 1000})

	if !d.IsApproaching {
		t.Error("expected is_approaching at 80% project usage")
	}
	if d.IsFull || d.IsSoftFull {
		t.Errorf("expected only approaching, got %+v", d)
	}
}

func TestUnboundedLimitNeverBlocks(t *testing.T) {
	d := Classify(model.Capacity{Used: 9999, Limit: 0, OrgUsed: 9999, OrgLimit: -1})

	if d.IsFull || d.IsSoftFull || d.IsApproaching {
		t.Errorf("unbounded limits must never block, got %+v", d)
	}
	if d.ProjectUsage != 0 || d.OrgUsage != 0 {
		t.Errorf("unbounded usage must be 0, got %v/%v", d.ProjectUsage, d.OrgUsage)
	}
}

func TestGovernorCheckUsesLiveCounts(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	s.ProjectLimit = 2
	s.OrgLimit = 10

	g := NewGovernor(s)

	d, err := g.Check(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.IsSoftFull {
		t.Error("empty store must not be soft-full")
	}

	s.Put(ctx, store.PutParams{Key: "a", Content: "x"})
	s.Put(ctx, store.PutParams{Key: "b", Content: "y"})

	d, err = g.Check(ctx)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !d.IsSoftFull {
		t.Errorf("expected soft-full at 2/2, got %+v", d)
	}
}

func TestArchivedExcludedFromUsedCount(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	s.ProjectLimit = 2

	s.Put(ctx, store.PutParams{Key: "a", Content: "x"})
	s.Put(ctx, store.PutParams{Key: "b", Content: "y"})
	archived := true
	if _, err := s.Patch(ctx, "b", store.PatchParams{Archived: &archived}); err != nil {
		t.Fatalf("patch: %v", err)
	}

	view, err := s.Capacity(ctx)
	if err != nil {
		t.Fatalf("capacity: %v", err)
	}
	if view.Used != 1 {
		t.Errorf("expected used 1 after archiving, got %d", view.Used)
	}
}
