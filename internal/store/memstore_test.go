package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemStorePutAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	if _, err := s.Put(ctx, PutParams{Key: "a/b", Content: "hello", Tags: []string{"t1"}}); err != nil {
		t.Fatalf("put: %v", err)
	}

	mem, err := s.Get(ctx, "a/b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if mem.Content != "hello" {
		t.Errorf("expected hello, got %q", mem.Content)
	}
	if mem.AccessCount != 1 || mem.LastAccessedAt == nil {
		t.Errorf("get must bump access counters, got %+v", mem)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStorePutOverwritePreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return base }

	s.Put(ctx, PutParams{Key: "k", Content: "v1"})
	s.Now = func() time.Time { return base.Add(time.Hour) }
	mem, err := s.Put(ctx, PutParams{Key: "k", Content: "v2"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mem.CreatedAt.Equal(base) {
		t.Errorf("overwrite must preserve created_at, got %v", mem.CreatedAt)
	}
	if !mem.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("overwrite must bump updated_at, got %v", mem.UpdatedAt)
	}
}

func TestMemStoreListFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	s.Put(ctx, PutParams{Key: "agent/claims/s1", Content: "x", Tags: []string{"session-claim"}})
	s.Put(ctx, PutParams{Key: "agent/sessions/s1", Content: "y", Tags: []string{"session-log"}})
	s.Put(ctx, PutParams{Key: "notes/arch", Content: "z"})

	byPrefix, _ := s.List(ctx, ListParams{Prefix: "agent/"})
	if len(byPrefix) != 2 {
		t.Errorf("expected 2 by prefix, got %d", len(byPrefix))
	}

	byTag, _ := s.List(ctx, ListParams{Tags: []string{"session-claim"}})
	if len(byTag) != 1 || byTag[0].Key != "agent/claims/s1" {
		t.Errorf("unexpected tag filter result %+v", byTag)
	}

	byQuery, _ := s.List(ctx, ListParams{Query: "arch"})
	if len(byQuery) != 1 || byQuery[0].Key != "notes/arch" {
		t.Errorf("unexpected query result %+v", byQuery)
	}
}

func TestMemStorePatchFlags(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	s.Put(ctx, PutParams{Key: "k", Content: "v"})

	yes := true
	mem, err := s.Patch(ctx, "k", PatchParams{Pinned: &yes})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !mem.Pinned() {
		t.Error("expected pinned")
	}

	no := false
	mem, _ = s.Patch(ctx, "k", PatchParams{Pinned: &no})
	if mem.Pinned() {
		t.Error("expected unpinned")
	}

	helpful := true
	mem, _ = s.Patch(ctx, "k", PatchParams{Helpful: &helpful})
	if mem.HelpfulCount != 1 {
		t.Errorf("expected helpful count 1, got %d", mem.HelpfulCount)
	}
}

func TestMemStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	s.Put(ctx, PutParams{Key: "k", Content: "v"})
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
