package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/memfleet/agent-coord/internal/model"
)

// MemStore is an in-memory Store used by tests and offline development. It
// mirrors the server's read side effects (access counters bump on Get) and
// its capacity math over active memories.
type MemStore struct {
	mu       sync.Mutex
	memories map[string]*model.Memory

	// ProjectLimit and OrgLimit configure the capacity snapshot; non-positive
	// limits mean unbounded. OrgBaseUsed is usage from sibling projects.
	ProjectLimit int
	OrgLimit     int
	OrgBaseUsed  int

	// Now is the clock used for timestamps. Tests override it for fixed time.
	Now func() time.Time
}

// NewMemStore creates an empty in-memory store with generous limits.
func NewMemStore() *MemStore {
	return &MemStore{
		memories:     make(map[string]*model.Memory),
		ProjectLimit: 100,
		OrgLimit:     1000,
		Now:          time.Now,
	}
}

func (s *MemStore) Put(ctx context.Context, p PutParams) (*model.Memory, error) {
	if p.Key == "" {
		return nil, &StatusError{Status: 400, Message: "key is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	m, ok := s.memories[p.Key]
	if !ok {
		m = &model.Memory{Key: p.Key, CreatedAt: now}
		s.memories[p.Key] = m
	}
	m.Content = p.Content
	m.Metadata = p.Metadata
	m.Tags = p.Tags
	m.Priority = p.Priority
	m.ExpiresAt = p.ExpiresAt
	m.UpdatedAt = now
	return copyMemory(m), nil
}

func (s *MemStore) Get(ctx context.Context, key string) (*model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[key]
	if !ok {
		return nil, ErrNotFound
	}
	now := s.Now()
	m.AccessCount++
	m.LastAccessedAt = &now
	return copyMemory(m), nil
}

func (s *MemStore) Patch(ctx context.Context, key string, p PatchParams) (*model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[key]
	if !ok {
		return nil, ErrNotFound
	}
	now := s.Now()
	if p.Content != nil {
		m.Content = *p.Content
	}
	if p.Priority != nil {
		m.Priority = *p.Priority
	}
	if p.Pinned != nil {
		if *p.Pinned {
			m.PinnedAt = &now
		} else {
			m.PinnedAt = nil
		}
	}
	if p.Archived != nil {
		if *p.Archived {
			m.ArchivedAt = &now
		} else {
			m.ArchivedAt = nil
		}
	}
	if p.Helpful != nil {
		if *p.Helpful {
			m.HelpfulCount++
		} else {
			m.UnhelpfulCount++
		}
	}
	m.UpdatedAt = now
	return copyMemory(m), nil
}

func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.memories[key]; !ok {
		return ErrNotFound
	}
	delete(s.memories, key)
	return nil
}

func (s *MemStore) List(ctx context.Context, p ListParams) ([]model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Memory
	for _, m := range s.memories {
		if p.Prefix != "" && !strings.HasPrefix(m.Key, p.Prefix) {
			continue
		}
		if p.Query != "" && !strings.Contains(m.Key, p.Query) && !strings.Contains(m.Content, p.Query) {
			continue
		}
		if !hasAllTags(m, p.Tags) {
			continue
		}
		out = append(out, *copyMemory(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}

func (s *MemStore) Capacity(ctx context.Context) (*model.Capacity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	used := 0
	for _, m := range s.memories {
		if m.Active(now) {
			used++
		}
	}
	view := &model.Capacity{
		Used:     used,
		Limit:    s.ProjectLimit,
		OrgUsed:  used + s.OrgBaseUsed,
		OrgLimit: s.OrgLimit,
	}
	if view.Limit > 0 {
		view.UsageRatio = float64(view.Used) / float64(view.Limit)
	}
	view.IsFull = view.OrgLimit > 0 && view.OrgUsed >= view.OrgLimit
	return view, nil
}

func hasAllTags(m *model.Memory, tags []string) bool {
	for _, t := range tags {
		if !m.HasTag(t) {
			return false
		}
	}
	return true
}

func copyMemory(m *model.Memory) *model.Memory {
	out := *m
	out.Tags = append([]string(nil), m.Tags...)
	return &out
}
