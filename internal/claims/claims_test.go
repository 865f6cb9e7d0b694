package claims

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/memfleet/agent-coord/internal/ratelimit"
	"github.com/memfleet/agent-coord/internal/store"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) (*Registry, *store.MemStore, *ratelimit.Counter) {
	t.Helper()
	s := store.NewMemStore()
	s.Now = func() time.Time { return now }
	limiter := ratelimit.New(100)
	r := NewRegistry(s, limiter)
	r.now = func() time.Time { return now }
	return r, s, limiter
}

func TestClaimStoresTaggedMemory(t *testing.T) {
	ctx := context.Background()
	r, s, limiter := newTestRegistry(t)

	res, err := r.Claim(ctx, "s1", []string{"a/b", "c/d"}, 0)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Key != "agent/claims/s1" {
		t.Errorf("unexpected key %q", res.Key)
	}
	if want := now.Add(DefaultTTL); !res.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, res.ExpiresAt)
	}

	mem, err := s.Get(ctx, "agent/claims/s1")
	if err != nil {
		t.Fatalf("get claim: %v", err)
	}
	if !mem.HasTag(Tag) {
		t.Errorf("claim memory missing tag %q", Tag)
	}
	if mem.ExpiresAt == nil {
		t.Error("claim memory must carry an expiry")
	}

	if got := limiter.Status().CallsMade; got != 1 {
		t.Errorf("claim must consume one write call, got %d", got)
	}
}

func TestClaimValidation(t *testing.T) {
	ctx := context.Background()
	r, _, limiter := newTestRegistry(t)

	if _, err := r.Claim(ctx, "", []string{"a"}, 0); err == nil {
		t.Error("expected error without session id")
	}
	if _, err := r.Claim(ctx, "s1", nil, 0); err == nil {
		t.Error("expected error without keys")
	}
	if got := limiter.Status().CallsMade; got != 0 {
		t.Errorf("validation failures must not consume budget, got %d", got)
	}
}

func TestClaimRateLimited(t *testing.T) {
	ctx := context.Background()
	r, _, limiter := newTestRegistry(t)
	for i := 0; i < 100; i++ {
		limiter.Increment()
	}

	_, err := r.Claim(ctx, "s1", []string{"a"}, 0)
	var limitErr *ratelimit.LimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected LimitError, got %v", err)
	}
	if got := limiter.Status().CallsMade; got != 100 {
		t.Errorf("rejected claim must not consume budget, got %d", got)
	}
}

func TestClaimSupersedesPrevious(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	r.Claim(ctx, "s1", []string{"old/key"}, 0)
	r.Claim(ctx, "s1", []string{"new/key"}, 0)

	res, err := r.Check(ctx, []string{"old/key", "new/key"}, "")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0] != "new/key" {
		t.Errorf("expected only the superseding claim, got %v", res.Conflicts)
	}
}

func TestCheckIntersection(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	r.Claim(ctx, "s1", []string{"a/b", "c/d"}, 0)
	r.Claim(ctx, "s2", []string{"c/d", "e/f"}, 0)

	res, err := r.Check(ctx, []string{"c/d"}, "s2")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0] != "c/d" {
		t.Errorf("expected conflicts [c/d], got %v", res.Conflicts)
	}
	if len(res.BySession) != 1 || res.BySession[0].SessionID != "s1" {
		t.Errorf("conflict must be attributed to s1 only, got %+v", res.BySession)
	}
	if len(res.ActiveSessions) != 1 || res.ActiveSessions[0] != "s1" {
		t.Errorf("expected active sessions [s1], got %v", res.ActiveSessions)
	}
}

func TestCheckNoOverlap(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	r.Claim(ctx, "s1", []string{"a/b"}, 0)

	res, err := r.Check(ctx, []string{"x/y"}, "")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(res.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %v", res.Conflicts)
	}
	if len(res.ActiveSessions) != 1 {
		t.Errorf("non-conflicting session still counts as active, got %v", res.ActiveSessions)
	}
	if len(res.BySession) != 0 {
		t.Errorf("breakdown must only list conflicting sessions, got %+v", res.BySession)
	}
}

func TestCheckEmptyResultMarshalsEmptyArrays(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	res, err := r.Check(ctx, []string{"x/y"}, "")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"active_sessions":[]`, `"conflicts":[]`, `"by_session":[]`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("expected %s in %s", want, b)
		}
	}
}

func TestCheckExcludesExpiredClaims(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newTestRegistry(t)

	expired := now.Add(-time.Minute)
	s.Put(ctx, store.PutParams{
		Key:       Prefix + "s1",
		Content:   encodeKeys([]string{"a/b"}),
		Tags:      []string{Tag},
		ExpiresAt: &expired,
	})

	res, err := r.Check(ctx, []string{"a/b"}, "")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(res.Conflicts) != 0 || len(res.ActiveSessions) != 0 {
		t.Errorf("expired claim must be invisible, got %+v", res)
	}
}

func TestCheckSkipsMalformedClaims(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newTestRegistry(t)

	future := now.Add(time.Hour)
	s.Put(ctx, store.PutParams{
		Key:       Prefix + "broken",
		Content:   "not json at all",
		Tags:      []string{Tag},
		ExpiresAt: &future,
	})
	r.Claim(ctx, "s1", []string{"a/b"}, 0)

	res, err := r.Check(ctx, []string{"a/b"}, "")
	if err != nil {
		t.Fatalf("malformed claim must not abort the check: %v", err)
	}
	if len(res.Conflicts) != 1 {
		t.Errorf("expected the valid claim to still conflict, got %v", res.Conflicts)
	}
}

func TestDecodeLegacyBareArray(t *testing.T) {
	keys, ok := decodeKeys(`["a/b","c/d"]`)
	if !ok {
		t.Fatal("legacy bare array must still parse")
	}
	if len(keys) != 2 || keys[0] != "a/b" {
		t.Errorf("unexpected keys %v", keys)
	}

	if _, ok := decodeKeys(`{"v":99,"keys":["a"]}`); ok {
		t.Error("unknown schema version must be skipped")
	}
	if _, ok := decodeKeys(`{`); ok {
		t.Error("truncated payload must be skipped")
	}
}

func TestCheckValidation(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRegistry(t)

	if _, err := r.Check(ctx, nil, ""); err == nil {
		t.Error("expected error without keys")
	}
}
