// Package claims implements advisory write-intent claims between agent
// sessions. A claim is an ordinary memory under a reserved key prefix with a
// TTL; it informs other sessions but never blocks them. There is no
// compare-and-swap: two sessions may legitimately race past a conflict
// warning.
package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/memfleet/agent-coord/internal/ratelimit"
	"github.com/memfleet/agent-coord/internal/store"
)

const (
	// Prefix is the reserved key prefix for claim memories.
	Prefix = "agent/claims/"
	// Tag marks a memory as a session claim.
	Tag = "session-claim"
	// DefaultTTL bounds a claim when the caller gives none. Expiry is the
	// only release mechanism; there is no explicit release call.
	DefaultTTL = 30 * time.Minute

	schemaVersion = 1
)

// payload is the versioned claim encoding stored as memory content. Legacy
// entries were a bare JSON array of keys; both forms parse, anything else is
// skipped rather than aborting a batch.
type payload struct {
	V    int      `json:"v"`
	Keys []string `json:"keys"`
}

func encodeKeys(keys []string) string {
	b, _ := json.Marshal(payload{V: schemaVersion, Keys: keys})
	return string(b)
}

func decodeKeys(content string) ([]string, bool) {
	var p payload
	if err := json.Unmarshal([]byte(content), &p); err == nil && p.V == schemaVersion {
		return p.Keys, true
	}
	var legacy []string
	if err := json.Unmarshal([]byte(content), &legacy); err == nil {
		return legacy, true
	}
	return nil, false
}

// Registry stores and queries claims through the shared memory store.
type Registry struct {
	store   store.Store
	limiter *ratelimit.Counter
	now     func() time.Time
}

// NewRegistry creates a registry. Claiming counts as a write-class call
// against the given limiter.
func NewRegistry(s store.Store, limiter *ratelimit.Counter) *Registry {
	return &Registry{store: s, limiter: limiter, now: time.Now}
}

// ClaimResult confirms a stored claim.
type ClaimResult struct {
	Key       string    `json:"key"`
	SessionID string    `json:"session_id"`
	Keys      []string  `json:"keys"`
	ExpiresAt time.Time `json:"expires_at"`
	Message   string    `json:"message"`
}

// Claim advertises that sessionID intends to touch the given keys for the
// TTL. It overwrites any previous claim from the same session and never
// blocks on other sessions' claims. A rate-limited call returns a
// *ratelimit.LimitError without consuming budget.
func (r *Registry) Claim(ctx context.Context, sessionID string, keys []string, ttl time.Duration) (*ClaimResult, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	if len(keys) == 0 {
		return nil, errors.New("at least one key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if allowed, warning := r.limiter.Check(); !allowed {
		return nil, &ratelimit.LimitError{Warning: warning}
	}

	expires := r.now().Add(ttl)
	key := Prefix + sessionID
	if _, err := r.store.Put(ctx, store.PutParams{
		Key:       key,
		Content:   encodeKeys(keys),
		Tags:      []string{Tag},
		ExpiresAt: &expires,
	}); err != nil {
		return nil, fmt.Errorf("store claim: %w", err)
	}
	r.limiter.Increment()

	return &ClaimResult{
		Key:       key,
		SessionID: sessionID,
		Keys:      keys,
		ExpiresAt: expires,
		Message: fmt.Sprintf("claimed %d key(s) for session %s until %s",
			len(keys), sessionID, expires.UTC().Format(time.RFC3339)),
	}, nil
}

// SessionConflict is the per-session breakdown of conflicting keys.
type SessionConflict struct {
	SessionID string    `json:"session_id"`
	Keys      []string  `json:"keys"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CheckResult reports active claims and their overlap with the queried keys.
type CheckResult struct {
	ActiveSessions []string          `json:"active_sessions"`
	Conflicts      []string          `json:"conflicts"`
	BySession      []SessionConflict `json:"by_session"`
}

// Check lists all live claims, excluding expired ones and excludeSessionID,
// and intersects each with the queried keys. Malformed claim payloads are
// skipped. Purely informational: conflicts never prevent a write.
func (r *Registry) Check(ctx context.Context, keys []string, excludeSessionID string) (*CheckResult, error) {
	if len(keys) == 0 {
		return nil, errors.New("at least one key is required")
	}

	memories, err := r.store.List(ctx, store.ListParams{Prefix: Prefix, Tags: []string{Tag}})
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}

	queried := make(map[string]bool, len(keys))
	for _, k := range keys {
		queried[k] = true
	}

	now := r.now()
	res := &CheckResult{ActiveSessions: []string{}, Conflicts: []string{}, BySession: []SessionConflict{}}
	union := make(map[string]bool)
	for i := range memories {
		m := &memories[i]
		sessionID := strings.TrimPrefix(m.Key, Prefix)
		if sessionID == "" || sessionID == excludeSessionID {
			continue
		}
		// A claim without a future expiry is not active, regardless of content.
		if m.ExpiresAt == nil || !m.ExpiresAt.After(now) {
			continue
		}
		claimed, ok := decodeKeys(m.Content)
		if !ok {
			continue
		}

		res.ActiveSessions = append(res.ActiveSessions, sessionID)

		overlap := make(map[string]bool)
		for _, k := range claimed {
			if queried[k] {
				overlap[k] = true
				union[k] = true
			}
		}
		if len(overlap) > 0 {
			res.BySession = append(res.BySession, SessionConflict{
				SessionID: sessionID,
				Keys:      sortedKeys(overlap),
				ExpiresAt: *m.ExpiresAt,
			})
		}
	}

	res.Conflicts = sortedKeys(union)
	sort.Strings(res.ActiveSessions)
	sort.Slice(res.BySession, func(i, j int) bool {
		return res.BySession[i].SessionID < res.BySession[j].SessionID
	})
	return res, nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
