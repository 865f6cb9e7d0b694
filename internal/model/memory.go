// Package model defines the core memory and session data types.
package model

import "time"

// Memory represents a stored memory entry. Keys are unique within a project;
// the server owns persistence, uniqueness, and the read-side counters.
type Memory struct {
	Key            string         `json:"key"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Priority       int            `json:"priority"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	LastAccessedAt *time.Time     `json:"last_accessed_at,omitempty"`
	AccessCount    int            `json:"access_count"`
	HelpfulCount   int            `json:"helpful_count"`
	UnhelpfulCount int            `json:"unhelpful_count"`
	PinnedAt       *time.Time     `json:"pinned_at,omitempty"`
	ArchivedAt     *time.Time     `json:"archived_at,omitempty"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
}

// Pinned reports whether the memory is exempt from staleness.
func (m *Memory) Pinned() bool { return m.PinnedAt != nil }

// Archived reports whether the memory is excluded from active counts.
func (m *Memory) Archived() bool { return m.ArchivedAt != nil }

// Expired reports whether the memory's expiry has passed. Nothing actively
// purges expired entries; readers must treat them as invalid.
func (m *Memory) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now)
}

// Active reports whether the memory counts toward capacity and health.
func (m *Memory) Active(now time.Time) bool {
	return !m.Archived() && !m.Expired(now)
}

// HasTag reports whether the memory carries the given tag.
func (m *Memory) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Capacity is the two-scope usage snapshot returned by the store. It is
// recomputed per admission check and never cached across requests.
type Capacity struct {
	Used       int     `json:"used"`
	Limit      int     `json:"limit"`
	OrgUsed    int     `json:"orgUsed"`
	OrgLimit   int     `json:"orgLimit"`
	IsFull     bool    `json:"isFull"`
	UsageRatio float64 `json:"usageRatio"`
}

// SessionLogSchema is the current SessionLog content encoding version.
const SessionLogSchema = 1

// SessionLog is one row per agent session, persisted through the memory
// store as JSON content keyed by session id.
type SessionLog struct {
	Schema      int        `json:"schema"`
	SessionID   string     `json:"session_id"`
	Branch      string     `json:"branch,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	KeysRead    []string   `json:"keys_read,omitempty"`
	KeysWritten []string   `json:"keys_written,omitempty"`
	ToolsUsed   []string   `json:"tools_used,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// Open reports whether the session has not ended yet.
func (s *SessionLog) Open() bool { return s.EndedAt == nil }
