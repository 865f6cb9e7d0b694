// Package health scores stored memories for freshness and utility, buckets
// them into health tiers, and surfaces stale or expiring candidates for
// cleanup tooling. Everything here is read-only and out of the write path.
package health

import (
	"context"
	"sort"
	"time"

	"github.com/memfleet/agent-coord/internal/model"
	"github.com/memfleet/agent-coord/internal/store"
)

const (
	factorMax = 25.0

	staleWindow    = 30 * 24 * time.Hour
	expiringWindow = 7 * 24 * time.Hour
	candidateCap   = 50
	growthWeeks    = 12

	reportListLimit = 1000
)

// Health tier names, from worst to best.
const (
	BucketCritical = "critical"
	BucketLow      = "low"
	BucketMedium   = "medium"
	BucketHealthy  = "healthy"
)

// Score rates a memory 0-100 from four additive factors: age, access
// frequency, feedback, and recency of last access. Pure and deterministic:
// the same memory and now always produce the same score. Missing optional
// fields count as zero or neutral.
func Score(m *model.Memory, now time.Time) float64 {
	s := ageFactor(m, now) + accessFactor(m) + feedbackFactor(m) + freshnessFactor(m, now)
	return clamp(s, 0, 100)
}

// ageFactor rewards newer memories, decaying to 0 around 350 days old.
func ageFactor(m *model.Memory, now time.Time) float64 {
	ageDays := now.Sub(m.CreatedAt).Hours() / 24
	return clamp(factorMax-ageDays/14, 0, factorMax)
}

// accessFactor rewards reads, saturating at 10 accesses.
func accessFactor(m *model.Memory) float64 {
	return clamp(float64(m.AccessCount)*2.5, 0, factorMax)
}

// feedbackFactor centers at neutral 12.5 and saturates at +-5 net votes.
func feedbackFactor(m *model.Memory) float64 {
	net := float64(m.HelpfulCount-m.UnhelpfulCount) * 2.5
	return 12.5 + clamp(net, -12.5, 12.5)
}

// freshnessFactor rewards recent access, decaying to 0 around 175 days.
// Never-accessed memories contribute nothing.
func freshnessFactor(m *model.Memory, now time.Time) float64 {
	if m.LastAccessedAt == nil {
		return 0
	}
	days := now.Sub(*m.LastAccessedAt).Hours() / 24
	return clamp(factorMax-days/7, 0, factorMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Bucket classifies a score into a health tier.
func Bucket(score float64) string {
	switch {
	case score < 25:
		return BucketCritical
	case score < 50:
		return BucketLow
	case score < 75:
		return BucketMedium
	default:
		return BucketHealthy
	}
}

// Stale reports whether a memory is a cleanup candidate: not pinned and
// either never accessed or last accessed outside the 30-day window. This is
// independent of the score.
func Stale(m *model.Memory, now time.Time) bool {
	if m.Pinned() {
		return false
	}
	return m.LastAccessedAt == nil || m.LastAccessedAt.Before(now.Add(-staleWindow))
}

// ExpiringSoon reports whether a memory expires within the next 7 days.
func ExpiringSoon(m *model.Memory, now time.Time) bool {
	if m.ExpiresAt == nil {
		return false
	}
	return m.ExpiresAt.After(now) && m.ExpiresAt.Before(now.Add(expiringWindow))
}

// Candidate is one cleanup candidate surfaced by the report.
type Candidate struct {
	Key            string     `json:"key"`
	Score          float64    `json:"score"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// WeekCount is one point of the weekly growth series.
type WeekCount struct {
	WeekStart string `json:"week_start"`
	Count     int    `json:"count"`
}

// Report is the full health picture over active memories.
type Report struct {
	Total        int            `json:"total"`
	Buckets      map[string]int `json:"buckets"`
	AverageScore float64        `json:"average_score"`
	Stale        []Candidate    `json:"stale"`
	ExpiringSoon []Candidate    `json:"expiring_soon"`
	Growth       []WeekCount    `json:"growth"`
}

// BuildReport scores every active memory in the store. Archived and expired
// entries are excluded entirely. Safe to run repeatedly and concurrently.
func BuildReport(ctx context.Context, s store.Store, now time.Time) (*Report, error) {
	memories, err := s.List(ctx, store.ListParams{Limit: reportListLimit})
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Buckets: map[string]int{
			BucketCritical: 0,
			BucketLow:      0,
			BucketMedium:   0,
			BucketHealthy:  0,
		},
		Stale:        []Candidate{},
		ExpiringSoon: []Candidate{},
	}

	var total float64
	for i := range memories {
		m := &memories[i]
		if !m.Active(now) {
			continue
		}
		score := Score(m, now)
		rep.Total++
		total += score
		rep.Buckets[Bucket(score)]++

		cand := Candidate{
			Key:            m.Key,
			Score:          score,
			UpdatedAt:      m.UpdatedAt,
			LastAccessedAt: m.LastAccessedAt,
			ExpiresAt:      m.ExpiresAt,
		}
		if Stale(m, now) {
			rep.Stale = append(rep.Stale, cand)
		}
		if ExpiringSoon(m, now) {
			rep.ExpiringSoon = append(rep.ExpiringSoon, cand)
		}
	}
	if rep.Total > 0 {
		rep.AverageScore = total / float64(rep.Total)
	}

	sortCandidates(rep.Stale)
	sortCandidates(rep.ExpiringSoon)
	if len(rep.Stale) > candidateCap {
		rep.Stale = rep.Stale[:candidateCap]
	}
	if len(rep.ExpiringSoon) > candidateCap {
		rep.ExpiringSoon = rep.ExpiringSoon[:candidateCap]
	}

	rep.Growth = growthSeries(memories, now)
	return rep, nil
}

func sortCandidates(cands []Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		return cands[i].UpdatedAt.After(cands[j].UpdatedAt)
	})
}

// growthSeries buckets active memories by the week of creation (weeks start
// Sunday) and returns the most recent 12 weeks, oldest first.
func growthSeries(memories []model.Memory, now time.Time) []WeekCount {
	counts := make(map[string]int)
	for i := range memories {
		m := &memories[i]
		if !m.Active(now) {
			continue
		}
		counts[weekStart(m.CreatedAt).Format("2006-01-02")]++
	}

	series := make([]WeekCount, 0, growthWeeks)
	current := weekStart(now)
	for i := growthWeeks - 1; i >= 0; i-- {
		ws := current.AddDate(0, 0, -7*i).Format("2006-01-02")
		series = append(series, WeekCount{WeekStart: ws, Count: counts[ws]})
	}
	return series
}

func weekStart(t time.Time) time.Time {
	t = t.UTC()
	start := t.AddDate(0, 0, -int(t.Weekday()))
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}
