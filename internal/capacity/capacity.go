// Package capacity implements the write-admission policy for new memories,
// classifying live project and org usage into an admission decision.
package capacity

import (
	"context"
	"fmt"

	"github.com/memfleet/agent-coord/internal/model"
	"github.com/memfleet/agent-coord/internal/store"
)

// WarnThreshold is the usage fraction at which a scope is reported as
// approaching its limit.
const WarnThreshold = 0.8

// Decision classifies one capacity snapshot into an admission outcome.
// IsFull is a hard block: the org is at its limit and no new non-expiring
// memory may be written regardless of project headroom. IsSoftFull means the
// project is at its limit while the org still has room; callers may still
// permit the write under their own policy.
type Decision struct {
	View          model.Capacity `json:"capacity"`
	ProjectUsage  float64        `json:"project_usage"`
	OrgUsage      float64        `json:"org_usage"`
	IsFull        bool           `json:"is_full"`
	IsSoftFull    bool           `json:"is_soft_full"`
	IsApproaching bool           `json:"is_approaching"`
	Guidance      string         `json:"guidance"`
}

// Usage returns used/limit. Non-positive limits are unbounded: usage is
// always 0 and never blocks.
func Usage(used, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(used) / float64(limit)
}

// Classify derives the admission decision for a capacity snapshot. It is
// stateless and holds no lock: two concurrent writers can both observe
// headroom and both proceed, and the slight quota overshoot is accepted.
func Classify(view model.Capacity) Decision {
	d := Decision{View: view}
	d.ProjectUsage = Usage(view.Used, view.Limit)
	d.OrgUsage = Usage(view.OrgUsed, view.OrgLimit)
	d.IsFull = d.OrgUsage >= 1
	d.IsSoftFull = !d.IsFull && d.ProjectUsage >= 1
	d.IsApproaching = !d.IsFull && !d.IsSoftFull &&
		(d.ProjectUsage >= WarnThreshold || d.OrgUsage >= WarnThreshold)

	switch {
	case d.IsFull:
		d.Guidance = fmt.Sprintf(
			"organization memory is full (org %d/%d, project %d/%d): new non-expiring memories are blocked until space is freed",
			view.OrgUsed, view.OrgLimit, view.Used, view.Limit)
	case d.IsSoftFull:
		d.Guidance = fmt.Sprintf(
			"project memory is full (project %d/%d, org %d/%d): archive stale memories before storing more",
			view.Used, view.Limit, view.OrgUsed, view.OrgLimit)
	case d.IsApproaching:
		d.Guidance = fmt.Sprintf(
			"memory usage is approaching its limit (project %d/%d, org %d/%d): consider archiving stale memories",
			view.Used, view.Limit, view.OrgUsed, view.OrgLimit)
	default:
		d.Guidance = fmt.Sprintf(
			"memory available (project %d/%d, org %d/%d)",
			view.Used, view.Limit, view.OrgUsed, view.OrgLimit)
	}
	return d
}

// Governor fetches live capacity from the store and classifies it.
type Governor struct {
	store store.Store
}

// NewGovernor creates a governor over the given store.
func NewGovernor(s store.Store) *Governor { return &Governor{store: s} }

// Check performs a fresh admission check. It must run immediately before
// each write that would create a new memory; updates to existing memories do
// not consume quota and skip it.
func (g *Governor) Check(ctx context.Context) (*Decision, error) {
	view, err := g.store.Capacity(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch capacity: %w", err)
	}
	d := Classify(*view)
	return &d, nil
}
