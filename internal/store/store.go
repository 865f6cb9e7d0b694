// Package store provides the memory store interface and its HTTP client.
// The store itself (relational schema, transactions, auth) is owned by the
// server; this package only speaks its REST contract.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/memfleet/agent-coord/internal/model"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("memory not found")

// StatusError reports a non-2xx response from the memory store. Retry policy
// belongs to the HTTP client layer; callers see the upstream status verbatim.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("store returned %d: %s", e.Status, e.Message)
}

// PutParams holds parameters for creating or overwriting a memory.
type PutParams struct {
	Key       string
	Content   string
	Metadata  map[string]any
	Tags      []string
	Priority  int
	ExpiresAt *time.Time
}

// PatchParams holds optional field updates. Nil fields are left untouched.
type PatchParams struct {
	Content  *string
	Priority *int
	Pinned   *bool
	Archived *bool
	Helpful  *bool
}

// ListParams holds parameters for listing or searching memories.
type ListParams struct {
	Query  string
	Prefix string
	Tags   []string
	Limit  int
}

// Store defines the memory store operations the coordination core consumes.
// Every call is a single request/response round trip; implementations offer
// no transactions or locking, and callers must tolerate slightly stale reads.
type Store interface {
	// Put creates or overwrites a memory. Returns the stored memory.
	Put(ctx context.Context, p PutParams) (*model.Memory, error)

	// Get retrieves a memory by key. The server bumps access counters on read.
	Get(ctx context.Context, key string) (*model.Memory, error)

	// Patch applies a partial update to an existing memory.
	Patch(ctx context.Context, key string, p PatchParams) (*model.Memory, error)

	// Delete removes a memory by key.
	Delete(ctx context.Context, key string) error

	// List returns memories matching the given filters.
	List(ctx context.Context, p ListParams) ([]model.Memory, error)

	// Capacity returns the live project and org usage snapshot.
	Capacity(ctx context.Context) (*model.Capacity, error)
}
