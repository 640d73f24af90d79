// Package session keeps checkout form state between requests and guards
// against overlapping submissions for the same browser session.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/simplecom/checkout/internal/checkout"
)

// ErrNotFound is returned when no snapshot exists for a session id
var ErrNotFound = errors.New("checkout session not found")

// Store persists checkout form snapshots
type Store interface {
	Load(ctx context.Context, id string) (checkout.Snapshot, error)
	Save(ctx context.Context, id string, snapshot checkout.Snapshot) error
}

// Ensure concrete types implement interfaces.
var (
	_ Store          = (*MemoryStore)(nil)
	_ Store          = (*RedisStore)(nil)
	_ checkout.Guard = (*MemoryGuard)(nil)
	_ checkout.Guard = (*RedisGuard)(nil)
)

// DefaultGuardTTL bounds how long a crashed attempt can block its session.
const DefaultGuardTTL = time.Minute
