// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/gabrielgadea/kazuba-saas-api/domain/quota"
)

// ErrStoreUnavailable reports that the shared counter backend is
// unreachable or timed out. Stores never substitute a default value:
// the caller decides fail-open vs fail-closed.
var ErrStoreUnavailable = errors.New("counter store unavailable")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// -----------------------------------------------------------------------------
// Counter Store Port
// -----------------------------------------------------------------------------

// CounterStore is the authoritative per-identity, per-period counter
// backend. The store owns atomicity: concurrent Increments for the same
// identity must never lose an update, and callers must never compute
// read-then-write from counter values on their side.
type CounterStore interface {
	// Increment atomically adds 1 to the counter for the period containing
	// now and returns the new value. A missing counter is created at 1 with
	// an expiry equal to the remainder of the period.
	Increment(ctx context.Context, identityID string, p quota.Period, now time.Time) (int64, error)

	// Peek returns the current counter value without mutating.
	// A missing counter reads as 0.
	Peek(ctx context.Context, identityID string, p quota.Period, now time.Time) (int64, error)
}

// -----------------------------------------------------------------------------
// Converter Port
// -----------------------------------------------------------------------------

// Document is the result of a conversion (value type).
type Document struct {
	ID     string
	Format string // "pdf", "docx", "txt", "md"
	Text   string
	Pages  int // 0 when the format has no page concept
}

// Converter extracts structured text from an uploaded document.
// Implementations are stateless; conversion itself carries no quota logic.
type Converter interface {
	Extract(ctx context.Context, filename string, data []byte) (Document, error)
}
