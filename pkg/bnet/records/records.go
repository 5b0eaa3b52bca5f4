package records

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/bnet/pkg/bnet/inference"
	"github.com/cognicore/bnet/pkg/bnet/network"
	"github.com/cognicore/bnet/pkg/bnet/query"
	"github.com/cognicore/bnet/pkg/bnet/store"
)

// Builder constructs query history records.
// IDs are monotonic, so ordering records by ID orders them by creation.
type Builder struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New creates a new record builder
func New() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Build creates a record for a query against networkName.
// A non-nil err marks the record as failed and ex is ignored.
func (b *Builder) Build(networkName string, req query.Request, ex inference.Explanation, err error) store.Record {
	id, now := b.next()

	rec := store.Record{
		ID:        id,
		Network:   networkName,
		Query:     network.Assignment(req.Query).String(),
		Evidence:  network.Assignment(req.Evidence).String(),
		CreatedAt: now,
	}

	if err != nil {
		rec.Error = err.Error()
		return rec
	}

	rec.Probability = ex.Probability
	rec.Numerator = ex.Numerator
	rec.Denominator = ex.Denominator
	return rec
}

func (b *Builder) next() (string, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	return ulid.MustNew(ulid.Timestamp(now), b.entropy).String(), now
}
