package store

import (
	"context"
	"time"

	"github.com/cognicore/bnet/pkg/bnet/network"
)

// Store persists network definitions and the query history
type Store interface {
	Close() error

	// Networks
	UpsertNetwork(ctx context.Context, name string, def network.Definition) error
	GetNetwork(ctx context.Context, name string) (network.Definition, bool, error)
	ListNetworks(ctx context.Context) ([]string, error)

	// History
	AppendRecord(ctx context.Context, r Record) error
	RecentRecords(ctx context.Context, networkName string, limit int) ([]Record, error)
}

// Record is one answered (or failed) query
type Record struct {
	ID          string // ULID, sorts by creation time
	Network     string
	Query       string // e.g. "Jt Mt"
	Evidence    string // e.g. "Bt"; empty without evidence
	Probability float64
	Numerator   float64
	Denominator float64
	Error       string
	CreatedAt   time.Time
}

// Failed reports whether the query returned an error
func (r Record) Failed() bool { return r.Error != "" }
