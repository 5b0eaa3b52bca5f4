package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/bnet/pkg/bnet/network"
	"github.com/cognicore/bnet/pkg/bnet/store"
)

// Store is an in-memory implementation of store.Store for tests
// and one-off CLI runs.
type Store struct {
	mu       sync.RWMutex
	networks map[string]network.Definition
	records  []store.Record
}

var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		networks: make(map[string]network.Definition),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertNetwork stores a copy of def under name.
func (s *Store) UpsertNetwork(ctx context.Context, name string, def network.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.networks[name] = copyDefinition(def)
	return nil
}

// GetNetwork returns the definition stored under name.
func (s *Store) GetNetwork(ctx context.Context, name string) (network.Definition, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.networks[name]
	if !ok {
		return network.Definition{}, false, nil
	}
	return copyDefinition(def), true, nil
}

// ListNetworks returns stored network names, sorted.
func (s *Store) ListNetworks(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.networks))
	for name := range s.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// AppendRecord adds a record to the history.
func (s *Store) AppendRecord(ctx context.Context, r store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, r)
	return nil
}

// RecentRecords returns the newest records first. An empty networkName
// matches every network.
func (s *Store) RecentRecords(ctx context.Context, networkName string, limit int) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	var result []store.Record
	for _, r := range s.records {
		if networkName == "" || r.Network == networkName {
			result = append(result, r)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyDefinition(def network.Definition) network.Definition {
	out := network.Definition{
		Variables: append([]string(nil), def.Variables...),
		Parents:   make(map[string][]string, len(def.Parents)),
		Entries:   make([]network.Entry, len(def.Entries)),
	}
	for child, parents := range def.Parents {
		out.Parents[child] = append([]string(nil), parents...)
	}
	for i, e := range def.Entries {
		out.Entries[i] = network.Entry{
			Child: e.Child,
			Given: append([]network.Literal(nil), e.Given...),
			P:     e.P,
		}
	}
	return out
}
