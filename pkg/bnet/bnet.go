package bnet

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/bnet/pkg/bnet/inference"
	"github.com/cognicore/bnet/pkg/bnet/inference/enumeration"
	"github.com/cognicore/bnet/pkg/bnet/internalerr"
	"github.com/cognicore/bnet/pkg/bnet/network"
	"github.com/cognicore/bnet/pkg/bnet/query"
	"github.com/cognicore/bnet/pkg/bnet/records"
	"github.com/cognicore/bnet/pkg/bnet/store"
)

// DefaultWorkers bounds AskBatch when Options.Workers is unset
const DefaultWorkers = 4

// BNet is the main query facade over one network
type BNet struct {
	name    string
	net     *network.Network
	inf     inference.Engine
	store   store.Store
	records *records.Builder
	logger  *zap.Logger
	workers int
}

// Options configures a BNet instance
type Options struct {
	Network   *network.Network
	Name      string           // recorded with every query
	Inference inference.Engine // defaults to exact enumeration over Network
	Store     store.Store      // optional; enables history
	Logger    *zap.Logger
	Workers   int
}

// Answer is the outcome of one request
type Answer struct {
	Request     query.Request
	Explanation inference.Explanation
	Probability float64
	RecordID    string
	Err         error // set by AskBatch for requests that failed on their own
}

// New creates a BNet instance with the given dependencies
func New(opts Options) (*BNet, error) {
	if opts.Network == nil {
		return nil, fmt.Errorf("%w: no network", internalerr.ErrInvalidConfig)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	inf := opts.Inference
	if inf == nil {
		inf = enumeration.New(opts.Network, enumeration.WithLogger(logger))
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &BNet{
		name:    opts.Name,
		net:     opts.Network,
		inf:     inf,
		store:   opts.Store,
		records: records.New(),
		logger:  logger.With(zap.String("network", opts.Name)),
		workers: workers,
	}, nil
}

// Close cleanly shuts down the instance
func (b *BNet) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}

// Name returns the network name recorded with queries
func (b *BNet) Name() string { return b.name }

// Network returns the queried network
func (b *BNet) Network() *network.Network { return b.net }

// Ask answers one request and appends it to the history when a store is set.
// Failed queries are recorded too.
func (b *BNet) Ask(ctx context.Context, req query.Request) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}

	ex, qerr := b.inf.Explain(req.Query, req.Evidence)
	rec := b.records.Build(b.name, req, ex, qerr)

	if b.store != nil {
		if err := b.store.AppendRecord(ctx, rec); err != nil {
			b.logger.Warn("failed to record query", zap.String("id", rec.ID), zap.Error(err))
			return Answer{}, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
		}
	}

	ans := Answer{Request: req, RecordID: rec.ID}
	if qerr != nil {
		b.logger.Debug("query failed",
			zap.String("query", req.String()),
			zap.Error(qerr))
		ans.Err = qerr
		return ans, qerr
	}

	ans.Explanation = ex
	ans.Probability = ex.Probability
	b.logger.Debug("query answered",
		zap.String("query", req.String()),
		zap.Float64("probability", ex.Probability),
		zap.String("id", rec.ID))
	return ans, nil
}

// AskBatch answers independent requests concurrently, at most Workers at a
// time. Answers keep the order of reqs. A request that fails on its own
// (bad literal, impossible evidence, malformed network) reports through
// Answer.Err; store failures and cancellation abort the batch.
func (b *BNet) AskBatch(ctx context.Context, reqs []query.Request) ([]Answer, error) {
	answers := make([]Answer, len(reqs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, req := range reqs {
		g.Go(func() error {
			ans, err := b.Ask(gCtx, req)
			if err != nil && !IsQueryError(err) {
				return err
			}
			ans.Request = req
			answers[i] = ans
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.logger.Debug("batch answered", zap.Int("requests", len(reqs)), zap.Int("workers", b.workers))
	return answers, nil
}

// History returns the newest records for this network
func (b *BNet) History(ctx context.Context, limit int) ([]store.Record, error) {
	if b.store == nil {
		return nil, fmt.Errorf("%w: no store configured", internalerr.ErrStoreUnavailable)
	}
	return b.store.RecentRecords(ctx, b.name, limit)
}

// Save stores the network definition under the instance name
func (b *BNet) Save(ctx context.Context) error {
	if b.store == nil {
		return fmt.Errorf("%w: no store configured", internalerr.ErrStoreUnavailable)
	}
	if b.name == "" {
		return fmt.Errorf("%w: network has no name", internalerr.ErrInvalidConfig)
	}
	return b.store.UpsertNetwork(ctx, b.name, b.net.Definition())
}

// LoadStored rebuilds a network previously saved under name
func LoadStored(ctx context.Context, st store.Store, name string) (*network.Network, error) {
	def, found, err := st.GetNetwork(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: network %q", internalerr.ErrNotFound, name)
	}
	return network.New(def)
}

// IsQueryError reports whether err is confined to a single query
func IsQueryError(err error) bool {
	return errors.Is(err, internalerr.ErrInvalidQuery) ||
		errors.Is(err, internalerr.ErrDivisionByZero) ||
		errors.Is(err, internalerr.ErrMissingEntry) ||
		errors.Is(err, internalerr.ErrTooLarge)
}
