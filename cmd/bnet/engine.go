package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/bnet/pkg/bnet"
	"github.com/cognicore/bnet/pkg/bnet/config"
	"github.com/cognicore/bnet/pkg/bnet/internalerr"
	"github.com/cognicore/bnet/pkg/bnet/network"
	"github.com/cognicore/bnet/pkg/bnet/store"
	"github.com/cognicore/bnet/pkg/bnet/store/sqlite"
)

// engineOptions selects the network and store for a command
type engineOptions struct {
	NetworkPath string
	StoredName  string
	DBPath      string
	Workers     int
	Logger      *zap.Logger
}

func (c *cli) engineOptions() engineOptions {
	return engineOptions{
		NetworkPath: c.networkPath,
		StoredName:  c.storedName,
		DBPath:      c.dbPath,
		Workers:     c.workers,
		Logger:      c.logger,
	}
}

// buildEngine loads the network and opens the store, if any.
// The cleanup func closes the store.
func buildEngine(ctx context.Context, opts engineOptions) (*bnet.BNet, func(), error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var st store.Store
	if opts.DBPath != "" {
		var err error
		st, err = sqlite.OpenSQLite(ctx, opts.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: open %s: %w", internalerr.ErrStoreUnavailable, opts.DBPath, err)
		}
	}

	closeStore := func() {
		if st != nil {
			st.Close()
		}
	}

	var (
		name string
		net  *network.Network
	)

	if opts.StoredName != "" {
		if st == nil {
			return nil, nil, fmt.Errorf("%w: --stored requires --db", internalerr.ErrInvalidConfig)
		}
		n, err := bnet.LoadStored(ctx, st, opts.StoredName)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		name, net = opts.StoredName, n
	} else {
		loader := config.Loader{NetworkPath: opts.NetworkPath}
		components, err := loader.Load()
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		name, net = components.Name, components.Network
		logger.Debug("network loaded",
			zap.String("name", components.Name),
			zap.String("source", components.Source),
			zap.Int("variables", net.Len()))
	}

	engine, err := bnet.New(bnet.Options{
		Network: net,
		Name:    name,
		Store:   st,
		Logger:  logger,
		Workers: opts.Workers,
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	return engine, func() { engine.Close() }, nil
}

// openStore opens the database for commands that only need history
func openStore(ctx context.Context, dbPath string) (store.Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: --db or BNET_DB required", internalerr.ErrInvalidConfig)
	}
	st, err := sqlite.OpenSQLite(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", internalerr.ErrStoreUnavailable, dbPath, err)
	}
	return st, nil
}
