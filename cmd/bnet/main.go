package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/bnet/pkg/bnet"
	"github.com/cognicore/bnet/pkg/bnet/config"
	"github.com/cognicore/bnet/pkg/bnet/internalerr"
)

// Exit codes
const (
	exitOK       = 0
	exitFindings = 1 // validate found data problems
	exitQuery    = 2 // malformed query or impossible evidence
	exitNetwork  = 3 // network or configuration could not be used
	exitError    = 4
)

var errFindings = errors.New("network has audit findings")

// cli holds the persistent flags shared by every command
type cli struct {
	networkPath string
	storedName  string
	dbPath      string
	logLevel    string
	precision   int
	workers     int

	logger *zap.Logger
}

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitNetwork)
	}

	root := newRootCmd(settings)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(exitCode(err))
	}
}

func newRootCmd(settings config.Settings) *cobra.Command {
	c := &cli{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "bnet",
		Short: "Exact inference over discrete Bayesian networks",
		Long: `bnet answers probability queries such as "Jt Mt given Bt" by enumerating
the full joint distribution of a boolean Bayesian network.

Without --network or --stored the classic burglary alarm network is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s := config.Settings{LogLevel: c.logLevel, Precision: c.precision, Workers: c.workers}
			if err := s.Validate(); err != nil {
				return err
			}
			if c.networkPath != "" && c.storedName != "" {
				return fmt.Errorf("%w: --network and --stored are mutually exclusive", internalerr.ErrInvalidConfig)
			}

			logger, err := newLogger(c.logLevel)
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.networkPath, "network", settings.NetworkPath, "Network definition YAML file (env BNET_NETWORK)")
	flags.StringVar(&c.storedName, "stored", "", "Use a network saved in the database under this name")
	flags.StringVar(&c.dbPath, "db", settings.DBPath, "SQLite database for saved networks and query history (env BNET_DB)")
	flags.StringVar(&c.logLevel, "log-level", settings.LogLevel, "Log level: debug, info, warn, error (env BNET_LOG_LEVEL)")
	flags.IntVar(&c.precision, "precision", settings.Precision, "Digits after the decimal point (env BNET_PRECISION)")
	flags.IntVar(&c.workers, "workers", settings.Workers, "Concurrent queries in batch mode (env BNET_WORKERS)")

	root.AddCommand(
		c.queryCmd(),
		c.batchCmd(),
		c.replCmd(),
		c.validateCmd(),
		c.showCmd(),
		c.saveCmd(),
		c.networksCmd(),
		c.historyCmd(),
	)
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, err)
	}

	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errFindings):
		return exitFindings
	case errors.Is(err, internalerr.ErrMissingEntry),
		errors.Is(err, internalerr.ErrInvalidNetwork),
		errors.Is(err, internalerr.ErrInvalidConfig),
		errors.Is(err, internalerr.ErrNotFound):
		return exitNetwork
	case bnet.IsQueryError(err):
		return exitQuery
	default:
		return exitError
	}
}

func describeError(err error) string {
	var (
		missing *internalerr.MissingEntryError
		divZero *internalerr.DivisionByZeroError
	)
	switch {
	case errors.As(err, &missing):
		return fmt.Sprintf("error: the network has no CPT entry %s", missing.Key)
	case errors.As(err, &divZero):
		return fmt.Sprintf("error: evidence %s is impossible under this network", divZero.Evidence)
	case errors.Is(err, internalerr.ErrTooLarge):
		return fmt.Sprintf("error: %v; narrow the query or use a smaller network", err)
	default:
		return fmt.Sprintf("error: %v", err)
	}
}
