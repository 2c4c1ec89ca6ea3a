package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"counter-desk/internal/config"
	"counter-desk/internal/logger"
	"counter-desk/library"
	"counter-desk/market"
)

// globalFlags are the persistent flags shared by every command. Set flags
// override the config file and environment.
type globalFlags struct {
	configPath string
	store      string
	dataDir    string
	logLevel   string
	seed       bool
}

// override applies the flags the user set.
func (f *globalFlags) override(cmd *cobra.Command) config.Override {
	return func(cfg *config.Config) {
		if f.store != "" {
			cfg.Store.Backend = f.store
		}
		if f.dataDir != "" {
			cfg.Store.DataDir = f.dataDir
		}
		if f.logLevel != "" {
			cfg.Logger.Level = f.logLevel
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = f.seed
		}
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:          "desk",
		Short:        "Library lending desk and market checkout counter",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	pf.StringVar(&flags.store, "store", "", "storage backend: memory or sqlite")
	pf.StringVar(&flags.dataDir, "data-dir", "", "directory holding library.db and market.db")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&flags.seed, "seed", true, "load demo accounts and catalog into empty stores")

	root.AddCommand(
		newLibraryCmd(&flags),
		newMarketCmd(&flags),
		newReportCmd(&flags),
	)
	return root
}

// loadConfig resolves the effective configuration for cmd and builds its
// logger.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flags.configPath, flags.override(cmd))
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func openLibrary(ctx context.Context, cfg *config.Config, log *zap.Logger) (*library.LibraryManager, error) {
	var store library.Store = library.NewMemoryStore()
	if cfg.Store.Backend == config.BackendSQLite {
		db, err := library.NewDatabase(cfg.Store.LibraryPath())
		if err != nil {
			return nil, fmt.Errorf("open library database: %w", err)
		}
		store = db
	}
	mgr := library.NewLibraryManager(store, library.WithPolicy(cfg.Library), library.WithLogger(log))
	if cfg.Seed {
		seeded, err := mgr.SeedDemo(ctx)
		if err != nil {
			mgr.Close()
			return nil, fmt.Errorf("seed library: %w", err)
		}
		if seeded {
			log.Info("library demo data loaded", zap.String("backend", cfg.Store.Backend))
		}
	}
	return mgr, nil
}

func openMarket(ctx context.Context, cfg *config.Config, log *zap.Logger) (*market.MarketManager, error) {
	var store market.Store = market.NewMemoryStore()
	if cfg.Store.Backend == config.BackendSQLite {
		db, err := market.NewDatabase(cfg.Store.MarketPath())
		if err != nil {
			return nil, fmt.Errorf("open market database: %w", err)
		}
		store = db
	}
	mgr := market.NewMarketManager(store, market.WithPolicy(cfg.Market), market.WithLogger(log))
	if cfg.Seed {
		seeded, err := mgr.SeedDemo(ctx)
		if err != nil {
			mgr.Close()
			return nil, fmt.Errorf("seed market: %w", err)
		}
		if seeded {
			log.Info("market demo data loaded", zap.String("backend", cfg.Store.Backend))
		}
	}
	return mgr, nil
}
