// Package cmd defines the CLI commands of the film-info-crawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/film-info-crawler/internal/app"
	"github.com/JakeFAU/film-info-crawler/internal/config"
	"github.com/JakeFAU/film-info-crawler/internal/film"
	"github.com/JakeFAU/film-info-crawler/internal/logging"
	"github.com/JakeFAU/film-info-crawler/internal/updater"
)

// runtimeKey is the context key for the loaded runtime.
type runtimeKey struct{}

// runtime carries what PersistentPreRunE prepared for subcommands.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// batchApp is the part of *app.App the commands drive.
type batchApp interface {
	Run(ctx context.Context, entries []film.URLEntry, collection string) (updater.Summary, error)
	Close(ctx context.Context) error
}

// buildApp is the application factory. It's a variable so tests can inject
// a fake.
var buildApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger, opts app.Options) (batchApp, error) {
	return app.Build(ctx, cfg, logger, opts)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "film-info-crawler",
		Short: "Keeps a MongoDB collection of film pages up to date.",
		Long: `film-info-crawler fetches film pages, extracts their metadata,
and upserts it into MongoDB. Pages refreshed within the freshness window are
skipped; pages that no longer yield data are removed.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, &runtime{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey{}).(*runtime); ok {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON, or TOML)")
	cmd.AddCommand(newUpdateCmd())
	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("configuration not loaded")
	}
	return rt, nil
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the batch.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
