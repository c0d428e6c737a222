package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pevans/matchfed/assets"
	"github.com/pevans/matchfed/config"
	"github.com/pevans/matchfed/fetch"
	"github.com/pevans/matchfed/history"
	"github.com/pevans/matchfed/matchdetail"
	"github.com/pevans/matchfed/newsindex"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for matchfed.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matchfed",
		Short: "Football match reports from a sports news feed",
		Long: `matchfed reads a sports news index, marks the entries whose titles carry
a final score (for example "Team A 2-1 Team B"), and extracts the commentary
and key-moment GIFs from a match report page.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath(), "Path to config file")

	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewAssetsCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

// setupLogger writes text logs to w at WARN, or DEBUG when verbose.
func setupLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// app holds the components a command works with.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	indexer   *newsindex.Indexer
	extractor *matchdetail.Extractor
	assets    *assets.Store
	verdicts  *history.Store
}

// newApp loads configuration from the command's flags and opens the stores.
func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(verbose, cmd.ErrOrStderr())
	logger.Debug("loaded config", "path", configPath, "index_url", cfg.IndexURL, "asset_dir", cfg.AssetDir)

	// 0700: owner-only access
	if err := os.MkdirAll(filepath.Dir(cfg.HistoryDSN), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	verdicts, err := history.NewStore(cfg.HistoryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	store, err := assets.NewStore(cfg.AssetDir)
	if err != nil {
		verdicts.Close()
		return nil, err
	}

	client := fetch.NewClient(cfg.Fetch)

	return &app{
		cfg:    cfg,
		logger: logger,
		indexer: newsindex.NewIndexer(client,
			newsindex.WithSelectors(cfg.Selectors),
			newsindex.WithFormat(cfg.Format),
			newsindex.WithLogger(logger),
		),
		extractor: matchdetail.NewExtractor(client, store,
			matchdetail.WithSelectors(cfg.Selectors),
			matchdetail.WithConcurrency(cfg.Concurrency),
			matchdetail.WithLogger(logger),
		),
		assets:   store,
		verdicts: verdicts,
	}, nil
}

// Close releases the history database.
func (a *app) Close() error {
	return a.verdicts.Close()
}
