package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/film-info-crawler/internal/app"
	"github.com/JakeFAU/film-info-crawler/internal/film"
	"github.com/JakeFAU/film-info-crawler/internal/updater"
)

type updateOptions struct {
	urlsFile   string
	urls       []string
	collection string
	dryRun     bool
}

// newUpdateCmd creates the 'update' subcommand.
func newUpdateCmd() *cobra.Command {
	opts := &updateOptions{}
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Refresh film documents for a list of URLs",
		Long: `Processes film URLs one at a time: URLs updated within the
freshness window are skipped, the rest are fetched, extracted, and upserted.
URLs that no longer yield film data are deleted from the collection.

URLs come from a JSON array of objects with a "url" field (--urls) and from
repeated --url flags, in that order.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.urlsFile, "urls", "", `JSON file with [{"url": ...}, ...]`)
	cmd.Flags().StringArrayVar(&opts.urls, "url", nil, "film URL to process (repeatable)")
	cmd.Flags().StringVar(&opts.collection, "collection", "", "target collection (default mongo.collection)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "write to an in-memory store instead of MongoDB")
	return cmd
}

func runUpdate(cmd *cobra.Command, opts *updateOptions) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}

	entries, err := collectEntries(opts.urlsFile, opts.urls)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New("no URLs given: use --urls or --url")
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx, rt.cfg, rt.logger, app.Options{DryRun: opts.dryRun})
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer func() {
		if cerr := a.Close(context.Background()); cerr != nil {
			rt.logger.Warn("shutdown incomplete", zap.Error(cerr))
		}
	}()

	summary, err := a.Run(ctx, entries, opts.collection)
	printSummary(cmd, summary)
	if err != nil {
		if updater.IsCanceled(err) {
			rt.logger.Warn("update interrupted", zap.Int("processed", summary.Processed))
		}
		return err
	}
	return nil
}

// collectEntries reads the URL file, then appends the flag URLs.
func collectEntries(path string, urls []string) ([]film.URLEntry, error) {
	var entries []film.URLEntry
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read url list: %w", err)
		}
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse url list %s: %w", path, err)
		}
		for i, e := range entries {
			if strings.TrimSpace(e.URL) == "" {
				return nil, fmt.Errorf("url list %s: entry %d has no url", path, i)
			}
		}
	}
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			entries = append(entries, film.URLEntry{URL: u})
		}
	}
	return entries, nil
}

func printSummary(cmd *cobra.Command, s updater.Summary) {
	fmt.Fprintf(cmd.OutOrStdout(),
		"processed=%d skipped=%d upserted=%d deleted=%d malformed=%d\n",
		s.Processed, s.Skipped, s.Upserted, s.Deleted, s.Malformed)
}
