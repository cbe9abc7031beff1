// Package app builds the long-lived services of a batch run from configuration
// and owns their shutdown.
package app

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/film-info-crawler/internal/api"
	"github.com/JakeFAU/film-info-crawler/internal/clock/system"
	"github.com/JakeFAU/film-info-crawler/internal/config"
	"github.com/JakeFAU/film-info-crawler/internal/extract"
	autofetcher "github.com/JakeFAU/film-info-crawler/internal/fetcher/auto"
	collyfetcher "github.com/JakeFAU/film-info-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/film-info-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/film-info-crawler/internal/film"
	"github.com/JakeFAU/film-info-crawler/internal/id/uuid"
	pglookup "github.com/JakeFAU/film-info-crawler/internal/lookup/postgres"
	memorypublisher "github.com/JakeFAU/film-info-crawler/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/film-info-crawler/internal/publisher/pubsub"
	gcsstorage "github.com/JakeFAU/film-info-crawler/internal/storage/gcs"
	localstorage "github.com/JakeFAU/film-info-crawler/internal/storage/local"
	memorystorage "github.com/JakeFAU/film-info-crawler/internal/storage/memory"
	mongostorage "github.com/JakeFAU/film-info-crawler/internal/storage/mongo"
	"github.com/JakeFAU/film-info-crawler/internal/tags"
	"github.com/JakeFAU/film-info-crawler/internal/updater"
)

// Options tune Build for a single invocation.
type Options struct {
	// DryRun swaps MongoDB for an in-memory store and disables every
	// external side channel.
	DryRun bool
}

// App contains the application's dependencies.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	store   film.Store
	updater *updater.Updater
	server  *api.Server
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// Build creates the application's dependencies. The tag dictionary is loaded
// first; a missing or malformed dictionary fails the build.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{cfg: cfg, logger: logger}

	if err := app.build(ctx, opts); err != nil {
		if closeErr := app.Close(context.Background()); closeErr != nil {
			logger.Warn("cleanup after failed build", zap.Error(closeErr))
		}
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	dict, err := tags.Load(a.cfg.Tags.DictionaryPath)
	if err != nil {
		return fmt.Errorf("tag dictionary init failed: %w", err)
	}
	a.logger.Info("tag dictionary loaded", zap.Int("entries", dict.Len()))

	policy, err := updater.ParseMalformedPolicy(a.cfg.Updater.OnMalformed)
	if err != nil {
		return err
	}
	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}

	if err := a.setupStore(ctx, opts.DryRun); err != nil {
		return err
	}
	fetcher := a.setupFetcher()
	lookup, err := a.setupLookup(ctx)
	if err != nil {
		return err
	}
	archive, err := a.setupArchive(ctx, opts.DryRun)
	if err != nil {
		return err
	}
	publisher, err := a.setupPublisher(ctx, opts.DryRun)
	if err != nil {
		return err
	}

	clk := system.New(loc)
	a.updater = updater.New(
		a.store,
		fetcher,
		extract.New(dict),
		updater.NewAssembler(a.cfg.Updater.Source, lookup, clk),
		clk,
		archive,
		publisher,
		uuid.New(),
		updater.Config{
			FreshnessDays: a.cfg.Updater.FreshnessDays,
			OnMalformed:   policy,
			ArchivePrefix: a.cfg.Archive.Prefix,
			Topic:         a.cfg.PubSub.TopicName,
		},
		a.logger.Named("updater"),
	)

	if a.cfg.Metrics.Addr != "" {
		a.server = api.NewServer(a.updater, a.logger.Named("api"))
	}
	return nil
}

func (a *App) setupStore(ctx context.Context, dryRun bool) error {
	if dryRun {
		a.logger.Info("dry run: using in-memory film store")
		a.store = memorystorage.NewFilmStore(a.cfg.Mongo.Collection)
		return nil
	}
	store, err := mongostorage.Open(ctx, mongostorage.Config{
		URI:        a.cfg.Mongo.URI,
		Database:   a.cfg.Mongo.Database,
		Collection: a.cfg.Mongo.Collection,
		Timeout:    a.cfg.MongoTimeout(),
	})
	if err != nil {
		return fmt.Errorf("mongo store init failed: %w", err)
	}
	a.store = store
	a.addCloser("mongo", store.Close)
	a.logger.Info("using mongo film store",
		zap.String("database", a.cfg.Mongo.Database),
		zap.String("collection", a.cfg.Mongo.Collection),
	)
	return nil
}

func (a *App) setupFetcher() film.Fetcher {
	httpFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     a.cfg.Fetch.UserAgent,
		RespectRobots: a.cfg.Fetch.RespectRobots,
		Timeout:       a.cfg.FetchTimeout(),
	})
	if a.cfg.Fetch.Mode == config.FetchModeHTTP {
		return httpFetcher
	}

	headless := headlessfetcher.New(headlessfetcher.Config{
		UserAgent:         a.cfg.Fetch.UserAgent,
		NavigationTimeout: a.cfg.NavTimeout(),
		ReadySelector:     a.cfg.Fetch.ReadySelector,
	})
	a.addCloser("headless", func(context.Context) error {
		headless.Close()
		return nil
	})
	if a.cfg.Fetch.Mode == config.FetchModeAuto {
		a.logger.Info("using http fetcher with headless promotion")
		return autofetcher.New(httpFetcher, headless, nil, a.logger.Named("fetch"))
	}
	a.logger.Info("using headless fetcher")
	return headless
}

func (a *App) setupLookup(ctx context.Context) (film.CodeLookup, error) {
	if a.cfg.Lookup.DSN == "" {
		a.logger.Info("code lookup disabled")
		return nil, nil
	}
	lookup, err := pglookup.New(ctx, pglookup.Config{
		DSN:   a.cfg.Lookup.DSN,
		Table: a.cfg.Lookup.Table,
	})
	if err != nil {
		return nil, fmt.Errorf("code lookup init failed: %w", err)
	}
	a.addCloser("lookup", func(context.Context) error {
		lookup.Close()
		return nil
	})
	return lookup, nil
}

func (a *App) setupArchive(ctx context.Context, dryRun bool) (film.BlobStore, error) {
	if dryRun {
		return nil, nil
	}
	switch a.cfg.Archive.Backend {
	case config.ArchiveGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		blobStore, err := gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.Archive.GCSBucket})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.addCloser("gcs", func(context.Context) error { return blobStore.Close() })
		a.logger.Info("archiving pages to gcs", zap.String("bucket", a.cfg.Archive.GCSBucket))
		return blobStore, nil
	case config.ArchiveLocal:
		blobStore, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		a.logger.Info("archiving pages locally", zap.String("path", a.cfg.Archive.BaseDir))
		return blobStore, nil
	default:
		return nil, nil
	}
}

func (a *App) setupPublisher(ctx context.Context, dryRun bool) (film.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" {
		return nil, nil
	}
	if dryRun {
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	pub := gcppublisher.New(client)
	a.addCloser("pubsub", func(context.Context) error { return pub.Close() })
	a.logger.Info("publishing change events", zap.String("topic", a.cfg.PubSub.TopicName))
	return pub, nil
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Store returns the film store the updater writes to.
func (a *App) Store() film.Store {
	return a.store
}

// Run processes entries against collection, serving the operator endpoints
// for the duration of the batch when metrics.addr is set.
func (a *App) Run(ctx context.Context, entries []film.URLEntry, collection string) (updater.Summary, error) {
	if a.server != nil {
		srvCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- a.server.ListenAndServe(srvCtx, a.cfg.Metrics.Addr)
		}()
		defer func() {
			cancel()
			if err := <-done; err != nil {
				a.logger.Warn("http server stopped with error", zap.Error(err))
			}
		}()
	}
	summary, err := a.updater.Run(ctx, entries, collection)
	if err != nil {
		return summary, fmt.Errorf("update batch: %w", err)
	}
	return summary, nil
}

// Close releases every opened dependency in reverse order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
