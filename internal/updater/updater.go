package updater

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/film-info-crawler/internal/film"
	"github.com/JakeFAU/film-info-crawler/internal/metrics"
)

// DefaultFreshnessDays is the number of calendar days a stored document is
// considered current.
const DefaultFreshnessDays = 3

// MalformedPolicy decides what happens to a URL whose page does not match the
// film template.
type MalformedPolicy string

// Malformed page policies.
const (
	// MalformedSkip logs the page and leaves storage untouched.
	MalformedSkip MalformedPolicy = "skip"
	// MalformedDelete treats the page like an unfetchable one.
	MalformedDelete MalformedPolicy = "delete"
	// MalformedAbort stops the batch and returns the extraction error.
	MalformedAbort MalformedPolicy = "abort"
)

// ParseMalformedPolicy validates a policy name.
func ParseMalformedPolicy(s string) (MalformedPolicy, error) {
	switch p := MalformedPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MalformedSkip, MalformedDelete, MalformedAbort:
		return p, nil
	case "":
		return MalformedSkip, nil
	default:
		return "", fmt.Errorf("unknown malformed page policy %q", s)
	}
}

// Outcome is the per-URL result of a batch step.
type Outcome string

// Per-URL outcomes.
const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeUpserted  Outcome = "upserted"
	OutcomeDeleted   Outcome = "deleted"
	OutcomeMalformed Outcome = "malformed"
	OutcomeFailed    Outcome = "failed"
)

// Summary counts the outcomes of one Run.
type Summary struct {
	RunID     string
	Processed int
	Skipped   int
	Upserted  int
	Deleted   int
	Malformed int
}

func (s *Summary) record(outcome Outcome) {
	s.Processed++
	switch outcome {
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeUpserted:
		s.Upserted++
	case OutcomeDeleted:
		s.Deleted++
	case OutcomeMalformed:
		s.Malformed++
	}
}

// PageExtractor turns page markup into film fields.
type PageExtractor interface {
	Extract(url string, page []byte) (film.Fields, bool, error)
}

// Config controls Updater behavior.
type Config struct {
	// FreshnessDays is the skip window in calendar days. Zero skips only
	// documents updated today; a negative value selects DefaultFreshnessDays.
	FreshnessDays int
	OnMalformed   MalformedPolicy
	ArchivePrefix string
	Topic         string
}

// Updater processes batches of film URLs.
type Updater struct {
	store     film.Store
	fetcher   film.Fetcher
	extractor PageExtractor
	assembler *Assembler
	clock     film.Clock
	archive   film.BlobStore
	publisher film.Publisher
	ids       film.IDGenerator
	cfg       Config
	logger    *zap.Logger

	mu       sync.RWMutex
	progress Summary
	running  bool
}

// New constructs an Updater. archive, publisher, and ids may be nil.
func New(
	store film.Store,
	fetcher film.Fetcher,
	extractor PageExtractor,
	assembler *Assembler,
	clock film.Clock,
	archive film.BlobStore,
	publisher film.Publisher,
	ids film.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Updater {
	if cfg.FreshnessDays < 0 {
		cfg.FreshnessDays = DefaultFreshnessDays
	}
	if cfg.OnMalformed == "" {
		cfg.OnMalformed = MalformedSkip
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Updater{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		assembler: assembler,
		clock:     clock,
		archive:   archive,
		publisher: publisher,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run processes entries in order against collection. It stops at the first
// storage, lookup, or cancellation error and returns the counts so far.
func (u *Updater) Run(ctx context.Context, entries []film.URLEntry, collection string) (Summary, error) {
	summary := Summary{RunID: u.newRunID()}
	u.setProgress(summary, true)
	defer func() { u.setProgress(summary, false) }()

	logger := u.logger.With(zap.String("run_id", summary.RunID), zap.String("collection", collection))
	logger.Info("update started", zap.Int("urls", len(entries)))

	for idx, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("update canceled: %w", err)
		}
		logger.Info("processing url", zap.Int("index", idx), zap.String("url", entry.URL))

		outcome, err := u.handleURL(ctx, logger, summary.RunID, collection, entry.URL)
		summary.record(outcome)
		u.setProgress(summary, true)
		metrics.ObserveOutcome(string(outcome))
		if err != nil {
			logger.Error("update aborted", zap.Int("index", idx), zap.String("url", entry.URL), zap.Error(err))
			return summary, err
		}
	}

	logger.Info("update finished",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("upserted", summary.Upserted),
		zap.Int("deleted", summary.Deleted),
		zap.Int("malformed", summary.Malformed),
	)
	return summary, nil
}

// Progress returns the counts of the current or most recent Run and whether
// a Run is in flight.
func (u *Updater) Progress() (Summary, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.progress, u.running
}

func (u *Updater) setProgress(s Summary, running bool) {
	u.mu.Lock()
	u.progress = s
	u.running = running
	u.mu.Unlock()
}

func (u *Updater) handleURL(
	ctx context.Context,
	logger *zap.Logger,
	runID string,
	collection string,
	url string,
) (Outcome, error) {
	last, found, err := u.store.LastUpdate(ctx, collection, url)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("read update date for %s: %w", url, err)
	}
	if found && u.isFresh(last) {
		logger.Info("recently updated, skipping", zap.String("url", url), zap.Time("update_date", last))
		return OutcomeSkipped, nil
	}

	page, err := u.fetch(ctx, logger, url)
	if err != nil {
		return OutcomeFailed, err
	}

	fields, ok, err := u.extractor.Extract(url, page)
	if err != nil {
		return u.handleMalformed(ctx, logger, runID, collection, url, err)
	}
	if !ok {
		logger.Info("no film data, removing", zap.String("url", url))
		return u.remove(ctx, logger, runID, collection, url)
	}
	logger.Info("extracted tags", zap.String("url", url), zap.Strings("tags", fields.Tags))

	exists, err := u.store.Exists(ctx, collection, url)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("check existing %s: %w", url, err)
	}
	doc, err := u.assembler.Assemble(ctx, url, fields, exists)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("assemble %s: %w", url, err)
	}
	if err := u.store.UpsertMany(ctx, collection, []film.Document{doc}); err != nil {
		return OutcomeFailed, fmt.Errorf("upsert %s: %w", url, err)
	}

	u.archivePage(ctx, logger, fields.Code, page)
	u.publish(ctx, logger, runID, "film.upserted", collection, url)
	return OutcomeUpserted, nil
}

// fetch returns nil markup for any failure other than cancellation; those
// pages are treated as gone.
func (u *Updater) fetch(ctx context.Context, logger *zap.Logger, url string) ([]byte, error) {
	start := time.Now()
	resp, err := u.fetcher.Fetch(ctx, film.FetchRequest{URL: url})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		metrics.ObserveFetch(url, "error", 0, time.Since(start))
		logger.Warn("fetch failed", zap.String("url", url), zap.Error(err))
		return nil, nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		metrics.ObserveFetch(url, "error", len(resp.Body), time.Since(start))
		logger.Warn("fetch returned error status", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return nil, nil
	}
	metrics.ObserveFetch(url, "success", len(resp.Body), time.Since(start))
	return resp.Body, nil
}

func (u *Updater) handleMalformed(
	ctx context.Context,
	logger *zap.Logger,
	runID string,
	collection string,
	url string,
	extractErr error,
) (Outcome, error) {
	switch u.cfg.OnMalformed {
	case MalformedAbort:
		return OutcomeMalformed, fmt.Errorf("extract %s: %w", url, extractErr)
	case MalformedDelete:
		logger.Error("malformed page, removing", zap.String("url", url), zap.Error(extractErr))
		return u.remove(ctx, logger, runID, collection, url)
	default:
		logger.Error("malformed page, leaving stored document", zap.String("url", url), zap.Error(extractErr))
		return OutcomeMalformed, nil
	}
}

func (u *Updater) remove(ctx context.Context, logger *zap.Logger, runID, collection, url string) (Outcome, error) {
	if err := u.store.Delete(ctx, collection, url); err != nil {
		return OutcomeFailed, fmt.Errorf("delete %s: %w", url, err)
	}
	u.publish(ctx, logger, runID, "film.deleted", collection, url)
	return OutcomeDeleted, nil
}

// isFresh compares calendar days in the clock's location.
func (u *Updater) isFresh(last time.Time) bool {
	now := u.clock.Now()
	days := dayNumber(now) - dayNumber(last.In(now.Location()))
	return days <= int64(u.cfg.FreshnessDays)
}

func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / int64(24*time.Hour/time.Second)
}

func (u *Updater) archivePage(ctx context.Context, logger *zap.Logger, code string, page []byte) {
	if u.archive == nil {
		return
	}
	uri, err := u.archive.PutObject(ctx, u.archivePath(code), "text/html; charset=utf-8", page)
	if err != nil {
		logger.Warn("archive page failed", zap.String("code", code), zap.Error(err))
		return
	}
	logger.Debug("page archived", zap.String("code", code), zap.String("uri", uri))
}

func (u *Updater) archivePath(code string) string {
	prefix := strings.Trim(u.cfg.ArchivePrefix, "/")
	if prefix == "" {
		return code + ".html"
	}
	return fmt.Sprintf("%s/%s.html", prefix, code)
}

func (u *Updater) publish(ctx context.Context, logger *zap.Logger, runID, event, collection, url string) {
	if u.cfg.Topic == "" || u.publisher == nil {
		return
	}
	payload := map[string]any{
		"event":      event,
		"run_id":     runID,
		"url":        url,
		"collection": collection,
		"timestamp":  u.clock.Now().Format(time.RFC3339),
	}
	if _, err := u.publisher.Publish(ctx, u.cfg.Topic, payload); err != nil {
		logger.Warn("publish event failed", zap.String("event", event), zap.String("url", url), zap.Error(err))
	}
}

func (u *Updater) newRunID() string {
	if u.ids == nil {
		return ""
	}
	id, err := u.ids.NewID()
	if err != nil {
		u.logger.Warn("run id generation failed", zap.Error(err))
		return ""
	}
	return id
}

// IsCanceled reports whether err came from context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
