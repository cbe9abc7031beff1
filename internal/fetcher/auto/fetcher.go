// Package auto fetches film pages over plain HTTP and re-renders them in a
// headless browser only when the response is a client-side shell.
package auto

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/film-info-crawler/internal/film"
)

// Fetcher implements film.Fetcher by promoting selected responses from the
// primary fetcher to the headless one.
type Fetcher struct {
	primary  film.Fetcher
	headless film.Fetcher
	detector *Detector
	logger   *zap.Logger
}

// New wires the two fetchers. A nil detector uses NewDetector(0).
func New(primary, headless film.Fetcher, detector *Detector, logger *zap.Logger) *Fetcher {
	if detector == nil {
		detector = NewDetector(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		primary:  primary,
		headless: headless,
		detector: detector,
		logger:   logger,
	}
}

// Fetch implements film.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, request film.FetchRequest) (film.FetchResponse, error) {
	resp, err := f.primary.Fetch(ctx, request)
	if err != nil {
		return film.FetchResponse{}, err
	}
	if !f.detector.ShouldPromote(resp) {
		return resp, nil
	}

	f.logger.Debug("promoting to headless", zap.String("url", request.URL), zap.Int("bytes", len(resp.Body)))
	rendered, err := f.headless.Fetch(ctx, request)
	if err != nil {
		return film.FetchResponse{}, fmt.Errorf("headless promotion: %w", err)
	}
	return rendered, nil
}
