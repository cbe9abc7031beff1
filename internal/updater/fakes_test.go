package updater

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JakeFAU/film-info-crawler/internal/film"
)

type fakeStore struct {
	mu          sync.Mutex
	lastUpdates map[string]time.Time
	existing    map[string]bool
	upserts     []film.Document
	deletes     []string
	collections []string
	err         error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lastUpdates: make(map[string]time.Time),
		existing:    make(map[string]bool),
	}
}

func (s *fakeStore) Exists(_ context.Context, _ string, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.existing[url], s.err
}

func (s *fakeStore) LastUpdate(_ context.Context, _ string, url string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return time.Time{}, false, s.err
	}
	ts, ok := s.lastUpdates[url]
	return ts, ok, nil
}

func (s *fakeStore) UpsertMany(_ context.Context, collection string, docs []film.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, docs...)
	s.collections = append(s.collections, collection)
	return nil
}

func (s *fakeStore) Delete(_ context.Context, collection, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, url)
	s.collections = append(s.collections, collection)
	return nil
}

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]film.FetchResponse
	errors    map[string]error
	calls     []string
}

func (f *fakeFetcher) Fetch(_ context.Context, req film.FetchRequest) (film.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.URL)
	if err, ok := f.errors[req.URL]; ok {
		return film.FetchResponse{}, err
	}
	if resp, ok := f.responses[req.URL]; ok {
		return resp, nil
	}
	return film.FetchResponse{}, errors.New("not found")
}

type fakeExtractor struct {
	fields map[string]film.Fields
	errs   map[string]error
}

func (e *fakeExtractor) Extract(url string, page []byte) (film.Fields, bool, error) {
	if page == nil {
		return film.Fields{}, false, nil
	}
	if err, ok := e.errs[url]; ok {
		return film.Fields{}, false, err
	}
	fields, ok := e.fields[url]
	return fields, ok, nil
}

type fakeLookup struct {
	info  film.CodeInfo
	err   error
	codes []string
}

func (l *fakeLookup) Lookup(_ context.Context, code string) (film.CodeInfo, error) {
	l.codes = append(l.codes, code)
	return l.info, l.err
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type fakeBlobStore struct {
	paths []string
	err   error
}

func (b *fakeBlobStore) PutObject(_ context.Context, path string, _ string, _ []byte) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.paths = append(b.paths, path)
	return "memory://" + path, nil
}

type fakePublisher struct {
	messages []map[string]any
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, _ string, payload any) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if m, ok := payload.(map[string]any); ok {
		p.messages = append(p.messages, m)
	}
	return "msgid", nil
}

type fakeIDs struct{}

func (fakeIDs) NewID() (string, error) { return "run-1", nil }

func strPtr(s string) *string { return &s }
