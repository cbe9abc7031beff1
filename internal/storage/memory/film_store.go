// Package memory keeps film documents in process memory for dry runs and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/JakeFAU/film-info-crawler/internal/film"
)

// FilmStore implements film.Store with the same field-level merge semantics
// as the MongoDB store.
type FilmStore struct {
	mu                sync.RWMutex
	defaultCollection string
	collections       map[string]map[string]bson.M
}

// NewFilmStore returns an empty store.
func NewFilmStore(defaultCollection string) *FilmStore {
	return &FilmStore{
		defaultCollection: defaultCollection,
		collections:       make(map[string]map[string]bson.M),
	}
}

// Exists implements film.Store.
func (s *FilmStore) Exists(_ context.Context, collection, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[s.name(collection)][url]
	return ok, nil
}

// LastUpdate implements film.Store.
func (s *FilmStore) LastUpdate(_ context.Context, collection, url string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[s.name(collection)][url]
	if !ok {
		return time.Time{}, false, nil
	}
	switch v := doc["update_date"].(type) {
	case primitive.DateTime:
		return v.Time().UTC(), true, nil
	case time.Time:
		return v, true, nil
	default:
		return time.Time{}, false, nil
	}
}

// UpsertMany merges the fields of each document into the stored one.
func (s *FilmStore) UpsertMany(_ context.Context, collection string, docs []film.Document) error {
	encoded := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		raw, err := bson.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s: %w", doc.DocumentURL(), err)
		}
		var fields bson.M
		if err := bson.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("decode %s: %w", doc.DocumentURL(), err)
		}
		encoded = append(encoded, fields)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collections[s.name(collection)]
	if coll == nil {
		coll = make(map[string]bson.M)
		s.collections[s.name(collection)] = coll
	}
	for i, fields := range encoded {
		url := docs[i].DocumentURL()
		stored, ok := coll[url]
		if !ok {
			stored = bson.M{}
			coll[url] = stored
		}
		for k, v := range fields {
			stored[k] = v
		}
	}
	return nil
}

// Delete implements film.Store.
func (s *FilmStore) Delete(_ context.Context, collection, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[s.name(collection)], url)
	return nil
}

// Get returns a copy of the stored document.
func (s *FilmStore) Get(collection, url string) (bson.M, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[s.name(collection)][url]
	if !ok {
		return nil, false
	}
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, true
}

// Len returns the number of documents in collection.
func (s *FilmStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[s.name(collection)])
}

func (s *FilmStore) name(collection string) string {
	if collection == "" {
		return s.defaultCollection
	}
	return collection
}
