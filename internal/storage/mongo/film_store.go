// Package mongo persists film documents in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/JakeFAU/film-info-crawler/internal/film"
)

const urlIndexName = "url_unique"

// Config locates the film database.
type Config struct {
	URI        string
	Database   string
	Collection string
	// Timeout bounds each store operation; zero disables the bound.
	Timeout time.Duration
}

// FilmStore implements film.Store on a MongoDB database. Documents are keyed
// by url and written with field-level $set upserts.
type FilmStore struct {
	client            *mongo.Client
	db                *mongo.Database
	defaultCollection string
	timeout           time.Duration

	mu      sync.Mutex
	indexed map[string]bool
}

// Open connects, pings the primary, and ensures the url index on the default
// collection. Other collections get the index on their first upsert.
func Open(ctx context.Context, cfg Config) (*FilmStore, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := withTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	store := New(client.Database(cfg.Database), cfg.Collection, cfg.Timeout)
	store.client = client
	if err := store.EnsureIndexes(ctx, ""); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

// New wraps an existing database handle.
func New(db *mongo.Database, defaultCollection string, timeout time.Duration) *FilmStore {
	return &FilmStore{
		db:                db,
		defaultCollection: defaultCollection,
		timeout:           timeout,
		indexed:           make(map[string]bool),
	}
}

// Close disconnects the client opened by Open.
func (s *FilmStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

// EnsureIndexes creates the unique url index on collection.
func (s *FilmStore) EnsureIndexes(ctx context.Context, collection string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetName(urlIndexName).SetUnique(true),
	}
	name := s.collectionName(collection)
	if _, err := s.db.Collection(name).Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create url index on %s: %w", name, err)
	}
	s.mu.Lock()
	s.indexed[name] = true
	s.mu.Unlock()
	return nil
}

func (s *FilmStore) ensureIndexed(ctx context.Context, collection string) error {
	s.mu.Lock()
	done := s.indexed[s.collectionName(collection)]
	s.mu.Unlock()
	if done {
		return nil
	}
	return s.EnsureIndexes(ctx, collection)
}

// Exists reports whether a document with url is stored.
func (s *FilmStore) Exists(ctx context.Context, collection, url string) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.D{{Key: "_id", Value: 1}})
	err := s.collection(collection).FindOne(ctx, bson.D{{Key: "url", Value: url}}, opts).Err()
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("find %s: %w", url, err)
	}
	return true, nil
}

// LastUpdate returns the stored update_date. A document without one is
// reported as not found so it gets refreshed.
func (s *FilmStore) LastUpdate(ctx context.Context, collection, url string) (time.Time, bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var doc struct {
		UpdateDate *time.Time `bson:"update_date"`
	}
	opts := options.FindOne().SetProjection(bson.D{{Key: "update_date", Value: 1}})
	err := s.collection(collection).FindOne(ctx, bson.D{{Key: "url", Value: url}}, opts).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return time.Time{}, false, nil
	case err != nil:
		return time.Time{}, false, fmt.Errorf("find update date %s: %w", url, err)
	}
	if doc.UpdateDate == nil {
		return time.Time{}, false, nil
	}
	return *doc.UpdateDate, true, nil
}

// UpsertMany writes docs in one ordered bulk request. Only the fields each
// document carries are set; other stored fields are left alone.
func (s *FilmStore) UpsertMany(ctx context.Context, collection string, docs []film.Document) error {
	if len(docs) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		fields, err := toSetFields(doc)
		if err != nil {
			return err
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "url", Value: doc.DocumentURL()}}).
			SetUpdate(bson.D{{Key: "$set", Value: fields}}).
			SetUpsert(true))
	}
	if err := s.ensureIndexed(ctx, collection); err != nil {
		return err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.collection(collection).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("bulk upsert %d documents: %w", len(docs), err)
	}
	return nil
}

// Delete removes the document with url. Deleting a missing document is not
// an error.
func (s *FilmStore) Delete(ctx context.Context, collection, url string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.collection(collection).DeleteOne(ctx, bson.D{{Key: "url", Value: url}}); err != nil {
		return fmt.Errorf("delete %s: %w", url, err)
	}
	return nil
}

func (s *FilmStore) collection(name string) *mongo.Collection {
	return s.db.Collection(s.collectionName(name))
}

func (s *FilmStore) collectionName(name string) string {
	if name == "" {
		return s.defaultCollection
	}
	return name
}

func toSetFields(doc film.Document) (bson.D, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", doc.DocumentURL(), err)
	}
	var fields bson.D
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", doc.DocumentURL(), err)
	}
	return fields, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
