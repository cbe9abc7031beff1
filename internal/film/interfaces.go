package film

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// CodeLookup resolves a normalized search code to external metadata.
type CodeLookup interface {
	Lookup(ctx context.Context, searchCode string) (CodeInfo, error)
}

// Store persists film documents keyed by URL. An empty collection selects the
// store's default collection.
type Store interface {
	Exists(ctx context.Context, collection, url string) (bool, error)
	// LastUpdate reports the update_date of the stored document, if any.
	LastUpdate(ctx context.Context, collection, url string) (time.Time, bool, error)
	UpsertMany(ctx context.Context, collection string, docs []Document) error
	Delete(ctx context.Context, collection, url string) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes change events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
