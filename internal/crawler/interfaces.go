package crawler

import (
	"context"
	"io"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// HeadlessDetector decides whether a headless fetch is warranted.
type HeadlessDetector interface {
	ShouldPromote(probe FetchResponse) bool
}

// PageFetcher turns a URL into a FetchResult. Failures are reported inside the result.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, mode Mode) FetchResult
}

// FeedProber guesses and validates conventional feed locations.
type FeedProber interface {
	Probe(ctx context.Context, bases []string) []string
}

// PageReader runs the site pipeline for one URL.
type PageReader interface {
	Read(ctx context.Context, url string) (*PageRecord, error)
}

// URLStore answers which URLs already exist in a table.
type URLStore interface {
	URLsAlreadyStored(ctx context.Context, table string, urls []string) ([]string, error)
}

// RowWriter appends rows to a table and returns how many were written.
type RowWriter interface {
	InsertRows(ctx context.Context, table string, rows []Row) (int64, error)
}

// BlobStore writes and reads raw artifacts.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
	GetObject(ctx context.Context, path string) ([]byte, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Embedder turns texts into vectors. Downstream consumers provide implementations.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer runs a prompt against a language model and returns its parsed JSON answer.
type Completer interface {
	Complete(ctx context.Context, prompt string, model string) (map[string]any, error)
}

// Hasher computes digests for deduplication/integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
