// Package remote abstracts the hosted document store the platform keeps its
// records and settings in. Writes are full-document replaces; there is no
// cross-client locking, so the last writer wins at the storage layer.
package remote

import (
	"context"
	"encoding/json"
	"time"
)

// Document is one row/document in the remote store. Payload carries the
// JSON-serialized entity (a Record or the AdminSettings singleton).
type Document struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store is the read/write contract against the remote document store.
type Store interface {
	// GetDocument returns the document with the given id, or
	// common.ErrNotFound when absent.
	GetDocument(ctx context.Context, id string) (*Document, error)

	// SetDocument upserts the document, replacing the full payload.
	SetDocument(ctx context.Context, doc *Document) error
}
