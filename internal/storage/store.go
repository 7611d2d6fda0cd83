package storage

import (
	"context"
	"errors"
	"time"

	"textdoc/internal/article"
)

// ErrNotFound is returned when a named document is not stored.
var ErrNotFound = errors.New("storage: document not found")

// Record is one stored snapshot of a parsed article.
type Record struct {
	Name        string
	RevisionID  string
	ContentHash string
	CommitSHA   string
	UpdatedAt   time.Time
	Document    article.Document
}

// Summary describes a stored document without its blocks.
type Summary struct {
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	RevisionID  string    `json:"revision_id"`
	ContentHash string    `json:"content_hash"`
	CommitSHA   string    `json:"commit_sha,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
	Sections    int       `json:"sections"`
}

// DocumentStore persists parsed documents by name.
type DocumentStore interface {
	// SaveDocument replaces the stored snapshot for rec.Name and returns the
	// new revision ID.
	SaveDocument(ctx context.Context, rec Record) (string, error)

	// GetDocument loads the latest snapshot, sections and blocks in order.
	GetDocument(ctx context.Context, name string) (*Record, error)

	// ContentHash returns the source hash of the stored snapshot.
	ContentHash(ctx context.Context, name string) (string, error)

	ListDocuments(ctx context.Context) ([]Summary, error)

	DeleteDocument(ctx context.Context, name string) error

	Close() error
}
