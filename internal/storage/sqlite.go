package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"textdoc/internal/article"
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ DocumentStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			name TEXT PRIMARY KEY,
			revision_id TEXT NOT NULL,
			title TEXT NOT NULL,
			content_hash TEXT,
			commit_sha TEXT,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sections (
			document TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
			ord INTEGER NOT NULL,
			title TEXT NOT NULL,
			PRIMARY KEY (document, ord)
		);`,
		`CREATE TABLE IF NOT EXISTS blocks (
			document TEXT NOT NULL,
			section_ord INTEGER NOT NULL,
			ord INTEGER NOT NULL,
			kind TEXT NOT NULL,
			text TEXT,
			items JSON,
			PRIMARY KEY (document, section_ord, ord),
			FOREIGN KEY (document, section_ord) REFERENCES sections(document, ord) ON DELETE CASCADE
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveDocument(ctx context.Context, rec Record) (string, error) {
	if rec.Name == "" {
		return "", errors.New("storage: document name is required")
	}
	revision := rec.RevisionID
	if revision == "" {
		revision = uuid.NewString()
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	// Replace the previous snapshot wholesale; cascades clear sections and blocks.
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, rec.Name); err != nil {
		return "", fmt.Errorf("failed to clear document %s: %w", rec.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (name, revision_id, title, content_hash, commit_sha, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Name, revision, rec.Document.Title, rec.ContentHash, rec.CommitSHA, updated.UTC()); err != nil {
		return "", fmt.Errorf("failed to insert document %s: %w", rec.Name, err)
	}

	secStmt, err := tx.PrepareContext(ctx, `INSERT INTO sections (document, ord, title) VALUES (?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer secStmt.Close()

	blockStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO blocks (document, section_ord, ord, kind, text, items)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", err
	}
	defer blockStmt.Close()

	for i, sec := range rec.Document.Sections {
		if _, err := secStmt.ExecContext(ctx, rec.Name, i, sec.Title); err != nil {
			return "", fmt.Errorf("failed to insert section %d: %w", i, err)
		}
		for j, b := range sec.Blocks {
			var items []byte
			if b.Kind == article.KindList {
				if items, err = json.Marshal(b.Items); err != nil {
					return "", err
				}
			}
			if _, err := blockStmt.ExecContext(ctx, rec.Name, i, j, string(b.Kind), b.Text, items); err != nil {
				return "", fmt.Errorf("failed to insert block %d/%d: %w", i, j, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return revision, nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, name string) (*Record, error) {
	rec := &Record{Name: name}
	var contentHash, commit sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT revision_id, title, content_hash, commit_sha, updated_at FROM documents WHERE name = ?
	`, name).Scan(&rec.RevisionID, &rec.Document.Title, &contentHash, &commit, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document %s: %w", name, err)
	}
	rec.ContentHash = contentHash.String
	rec.CommitSHA = commit.String

	// 1. Load Sections
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM sections WHERE document = ? ORDER BY ord`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	sections := []article.Section{}
	for rows.Next() {
		var sec article.Section
		if err := rows.Scan(&sec.Title); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sec.Blocks = []article.Block{}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 2. Load Blocks
	blockRows, err := s.db.QueryContext(ctx, `
		SELECT section_ord, kind, text, items FROM blocks WHERE document = ? ORDER BY section_ord, ord
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer blockRows.Close()

	for blockRows.Next() {
		var (
			secOrd int
			kind   string
			text   sql.NullString
			items  []byte
		)
		if err := blockRows.Scan(&secOrd, &kind, &text, &items); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		if secOrd < 0 || secOrd >= len(sections) {
			return nil, fmt.Errorf("block references missing section %d", secOrd)
		}
		b := article.Block{Kind: article.BlockKind(kind), Text: text.String}
		if len(items) > 0 {
			if err := json.Unmarshal(items, &b.Items); err != nil {
				return nil, fmt.Errorf("failed to decode list items: %w", err)
			}
		}
		sections[secOrd].Blocks = append(sections[secOrd].Blocks, b)
	}
	if err := blockRows.Err(); err != nil {
		return nil, err
	}

	rec.Document.Sections = sections
	return rec, nil
}

func (s *SQLiteStore) ContentHash(ctx context.Context, name string) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT content_hash FROM documents WHERE name = ?`, name).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return hash.String, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.name, d.title, d.revision_id, d.content_hash, d.commit_sha, d.updated_at,
			(SELECT COUNT(*) FROM sections s WHERE s.document = d.name)
		FROM documents d ORDER BY d.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var hash, commit sql.NullString
		if err := rows.Scan(&sum.Name, &sum.Title, &sum.RevisionID, &hash, &commit, &sum.UpdatedAt, &sum.Sections); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		sum.ContentHash = hash.String
		sum.CommitSHA = commit.String
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
