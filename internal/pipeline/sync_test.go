package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textdoc/internal/article"
	"textdoc/internal/generator"
	"textdoc/internal/logging"
	"textdoc/internal/storage"
)

func setupSync(t *testing.T) (*Sync, *storage.SQLiteStore, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(root, "textdoc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s := NewSync(store, article.New(article.WithHeadings([]string{"Intro", "Conclusion"})), nil)
	s.ContentDir = filepath.Join(root, "content")
	s.OutputDir = filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(s.ContentDir, "guides"), 0755))
	return s, store, root
}

func writeSource(t *testing.T, s *Sync, rel, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(s.ContentDir, rel), []byte(body), 0644))
}

func TestSync_Run(t *testing.T) {
	s, store, _ := setupSync(t)
	ctx := context.Background()

	writeSource(t, s, "llm.txt", "My Article\n\nIntro\nHello there.\n    - one\n    - two\n\nConclusion\nBye.")
	writeSource(t, s, "guides/plain.txt", "No headings here.\nJust prose.")
	writeSource(t, s, "empty.txt", "")

	res, err := s.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"empty", "guides/plain", "llm"}, res.Parsed)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Removed)

	rec, err := store.GetDocument(ctx, "llm")
	require.NoError(t, err)
	assert.Equal(t, "My Article", rec.Document.Title)
	require.Len(t, rec.Document.Sections, 2)
	assert.Equal(t, []article.Block{
		article.Paragraph("Hello there."),
		article.List([]string{"one", "two"}),
	}, rec.Document.Sections[0].Blocks)

	t.Run("writes outputs", func(t *testing.T) {
		md, err := os.ReadFile(filepath.Join(s.OutputDir, "llm.md"))
		require.NoError(t, err)
		assert.Contains(t, string(md), "## Intro")

		html, err := os.ReadFile(filepath.Join(s.OutputDir, "guides", "plain.html"))
		require.NoError(t, err)
		assert.Contains(t, string(html), "No headings here. Just prose.")

		model, err := generator.LoadDocument(filepath.Join(s.OutputDir, "empty.json"))
		require.NoError(t, err)
		assert.True(t, model.IsEmpty())
	})

	t.Run("writes report", func(t *testing.T) {
		b, err := os.ReadFile(filepath.Join(s.OutputDir, "sync_report.json"))
		require.NoError(t, err)
		var report generator.Report
		require.NoError(t, json.Unmarshal(b, &report))
		assert.Equal(t, 3, report.Summary.DocumentCount)
		assert.Equal(t, 1, report.Summary.EmptyDocuments)
		assert.Equal(t, 2, report.Summary.FallbackDocuments)
	})
}

func TestSync_SkipsUnchangedAndPrunes(t *testing.T) {
	s, store, _ := setupSync(t)
	ctx := context.Background()

	writeSource(t, s, "a.txt", "Intro\nfirst")
	writeSource(t, s, "b.txt", "Intro\nsecond")
	_, err := s.Run(ctx, Options{})
	require.NoError(t, err)

	res, err := s.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Parsed)
	assert.Equal(t, []string{"a", "b"}, res.Skipped)

	writeSource(t, s, "a.txt", "Intro\nfirst, revised")
	require.NoError(t, os.Remove(filepath.Join(s.ContentDir, "b.txt")))

	res, err = s.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Parsed)
	assert.Equal(t, []string{"b"}, res.Removed)

	_, err = store.GetDocument(ctx, "b")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = os.Stat(filepath.Join(s.OutputDir, "b.md"))
	assert.True(t, os.IsNotExist(err))

	rec, err := store.GetDocument(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []article.Block{article.Paragraph("first, revised")}, rec.Document.Sections[0].Blocks)

	res, err = s.Run(ctx, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Parsed)
}

func TestSync_CancelledContext(t *testing.T) {
	s, _, _ := setupSync(t)
	writeSource(t, s, "a.txt", "Intro\nfirst")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSync_MissingContentDir(t *testing.T) {
	s, _, root := setupSync(t)
	s.ContentDir = filepath.Join(root, "nope")

	_, err := s.Run(context.Background(), Options{})
	require.Error(t, err)
}

func TestSync_OutputFailureLeavesSourcePending(t *testing.T) {
	s, store, _ := setupSync(t)
	ctx := context.Background()
	writeSource(t, s, "a.txt", "Intro\nfirst")

	blocker := filepath.Join(s.OutputDir, "a.json")
	require.NoError(t, os.MkdirAll(blocker, 0755))

	_, err := s.Run(ctx, Options{})
	require.Error(t, err)
	_, err = store.GetDocument(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, os.Remove(blocker))
	res, err := s.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Parsed)
	assert.Empty(t, res.Skipped)

	model, err := generator.LoadDocument(blocker)
	require.NoError(t, err)
	assert.Equal(t, "Intro", model.Sections[0].Title)
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) WithContext(context.Context) logging.Logger { return l }

func TestSync_PruneLogsRemoveFailures(t *testing.T) {
	s, store, _ := setupSync(t)
	log := &recordingLogger{}
	s.log = log
	ctx := context.Background()

	writeSource(t, s, "a.txt", "Intro\nfirst")
	_, err := s.Run(ctx, Options{})
	require.NoError(t, err)

	// A non-empty directory in place of a.md cannot be removed.
	md := filepath.Join(s.OutputDir, "a.md")
	require.NoError(t, os.Remove(md))
	require.NoError(t, os.MkdirAll(filepath.Join(md, "keep"), 0755))
	require.NoError(t, os.Remove(filepath.Join(s.ContentDir, "a.txt")))

	res, err := s.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Removed)
	_, err = store.GetDocument(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = os.Stat(filepath.Join(s.OutputDir, "a.json"))
	assert.True(t, os.IsNotExist(err))
	assert.Contains(t, log.warns, "failed to remove output")
}
