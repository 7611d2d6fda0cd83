package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textdoc/internal/article"
	"textdoc/internal/storage"
)

func newTestServer(t *testing.T, input string) (*Server, *storage.SQLiteStore, string) {
	t.Helper()
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "input.txt")
	if input != "" {
		require.NoError(t, os.WriteFile(inputPath, []byte(input), 0644))
	}
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "textdoc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p := article.New(article.WithHeadings([]string{"Intro", "Sources:"}))
	return New(inputPath, p, store, nil), store, inputPath
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t, "")
	rec := do(t, s.Routes(), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestArticlePage(t *testing.T) {
	s, _, _ := newTestServer(t, "Intro\nHello <world>.\n    - first\n    - second\n\nSources:\n    - paper")
	rec := do(t, s.Routes(), "/article")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Intro</h1>")
	assert.Contains(t, body, "<h2>Sources:</h2>")
	assert.Contains(t, body, "<p>Hello &lt;world&gt;.</p>")
	assert.Contains(t, body, "<li>first</li>")
	assert.Contains(t, body, "<li>paper</li>")
	assert.NotContains(t, body, "No article content found")
}

func TestArticlePage_MissingInput(t *testing.T) {
	s, _, _ := newTestServer(t, "")
	rec := do(t, s.Routes(), "/article")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No article content found")
	assert.Contains(t, rec.Body.String(), "<h1>Article</h1>")
}

func TestArticleJSON_ReflectsEdits(t *testing.T) {
	s, _, inputPath := newTestServer(t, "Intro\nfirst")
	h := s.Routes()

	var doc article.Document
	rec := do(t, h, "/api/article")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, []article.Block{article.Paragraph("first")}, doc.Sections[0].Blocks)

	require.NoError(t, os.WriteFile(inputPath, []byte("Intro\nsecond"), 0644))
	rec = do(t, h, "/api/article")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, []article.Block{article.Paragraph("second")}, doc.Sections[0].Blocks)
}

func TestDocumentsAPI(t *testing.T) {
	s, store, _ := newTestServer(t, "")
	h := s.Routes()
	_, err := store.SaveDocument(context.Background(), storage.Record{
		Name:     "guides/llm",
		Document: article.Parse("Conclusion\nDone."),
	})
	require.NoError(t, err)

	t.Run("list", func(t *testing.T) {
		rec := do(t, h, "/api/documents")
		require.Equal(t, http.StatusOK, rec.Code)
		var list []storage.Summary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, "guides/llm", list[0].Name)
	})

	t.Run("get json", func(t *testing.T) {
		rec := do(t, h, "/api/documents/guides/llm")
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Name     string           `json:"name"`
			Document article.Document `json:"document"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "guides/llm", body.Name)
		assert.Equal(t, "Conclusion", body.Document.Sections[0].Title)
	})

	t.Run("get markdown", func(t *testing.T) {
		rec := do(t, h, "/api/documents/guides/llm?format=md")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "## Conclusion")
	})

	t.Run("get html", func(t *testing.T) {
		rec := do(t, h, "/api/documents/guides/llm?format=html")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<p>Done.</p>")
	})

	t.Run("not found", func(t *testing.T) {
		rec := do(t, h, "/api/documents/missing")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDocumentsAPI_NoStore(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "input.txt"), nil, nil, nil)
	rec := do(t, s.Routes(), "/api/documents")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
