package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"textdoc/internal/article"
	"textdoc/internal/crawler"
	"textdoc/internal/generator"
	"textdoc/internal/logging"
	"textdoc/internal/storage"
)

// Server exposes the configured article and stored documents over HTTP.
type Server struct {
	inputPath string
	parser    *article.Parser
	store     storage.DocumentStore
	html      *generator.HTMLRenderer
	log       logging.Logger
}

// New builds a server. store may be nil, in which case the document API
// answers 503.
func New(inputPath string, parser *article.Parser, store storage.DocumentStore, log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	if parser == nil {
		parser = article.New()
	}
	return &Server{
		inputPath: inputPath,
		parser:    parser,
		store:     store,
		html:      generator.NewHTMLRenderer(),
		log:       log,
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/article", http.StatusFound)
	})
	r.Get("/article", s.handleArticlePage)
	r.Get("/api/article", s.handleArticleJSON)

	r.Route("/api/documents", func(r chi.Router) {
		r.Get("/", s.handleListDocuments)
		r.Get("/*", s.handleGetDocument)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// loadArticle re-reads and parses the input on every call so edits show up
// without a restart.
func (s *Server) loadArticle() (article.Document, error) {
	raw, err := crawler.LoadFile(s.inputPath)
	if err != nil {
		return article.Document{}, err
	}
	if raw == "" {
		s.log.Warn("article input missing or empty", "path", s.inputPath)
	}
	return s.parser.Parse(raw), nil
}

func (s *Server) handleArticlePage(w http.ResponseWriter, r *http.Request) {
	doc, err := s.loadArticle()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, pageData{Document: doc, Empty: doc.IsEmpty(), Source: s.inputPath}); err != nil {
		s.log.Error("render article page", "error", err)
	}
}

func (s *Server) handleArticleJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := s.loadArticle()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "document store not configured"})
		return
	}
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "document store not configured"})
		return
	}
	name := strings.Trim(chi.URLParam(r, "*"), "/")
	rec, err := s.store.GetDocument(r.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(generator.RenderMarkdown(rec.Document)))
	case "html":
		out, err := s.html.Render(rec.Document)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(out))
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"name":         rec.Name,
			"revision_id":  rec.RevisionID,
			"content_hash": rec.ContentHash,
			"commit_sha":   rec.CommitSHA,
			"updated_at":   rec.UpdatedAt,
			"document":     rec.Document,
		})
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type pageData struct {
	Document article.Document
	Empty    bool
	Source   string
}

var pageTemplate = template.Must(template.New("article").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Document.Title}}</title>
</head>
<body>
<main>
<header>
<h1>{{.Document.Title}}</h1>
<p class="source">Rendered from {{.Source}}.</p>
</header>
{{- if .Empty}}
<p class="empty">No article content found. Add text to {{.Source}} to render it here.</p>
{{- else}}
{{- range .Document.Sections}}
<section>
<h2>{{.Title}}</h2>
{{- range .Blocks}}
{{- if eq (print .Kind) "paragraph"}}
<p>{{.Text}}</p>
{{- else if eq (print .Kind) "list"}}
<ul>
{{- range .Items}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- else if eq (print .Kind) "heading"}}
<h3>{{.Text}}</h3>
{{- end}}
{{- end}}
</section>
{{- end}}
{{- end}}
</main>
</body>
</html>
`))
