package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"textdoc/internal/article"
	"textdoc/internal/crawler"
	"textdoc/internal/generator"
	"textdoc/internal/git"
	"textdoc/internal/logging"
	"textdoc/internal/storage"
)

// Options controls one sync run.
type Options struct {
	// Force reparses sources even when their hash is unchanged.
	Force bool
	// BaseRef restricts parsing to sources git reports as changed since
	// the given ref. Empty means every source is considered.
	BaseRef string
}

// Result lists document names by outcome.
type Result struct {
	Parsed  []string
	Skipped []string
	Removed []string
}

// Sync parses article sources from a content directory into the store and
// renders them to the output directory.
type Sync struct {
	ContentDir string
	OutputDir  string

	store   storage.DocumentStore
	parser  *article.Parser
	crawler *crawler.Crawler
	html    *generator.HTMLRenderer
	log     logging.Logger
}

func NewSync(store storage.DocumentStore, parser *article.Parser, log logging.Logger) *Sync {
	if log == nil {
		log = logging.Nop()
	}
	if parser == nil {
		parser = article.New()
	}
	return &Sync{
		ContentDir: "content",
		OutputDir:  "docs",
		store:      store,
		parser:     parser,
		crawler:    crawler.NewCrawler(log),
		html:       generator.NewHTMLRenderer(),
		log:        log,
	}
}

func (s *Sync) Run(ctx context.Context, opts Options) (*Result, error) {
	report := generator.NewReport("sync", s.OutputDir)
	reportPath := filepath.Join(s.OutputDir, "sync_report.json")
	defer func() {
		if err := report.Save(reportPath); err != nil {
			s.log.Warn("failed to write sync report", "path", reportPath, "error", err)
		}
	}()

	sources, err := s.scanStage(report)
	if err != nil {
		return nil, err
	}

	changed, err := s.changedStage(ctx, report, opts.BaseRef)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	commit := git.HeadCommit(ctx, s.ContentDir)

	h := report.BeginStage("parse")
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			report.EndStage(h, "error", nil, nil, err)
			return nil, err
		}
		parsed, err := s.syncSource(ctx, report, src, commit, changed, opts.Force)
		if err != nil {
			report.EndStage(h, "error", nil, nil, err)
			return nil, err
		}
		if parsed {
			res.Parsed = append(res.Parsed, src.Name)
		} else {
			res.Skipped = append(res.Skipped, src.Name)
		}
	}
	report.EndStage(h, "ok", map[string]float64{
		"parsed":  float64(len(res.Parsed)),
		"skipped": float64(len(res.Skipped)),
	}, nil, nil)

	removed, err := s.pruneStage(ctx, report, sources)
	if err != nil {
		return nil, err
	}
	res.Removed = removed

	s.log.Info("sync complete",
		"parsed", len(res.Parsed),
		"skipped", len(res.Skipped),
		"removed", len(res.Removed),
	)
	return res, nil
}

func (s *Sync) scanStage(report *generator.Report) ([]crawler.Source, error) {
	h := report.BeginStage("scan")
	var sources []crawler.Source
	err := s.crawler.ScanDir(s.ContentDir, func(src crawler.Source) error {
		sources = append(sources, src)
		return nil
	})
	if err != nil {
		report.EndStage(h, "error", nil, nil, err)
		return nil, fmt.Errorf("failed to scan %s: %w", s.ContentDir, err)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	report.EndStage(h, "ok", map[string]float64{"sources": float64(len(sources))}, nil, nil)
	s.log.Debug("scanned content", "dir", s.ContentDir, "sources", len(sources))
	return sources, nil
}

// changedStage returns nil when every source should be considered.
func (s *Sync) changedStage(ctx context.Context, report *generator.Report, baseRef string) (map[string]struct{}, error) {
	if baseRef == "" {
		return nil, nil
	}
	h := report.BeginStage("detect_changes")
	paths, err := git.ChangedFiles(ctx, s.ContentDir, baseRef)
	if err != nil {
		report.EndStage(h, "error", nil, nil, err)
		return nil, fmt.Errorf("failed to get git changes: %w", err)
	}
	changed := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		changed[crawler.SourceName(p)] = struct{}{}
	}
	report.EndStage(h, "ok", map[string]float64{"changed_files": float64(len(paths))}, []string{"base ref " + baseRef}, nil)
	return changed, nil
}

func (s *Sync) syncSource(ctx context.Context, report *generator.Report, src crawler.Source, commit string, changed map[string]struct{}, force bool) (bool, error) {
	if changed != nil {
		if _, ok := changed[src.Name]; !ok && !force {
			return false, nil
		}
	}
	if !force {
		stored, err := s.store.ContentHash(ctx, src.Name)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return false, fmt.Errorf("failed to read stored hash for %s: %w", src.Name, err)
		case stored == src.Hash:
			return false, nil
		}
	}

	doc := s.parser.Parse(src.Content)
	report.AddDocument(src.Name, src.Hash, doc, s.parser.IsFallback(doc))
	if doc.IsEmpty() {
		s.log.Warn("article has no content", "name", src.Name, "path", src.Path)
	}

	// Outputs go first: the stored hash marks a source as done.
	if err := s.writeOutputs(src.Name, doc); err != nil {
		return false, err
	}

	rev, err := s.store.SaveDocument(ctx, storage.Record{
		Name:        src.Name,
		ContentHash: src.Hash,
		CommitSHA:   commit,
		Document:    doc,
	})
	if err != nil {
		return false, fmt.Errorf("failed to store %s: %w", src.Name, err)
	}
	s.log.Info("parsed article", "name", src.Name, "revision", rev, "sections", len(doc.Sections))
	return true, nil
}

func (s *Sync) writeOutputs(name string, doc article.Document) error {
	base := filepath.Join(s.OutputDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(base), 0755); err != nil {
		return err
	}
	if err := generator.SaveDocument(base+".json", doc); err != nil {
		return fmt.Errorf("failed to write model for %s: %w", name, err)
	}
	if err := os.WriteFile(base+".md", []byte(generator.RenderMarkdown(doc)), 0644); err != nil {
		return err
	}
	html, err := s.html.Render(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(base+".html", []byte(html), 0644)
}

// pruneStage deletes stored documents whose source file is gone.
func (s *Sync) pruneStage(ctx context.Context, report *generator.Report, sources []crawler.Source) ([]string, error) {
	h := report.BeginStage("prune")
	present := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		present[src.Name] = struct{}{}
	}

	stored, err := s.store.ListDocuments(ctx)
	if err != nil {
		report.EndStage(h, "error", nil, nil, err)
		return nil, err
	}

	var removed []string
	for _, doc := range stored {
		if _, ok := present[doc.Name]; ok {
			continue
		}
		if err := s.store.DeleteDocument(ctx, doc.Name); err != nil && !errors.Is(err, storage.ErrNotFound) {
			report.EndStage(h, "error", nil, nil, err)
			return nil, fmt.Errorf("failed to delete %s: %w", doc.Name, err)
		}
		base := filepath.Join(s.OutputDir, filepath.FromSlash(doc.Name))
		for _, ext := range []string{".json", ".md", ".html"} {
			if err := os.Remove(base + ext); err != nil && !errors.Is(err, fs.ErrNotExist) {
				s.log.Warn("failed to remove output", "path", base+ext, "error", err)
			}
		}
		removed = append(removed, doc.Name)
		s.log.Info("removed article", "name", doc.Name)
	}
	report.EndStage(h, "ok", map[string]float64{"removed": float64(len(removed))}, nil, nil)
	return removed, nil
}
