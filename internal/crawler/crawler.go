package crawler

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"textdoc/internal/logging"
)

// Source is one article text file found on disk.
type Source struct {
	Name    string // path relative to the scan root, without extension
	Path    string
	Content string
	Hash    string
}

// LoadFile reads an article. A missing file reads as empty text so the
// parser's empty-input handling takes over.
func LoadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read article %s: %w", path, err)
	}
	return normalizeText(string(b)), nil
}

// HashContent returns the hex SHA-256 of normalized article text.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// normalizeText drops a leading byte order mark and converts line endings
// to LF.
func normalizeText(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Crawler scans a directory for article sources.
type Crawler struct {
	ignored []string
	ext     string
	log     logging.Logger
}

// NewCrawler creates a new crawler instance for *.txt sources.
func NewCrawler(log logging.Logger) *Crawler {
	if log == nil {
		log = logging.Nop()
	}
	return &Crawler{
		ignored: []string{".git", "vendor", "node_modules", "testdata"},
		ext:     ".txt",
		log:     log,
	}
}

// ScanDir walks root and streams every article through onSource.
// Unreadable files are logged and skipped.
func (c *Crawler) ScanDir(root string, onSource func(Source) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path == root {
				return nil
			}
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !strings.EqualFold(filepath.Ext(d.Name()), c.ext) {
			return nil
		}

		b, err := os.ReadFile(path)
		if err != nil {
			c.log.Warn("skipping unreadable article", "path", path, "error", err)
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = d.Name()
		}
		content := normalizeText(string(b))
		return onSource(Source{
			Name:    SourceName(rel),
			Path:    path,
			Content: content,
			Hash:    HashContent(content),
		})
	})
}

// SourceName derives the document name from a path relative to the content
// root: slash-separated, extension dropped.
func SourceName(rel string) string {
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}
