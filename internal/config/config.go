package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"textdoc/internal/article"
)

type Config struct {
	Article struct {
		Input         string   `yaml:"input"`
		FallbackTitle string   `yaml:"fallback_title"`
		Headings      []string `yaml:"headings"`
	} `yaml:"article"`
	Content struct {
		Dir    string `yaml:"dir"`
		Output string `yaml:"output"`
	} `yaml:"content"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Article.Input = "input.txt"
	cfg.Article.FallbackTitle = article.DefaultFallbackTitle
	cfg.Article.Headings = append([]string(nil), article.DefaultHeadings...)
	cfg.Content.Dir = "content"
	cfg.Content.Output = "docs"
	cfg.Storage.Path = "textdoc.db"
	cfg.Server.Addr = ":8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return &cfg
}

// LoadConfig reads the YAML file at path on top of the defaults. A missing
// file is not an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if v := os.Getenv("TEXTDOC_INPUT"); v != "" {
		cfg.Article.Input = v
	}
	if v := os.Getenv("TEXTDOC_DB"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("TEXTDOC_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TEXTDOC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults restores defaults for keys the file set to empty values.
func (c *Config) fillDefaults() {
	def := Default()
	if strings.TrimSpace(c.Article.Input) == "" {
		c.Article.Input = def.Article.Input
	}
	if len(c.Article.Headings) == 0 {
		c.Article.Headings = def.Article.Headings
	}
	if c.Content.Dir == "" {
		c.Content.Dir = def.Content.Dir
	}
	if c.Content.Output == "" {
		c.Content.Output = def.Content.Output
	}
	if c.Storage.Path == "" {
		c.Storage.Path = def.Storage.Path
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
}

// ParserOptions maps the article section onto parser options.
func (c *Config) ParserOptions() []article.Option {
	return []article.Option{
		article.WithHeadings(c.Article.Headings),
		article.WithFallbackTitle(c.Article.FallbackTitle),
	}
}

// NewParser builds a parser from the configured heading table.
func (c *Config) NewParser() *article.Parser {
	return article.New(c.ParserOptions()...)
}
