package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"textdoc/internal/config"
	"textdoc/internal/crawler"
	"textdoc/internal/generator"
	"textdoc/internal/logging"
	"textdoc/internal/pipeline"
	"textdoc/internal/server"
	"textdoc/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by subcommands once flags are parsed.
type app struct {
	configPath string
	dbPath     string

	cfg  *config.Config
	logs *logging.Provider
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "textdoc",
		Short:        "Parse plain-text articles into structured documents",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "textdoc.yaml", "Path to the YAML configuration file")
	root.PersistentFlags().StringVarP(&a.dbPath, "db", "d", "", "Path to the document database (SQLite); overrides storage.path")

	root.AddCommand(
		a.parseCmd(),
		a.renderCmd(),
		a.syncCmd(),
		a.showCmd(),
		a.serveCmd(),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.dbPath != "" {
		cfg.Storage.Path = a.dbPath
	}
	logs, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logs = logs
	return nil
}

// readSource loads the named file, or the configured input when path is
// empty. A missing input reads as empty text.
func (a *app) readSource(path string) (string, error) {
	if path == "" {
		path = a.cfg.Article.Input
	}
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	raw, err := crawler.LoadFile(path)
	if err != nil {
		return "", err
	}
	if raw == "" {
		a.logs.GetLogger("textdoc.cli").Warn("article input missing or empty", "path", path)
	}
	return raw, nil
}

func (a *app) parseCmd() *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse an article and print the document model as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.readSource(firstArg(args))
			if err != nil {
				return err
			}
			doc := a.cfg.NewParser().Parse(raw)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(doc)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output")
	return cmd
}

func (a *app) renderCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render an article as Markdown, HTML or JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := a.readSource(firstArg(args))
			if err != nil {
				return err
			}
			doc := a.cfg.NewParser().Parse(raw)

			var body string
			switch strings.ToLower(format) {
			case "md", "markdown":
				body = generator.RenderMarkdown(doc)
			case "html":
				if body, err = generator.RenderHTML(doc); err != nil {
					return err
				}
			case "json":
				if out != "" {
					return generator.SaveDocument(out, doc)
				}
				if err := generator.ValidateDocument(doc); err != nil {
					return err
				}
				b, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return err
				}
				body = string(b) + "\n"
			default:
				return fmt.Errorf("unsupported format %q (want md, html or json)", format)
			}

			if out == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), body)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return err
			}
			return os.WriteFile(out, []byte(body), 0644)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "Output format: md, html or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this file instead of stdout")
	return cmd
}

func (a *app) syncCmd() *cobra.Command {
	var opts pipeline.Options
	var contentDir, outputDir string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Parse every article in the content directory into the database and output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewSQLiteStore(a.cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			s := pipeline.NewSync(store, a.cfg.NewParser(), a.logs.GetLogger("textdoc.sync"))
			s.ContentDir = firstNonEmpty(contentDir, a.cfg.Content.Dir)
			s.OutputDir = firstNonEmpty(outputDir, a.cfg.Content.Output)

			res, err := s.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "parsed %d, unchanged %d, removed %d\n",
				len(res.Parsed), len(res.Skipped), len(res.Removed))
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Reparse articles even if unchanged")
	cmd.Flags().StringVar(&opts.BaseRef, "since", "", "Only reparse articles git reports as changed since this ref")
	cmd.Flags().StringVar(&contentDir, "content", "", "Content directory (defaults to content.dir)")
	cmd.Flags().StringVar(&outputDir, "out", "", "Output directory (defaults to content.output)")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a stored document as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewSQLiteStore(a.cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			rec, err := store.GetDocument(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), generator.RenderMarkdown(rec.Document))
			return err
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured article and stored documents over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewSQLiteStore(a.cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.cfg.Article.Input, a.cfg.NewParser(), store, a.logs.GetLogger("textdoc.http"))
			return srv.ListenAndServe(ctx, firstNonEmpty(addr, a.cfg.Server.Addr))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	return cmd
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
