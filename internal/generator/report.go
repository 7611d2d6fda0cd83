package generator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"textdoc/internal/article"
)

type ReportSignal struct {
	Code     string  `json:"code"`
	Stage    string  `json:"stage"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Document string  `json:"document,omitempty"`
	Value    float64 `json:"value,omitempty"`
}

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// DocumentMetric records the outcome of one parsed article.
type DocumentMetric struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	Hash       string `json:"hash"`
	Sections   int    `json:"sections"`
	Paragraphs int    `json:"paragraphs"`
	Lists      int    `json:"lists"`
	ListItems  int    `json:"list_items"`
	Fallback   bool   `json:"fallback"`
	Empty      bool   `json:"empty"`
}

type ReportSummary struct {
	StageCount        int            `json:"stage_count"`
	DocumentCount     int            `json:"document_count"`
	FailedStages      int            `json:"failed_stages"`
	EmptyDocuments    int            `json:"empty_documents"`
	FallbackDocuments int            `json:"fallback_documents"`
	SignalsBySeverity map[string]int `json:"signals_by_severity"`
}

// Report collects stage timings, per-document metrics and signals for one
// pipeline run.
type Report struct {
	Version     string           `json:"version"`
	Mode        string           `json:"mode"`
	GeneratedAt string           `json:"generated_at"`
	OutputDir   string           `json:"output_dir"`
	Stages      []StageMetric    `json:"stages"`
	Documents   []DocumentMetric `json:"documents,omitempty"`
	Signals     []ReportSignal   `json:"signals,omitempty"`
	Summary     ReportSummary    `json:"summary"`
}

type StageHandle struct {
	name    string
	started time.Time
}

func NewReport(mode, outputDir string) *Report {
	return &Report{
		Version:     "v1",
		Mode:        mode,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		OutputDir:   outputDir,
		Stages:      []StageMetric{},
		Documents:   []DocumentMetric{},
		Signals:     []ReportSignal{},
	}
}

func (r *Report) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

func (r *Report) EndStage(h StageHandle, status string, counters map[string]float64, notes []string, err error) {
	if r == nil || strings.TrimSpace(h.name) == "" {
		return
	}
	if strings.TrimSpace(status) == "" {
		status = "ok"
	}
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     status,
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
		Notes:      cleanNotes(notes),
	}
	if err != nil {
		m.Error = err.Error()
		if status == "ok" {
			m.Status = "error"
		}
	}
	r.Stages = append(r.Stages, m)
}

func (r *Report) AddSignal(code, stage, severity, document, message string, value float64) {
	if r == nil {
		return
	}
	s := ReportSignal{
		Code:     strings.TrimSpace(code),
		Stage:    strings.TrimSpace(stage),
		Severity: strings.ToLower(strings.TrimSpace(severity)),
		Message:  strings.TrimSpace(message),
		Document: strings.TrimSpace(document),
		Value:    value,
	}
	if s.Code == "" || s.Stage == "" || s.Severity == "" || s.Message == "" {
		return
	}
	r.Signals = append(r.Signals, s)
}

// AddDocument records metrics for a parsed document and raises the
// empty_document and fallback_section signals.
func (r *Report) AddDocument(name, hash string, doc article.Document, fallback bool) {
	if r == nil || strings.TrimSpace(name) == "" {
		return
	}
	st := doc.Stats()
	m := DocumentMetric{
		Name:       name,
		Title:      doc.Title,
		Hash:       hash,
		Sections:   st.Sections,
		Paragraphs: st.Paragraphs,
		Lists:      st.Lists,
		ListItems:  st.ListItems,
		Fallback:   fallback,
		Empty:      doc.IsEmpty(),
	}
	r.Documents = append(r.Documents, m)

	if m.Empty {
		r.AddSignal("empty_document", "parse", "warning", name, "Article has no content blocks.", 0)
	}
	if fallback {
		r.AddSignal("fallback_section", "parse", "info", name, "No known heading found; article parsed as a single section.", 1)
	}
}

func (r *Report) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	severityCount := map[string]int{
		"critical": 0,
		"warning":  0,
		"info":     0,
	}
	sort.SliceStable(r.Signals, func(i, j int) bool {
		pi := signalPriority(r.Signals[i].Severity)
		pj := signalPriority(r.Signals[j].Severity)
		if pi == pj {
			if r.Signals[i].Stage == r.Signals[j].Stage {
				return r.Signals[i].Code < r.Signals[j].Code
			}
			return r.Signals[i].Stage < r.Signals[j].Stage
		}
		return pi > pj
	})
	for _, s := range r.Signals {
		severityCount[s.Severity]++
	}

	failed := 0
	for _, st := range r.Stages {
		if st.Status != "ok" {
			failed++
		}
	}

	empty, fallback := 0, 0
	for _, d := range r.Documents {
		if d.Empty {
			empty++
		}
		if d.Fallback {
			fallback++
		}
	}

	r.Summary = ReportSummary{
		StageCount:        len(r.Stages),
		DocumentCount:     len(r.Documents),
		FailedStages:      failed,
		EmptyDocuments:    empty,
		FallbackDocuments: fallback,
		SignalsBySeverity: severityCount,
	}
}

func (r *Report) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanNotes(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func signalPriority(severity string) int {
	switch severity {
	case "critical":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}
