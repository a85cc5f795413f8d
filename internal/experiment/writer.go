package experiment

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/rs/zerolog"
)

const (
	FormatJSONL   = "jsonl"
	FormatSummary = "summary"
)

// Summary aggregates a run. Failures lists the ids of failed and errored
// cases in sorted order.
type Summary struct {
	Total    int                       `json:"total"`
	Passed   int                       `json:"passed"`
	Failed   int                       `json:"failed"`
	Errors   int                       `json:"errors"`
	Blocked  int                       `json:"blocked"`
	PassRate float64                   `json:"pass_rate"`
	Reasons  map[models.ReasonCode]int `json:"reasons"`
	Failures []string                  `json:"failures,omitempty"`
}

func (s *Summary) add(result Result) {
	s.Total++
	switch {
	case result.Error != "":
		s.Errors++
		s.Failures = append(s.Failures, result.ID)
	case result.Passed:
		s.Passed++
	default:
		s.Failed++
		s.Failures = append(s.Failures, result.ID)
	}
	if result.Disposition == models.DispositionBlocked {
		s.Blocked++
	}
	for _, reason := range result.Reasons {
		s.Reasons[reason]++
	}
}

func (s *Summary) finish() {
	if s.Total > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Total)
	}
	sort.Strings(s.Failures)
}

// Writer emits one JSON line per result (jsonl) or a single summary
// document on Close (summary). The summary is tracked in both formats.
type Writer struct {
	out     io.Writer
	format  string
	encoder *json.Encoder
	summary Summary
	logger  *zerolog.Logger
}

func NewWriter(out io.Writer, format string, logger *zerolog.Logger) (*Writer, error) {
	if format != FormatJSONL && format != FormatSummary {
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return &Writer{
		out:     out,
		format:  format,
		encoder: json.NewEncoder(out),
		summary: Summary{Reasons: map[models.ReasonCode]int{}},
		logger:  logger,
	}, nil
}

func (w *Writer) Write(result Result) error {
	w.summary.add(result)
	if w.format != FormatJSONL {
		return nil
	}
	if err := w.encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to write result %s: %w", result.ID, err)
	}
	return nil
}

// Summary returns the aggregate of everything written so far.
func (w *Writer) Summary() Summary {
	s := w.summary
	s.Failures = append([]string(nil), w.summary.Failures...)
	s.finish()
	return s
}

func (w *Writer) Close() error {
	if w.format != FormatSummary {
		return nil
	}
	data, err := json.MarshalIndent(w.Summary(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if _, err := fmt.Fprintln(w.out, string(data)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	w.logger.Debug().Msg("Summary written")
	return nil
}
