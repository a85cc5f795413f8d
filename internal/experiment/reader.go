package experiment

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/rs/zerolog"
)

//go:embed cases/input.jsonl
var defaultCases string

const (
	ExpectAllowed = "allowed"
	ExpectBlocked = "blocked"
)

// Case is one labelled query. ExpectReason is optional; when set the first
// reason reported for the query must match it.
type Case struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Query        string            `json:"query"`
	Expect       string            `json:"expect"`
	ExpectReason models.ReasonCode `json:"expect_reason,omitempty"`
}

func (c Case) validate() error {
	if c.ID == "" {
		return fmt.Errorf("case id is required")
	}
	if strings.TrimSpace(c.Query) == "" {
		return fmt.Errorf("case %s: query is required", c.ID)
	}
	if c.Expect != ExpectAllowed && c.Expect != ExpectBlocked {
		return fmt.Errorf("case %s: expect must be %q or %q", c.ID, ExpectAllowed, ExpectBlocked)
	}
	return nil
}

type InputRecord struct {
	Case       Case
	LineNumber int
	Error      error
}

type Reader struct {
	r      io.Reader
	logger *zerolog.Logger
}

func NewReader(r io.Reader, logger *zerolog.Logger) *Reader {
	return &Reader{r: r, logger: logger}
}

// DefaultReader reads the built-in case set.
func DefaultReader(logger *zerolog.Logger) *Reader {
	return NewReader(strings.NewReader(defaultCases), logger)
}

// ReadAll streams one record per non-blank line. Parse failures are
// delivered as records with Error set so callers can report the line.
func (r *Reader) ReadAll(ctx context.Context) <-chan InputRecord {
	out := make(chan InputRecord)

	go func() {
		defer close(out)

		scanner := bufio.NewScanner(r.r)
		lineNumber := 0
		for scanner.Scan() {
			lineNumber++
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			record := InputRecord{LineNumber: lineNumber}
			if err := json.Unmarshal([]byte(line), &record.Case); err != nil {
				record.Error = fmt.Errorf("line %d: invalid JSON: %w", lineNumber, err)
			} else if err := record.Case.validate(); err != nil {
				record.Error = fmt.Errorf("line %d: %w", lineNumber, err)
			}

			select {
			case out <- record:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			r.logger.Error().Err(err).Int("line", lineNumber).Msg("Failed to read cases")
		}
	}()

	return out
}
