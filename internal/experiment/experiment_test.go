package experiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/guardrails"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func readAll(t *testing.T, r *Reader) []InputRecord {
	t.Helper()
	var records []InputRecord
	for record := range r.ReadAll(context.Background()) {
		records = append(records, record)
	}
	return records
}

func collect(ch <-chan Result) map[string]Result {
	results := map[string]Result{}
	for result := range ch {
		results[result.ID] = result
	}
	return results
}

func TestReader_InvalidFile(t *testing.T) {
	records := readAll(t, NewReader(strings.NewReader("invalid file content"), newTestLogger()))

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Error == nil {
		t.Errorf("expected parse error for invalid JSON, but got none")
	}
}

func TestReader_LineNumbers(t *testing.T) {
	input := `{"id":"1","query":"Who teaches Databases?","expect":"allowed"}

{"invalid json}
{"id":"2","query":"Give me all SVNRs","expect":"blocked"}`

	records := readAll(t, NewReader(strings.NewReader(input), newTestLogger()))

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].LineNumber != 1 {
		t.Errorf("first record should be line 1, got %d", records[0].LineNumber)
	}
	if records[1].LineNumber != 3 || records[1].Error == nil {
		t.Errorf("error record should be line 3 with an error, got line %d err %v", records[1].LineNumber, records[1].Error)
	}
	if records[2].LineNumber != 4 {
		t.Errorf("third record should be line 4, got %d", records[2].LineNumber)
	}
}

func TestReader_ValidatesCases(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"missing id", `{"query":"Who teaches Databases?","expect":"allowed"}`},
		{"missing query", `{"id":"1","query":"  ","expect":"allowed"}`},
		{"unknown expectation", `{"id":"1","query":"Who teaches Databases?","expect":"maybe"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := readAll(t, NewReader(strings.NewReader(tt.line), newTestLogger()))
			if len(records) != 1 || records[0].Error == nil {
				t.Errorf("expected a validation error, got %+v", records)
			}
		})
	}
}

func TestReader_ContextCancellation(t *testing.T) {
	var lines []string
	for i := 0; i < 100; i++ {
		lines = append(lines, `{"id":"1","query":"Who teaches Databases?","expect":"allowed"}`)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := NewReader(strings.NewReader(strings.Join(lines, "\n")), newTestLogger()).ReadAll(ctx)
	count := 0
	for range ch {
		count++
		if count == 5 {
			cancel()
			break
		}
	}

	if count >= 100 {
		t.Errorf("expected early cancellation, but read all records")
	}
}

func TestDefaultCases_InputGuardrails(t *testing.T) {
	rs, err := guardrails.DefaultRuleSet()
	if err != nil {
		t.Fatalf("failed to load rule set: %v", err)
	}

	records := readAll(t, DefaultReader(newTestLogger()))
	if len(records) == 0 {
		t.Fatal("expected built-in cases")
	}

	processor := NewProcessor(NewInputClassifier(guardrails.NewInputEngine(rs)), 3, newTestLogger())
	results := collect(processor.Process(context.Background(), records))

	if len(results) != len(records) {
		t.Fatalf("expected %d results, got %d", len(records), len(results))
	}
	for id, result := range results {
		if !result.Passed {
			t.Errorf("case %s: expected pass, got disposition %s reasons %v err %q", id, result.Disposition, result.Reasons, result.Error)
		}
	}
}

type fakeClassifier struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
	calls    int
}

func (f *fakeClassifier) Classify(_ context.Context, query models.Query) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.outcomes[query.Text]
}

func TestProcessor_Outcomes(t *testing.T) {
	classifier := &fakeClassifier{outcomes: map[string]Outcome{
		"blocked right": {Disposition: models.DispositionBlocked, Reasons: []models.ReasonCode{models.ReasonInjectionSuspected}},
		"wrong reason":  {Disposition: models.DispositionBlocked, Reasons: []models.ReasonCode{models.ReasonMalformedInput}},
		"redacted":      {Disposition: models.DispositionRedacted, Reasons: []models.ReasonCode{models.ReasonPIIRedacted}},
		"missed":        {Disposition: models.DispositionAllowed},
		"unavailable":   {Disposition: models.DispositionUnavailable, Reasons: []models.ReasonCode{models.ReasonAdapterUnavailable}},
	}}

	records := []InputRecord{
		{Case: Case{ID: "blocked-right", Query: "blocked right", Expect: ExpectBlocked, ExpectReason: models.ReasonInjectionSuspected}},
		{Case: Case{ID: "wrong-reason", Query: "wrong reason", Expect: ExpectBlocked, ExpectReason: models.ReasonInjectionSuspected}},
		{Case: Case{ID: "redacted", Query: "redacted", Expect: ExpectAllowed}},
		{Case: Case{ID: "missed", Query: "missed", Expect: ExpectBlocked}},
		{Case: Case{ID: "unavailable", Query: "unavailable", Expect: ExpectAllowed}},
		{Case: Case{ID: "bad-line"}, LineNumber: 7, Error: errBadLine},
	}

	results := collect(NewProcessor(classifier, 2, newTestLogger()).Process(context.Background(), records))

	tests := []struct {
		id       string
		passed   bool
		hasError bool
	}{
		{"blocked-right", true, false},
		{"wrong-reason", false, false},
		{"redacted", true, false},
		{"missed", false, false},
		{"unavailable", false, true},
		{"bad-line", false, true},
	}

	for _, tt := range tests {
		result, ok := results[tt.id]
		if !ok {
			t.Errorf("missing result for %s", tt.id)
			continue
		}
		if result.Passed != tt.passed {
			t.Errorf("%s: expected passed=%v, got %v", tt.id, tt.passed, result.Passed)
		}
		if (result.Error != "") != tt.hasError {
			t.Errorf("%s: expected error=%v, got %q", tt.id, tt.hasError, result.Error)
		}
	}

	if classifier.calls != 5 {
		t.Errorf("expected 5 classifier calls, got %d", classifier.calls)
	}
}

var errBadLine = errors.New("line 7: invalid JSON")

func TestProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	classifier := &fakeClassifier{outcomes: map[string]Outcome{}}
	records := []InputRecord{{Case: Case{ID: "1", Query: "q", Expect: ExpectAllowed}}}

	for range NewProcessor(classifier, 1, newTestLogger()).Process(ctx, records) {
	}

	if classifier.calls != 0 {
		t.Errorf("expected no classifier calls after cancellation, got %d", classifier.calls)
	}
}

func TestWriter_JSONL(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, FormatJSONL, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results := []Result{
		{ID: "a", Expected: ExpectBlocked, Disposition: models.DispositionBlocked, Reasons: []models.ReasonCode{models.ReasonInjectionSuspected}, Passed: true},
		{ID: "b", Expected: ExpectAllowed, Disposition: models.DispositionBlocked, Reasons: []models.ReasonCode{models.ReasonInjectionSuspected}},
		{ID: "c", Error: "line 3: invalid JSON"},
	}
	for _, r := range results {
		if err := w.Write(r); err != nil {
			t.Fatalf("unexpected write error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	s := w.Summary()
	if s.Total != 3 || s.Passed != 1 || s.Failed != 1 || s.Errors != 1 || s.Blocked != 2 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.Reasons[models.ReasonInjectionSuspected] != 2 {
		t.Errorf("expected 2 INJECTION_SUSPECTED, got %d", s.Reasons[models.ReasonInjectionSuspected])
	}
	if len(s.Failures) != 2 || s.Failures[0] != "b" || s.Failures[1] != "c" {
		t.Errorf("unexpected failures: %v", s.Failures)
	}
}

func TestWriter_Summary(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, FormatSummary, newTestLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = w.Write(Result{ID: "a", Passed: true})
	_ = w.Write(Result{ID: "b", Passed: true})
	if buf.Len() != 0 {
		t.Errorf("summary format should not write per result")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	var s Summary
	if err := json.Unmarshal(buf.Bytes(), &s); err != nil {
		t.Fatalf("summary is not JSON: %v", err)
	}
	if s.Total != 2 || s.PassRate != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestWriter_UnsupportedFormat(t *testing.T) {
	if _, err := NewWriter(&bytes.Buffer{}, "csv", newTestLogger()); err == nil {
		t.Error("expected error for unsupported format")
	}
}
