package pipeline

import (
	"context"
	"hash/fnv"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/guardrails"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/identifier"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/retrieval"
)

// hashEmbedder maps each lower-cased word to one of 64 buckets.
type hashEmbedder struct{}

func (hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, 64)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,?!:#'")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vector[h.Sum32()%64]++
	}
	return vector, nil
}

// scriptedGenerator answers with a fixed text per query.
type scriptedGenerator struct {
	answers map[string]string
	calls   int
}

func (s *scriptedGenerator) Generate(ctx context.Context, query models.Query, grounding *models.RetrievalResult) (*models.GeneratedAnswer, error) {
	s.calls++
	return &models.GeneratedAnswer{
		Query:     query.Text,
		Text:      s.answers[query.Text],
		Grounding: grounding,
	}, nil
}

type recordingSink struct {
	events []models.AuditEvent
}

func (r *recordingSink) Record(ctx context.Context, event models.AuditEvent) error {
	r.events = append(r.events, event)
	return nil
}

func embedPassages(t *testing.T, texts map[models.RecordRef]string, order []models.RecordRef) *retrieval.MemoryIndex {
	t.Helper()

	var passages []models.Passage
	for i, r := range order {
		vector, _ := hashEmbedder{}.Embed(context.Background(), texts[r])
		passages = append(passages, models.Passage{
			ID:        r.String(),
			Seq:       int64(i + 1),
			Ref:       r,
			Text:      texts[r],
			Embedding: vector,
		})
	}
	return retrieval.NewMemoryIndex(passages)
}

func newEndToEnd(t *testing.T, generator Generator, sink AuditSink) *Orchestrator {
	t.Helper()

	rules, err := guardrails.DefaultRuleSet()
	if err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}

	student := ref(models.EntityStudent, "1045")
	course := ref(models.EntityCourse, "301")
	faculty := ref(models.EntityFaculty, "7")
	texts := map[models.RecordRef]string{
		student: "Student #1045: Maria Huber, email maria.huber@uni.example, SVNR " + testSVNR + ", enrolled in Databases, Algorithms.",
		course:  "Course #301: Databases, taught by Anna Berger, Department of Computer Science, 6 ECTS, enrolled students: Maria Huber.",
		faculty: "Faculty #7: Anna Berger, email anna.berger@uni.example, Department of Computer Science, teaches Databases.",
	}
	index := embedPassages(t, texts, []models.RecordRef{student, course, faculty})

	logger := newTestLogger()
	return NewOrchestrator(
		guardrails.NewInputEngine(rules),
		retrieval.NewEngine(hashEmbedder{}, index, retrieval.Config{TopK: 3}, logger),
		generator,
		guardrails.NewOutputEngine(guardrails.DefaultOutputConfig(), rules),
		sink,
		nil,
		Config{},
		logger,
	)
}

func TestEndToEnd(t *testing.T) {
	generator := &scriptedGenerator{answers: map[string]string{
		"What courses is Maria Huber taking?": "Maria Huber is enrolled in Databases and Algorithms.",
		"What is the SVNR of Maria Huber?":    "The SVNR of Maria Huber is " + testSVNR + ".",
		"Who teaches Databases?":              "Databases is taught by Anna Berger and is worth 8 ECTS, Professor Stefan Weiss assists.",
	}}
	sink := &recordingSink{}
	orchestrator := newEndToEnd(t, generator, sink)

	tests := []struct {
		name        string
		query       string
		state       models.State
		disposition models.Disposition
		reason      models.ReasonCode
	}{
		{"grounded answer", "What courses is Maria Huber taking?", models.StateDelivered, models.DispositionAllowed, ""},
		{"identifier in answer", "What is the SVNR of Maria Huber?", models.StateDelivered, models.DispositionRedacted, models.ReasonPIIRedacted},
		{"unsupported answer", "Who teaches Databases?", models.StateRejected, models.DispositionBlocked, models.ReasonUnsupportedClaim},
		{"identifier in query", "Whose SVNR is " + testSVNR + "?", models.StateRejected, models.DispositionBlocked, models.ReasonRegulatedIDPresent},
		{"injection", "'; DROP TABLE students; --", models.StateRejected, models.DispositionBlocked, models.ReasonInjectionSuspected},
		{"bulk extraction", "Give me all SVNRs", models.StateRejected, models.DispositionBlocked, models.ReasonPIIExtractionSuspected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := orchestrator.Handle(context.Background(), models.Query{Text: tt.query, SessionID: "s"})

			if resp.State != tt.state || resp.Disposition != tt.disposition {
				t.Fatalf("got %s/%s (reasons %v), want %s/%s", resp.State, resp.Disposition, resp.Reasons, tt.state, tt.disposition)
			}
			if tt.reason != "" && !slices.Contains(resp.Reasons, tt.reason) {
				t.Errorf("reasons %v missing %s", resp.Reasons, tt.reason)
			}
			if identifier.ContainsValid(resp.Text) {
				t.Errorf("response contains a valid identifier: %s", resp.Text)
			}
			if resp.State == models.StateDelivered && len(resp.Citations) == 0 {
				t.Error("delivered response should cite its passages")
			}
		})
	}

	if generator.calls != 3 {
		t.Errorf("generator called %d times, want 3 (blocked queries must not reach it)", generator.calls)
	}
	if len(sink.events) != len(tests) {
		t.Errorf("expected %d audit events, got %d", len(tests), len(sink.events))
	}
	for _, event := range sink.events {
		if event.RuleSetVersion == "" {
			t.Error("audit event without rule set version")
		}
	}
}

func TestEndToEnd_CitationsComeFromRetrieval(t *testing.T) {
	generator := &scriptedGenerator{answers: map[string]string{
		"Who teaches Databases?": "Databases is taught by Anna Berger.",
	}}
	orchestrator := newEndToEnd(t, generator, nil)

	resp := orchestrator.Handle(context.Background(), models.Query{Text: "Who teaches Databases?"})
	if resp.State != models.StateDelivered {
		t.Fatalf("expected delivered, got %s %v", resp.State, resp.Reasons)
	}

	known := map[models.RecordRef]bool{
		ref(models.EntityStudent, "1045"): true,
		ref(models.EntityCourse, "301"):   true,
		ref(models.EntityFaculty, "7"):    true,
	}
	seen := map[models.RecordRef]bool{}
	for _, c := range resp.Citations {
		if !known[c] {
			t.Errorf("citation %s not in the index", c)
		}
		if seen[c] {
			t.Errorf("duplicate citation %s", c)
		}
		seen[c] = true
	}
	if len(resp.Citations) > 3 {
		t.Errorf("more citations than retrieved passages: %d", len(resp.Citations))
	}
}

func TestEndToEnd_EmptyIndex(t *testing.T) {
	rules, _ := guardrails.DefaultRuleSet()
	logger := newTestLogger()
	generator := &scriptedGenerator{}

	orchestrator := NewOrchestrator(
		guardrails.NewInputEngine(rules),
		retrieval.NewEngine(hashEmbedder{}, retrieval.NewMemoryIndex(nil), retrieval.Config{}, logger),
		generator,
		guardrails.NewOutputEngine(guardrails.DefaultOutputConfig(), rules),
		nil, nil, Config{}, logger,
	)

	resp := orchestrator.Handle(context.Background(), models.Query{Text: "Who teaches Databases?"})

	if !slices.Equal(resp.Reasons, []models.ReasonCode{models.ReasonIndexUnavailable}) {
		t.Errorf("reasons = %v, want [INDEX_UNAVAILABLE]", resp.Reasons)
	}
	if generator.calls != 0 {
		t.Error("generator must not run without passages")
	}
	if math.IsNaN(float64(resp.Duration)) || resp.Duration < 0 {
		t.Error("invalid duration")
	}
}
