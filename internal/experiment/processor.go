package experiment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Outcome is what a classifier decided for one query.
type Outcome struct {
	Disposition models.Disposition
	Reasons     []models.ReasonCode
}

// Blocked reports whether the query was refused. Redacted answers still
// reach the user and count as allowed.
func (o Outcome) Blocked() bool {
	return o.Disposition == models.DispositionBlocked
}

// Classifier runs a query through the system under test.
type Classifier interface {
	Classify(ctx context.Context, query models.Query) Outcome
}

type inputGuard interface {
	Evaluate(query models.Query) models.GuardrailVerdict
}

// InputClassifier exercises the input guardrails only.
type InputClassifier struct {
	guard inputGuard
}

func NewInputClassifier(guard inputGuard) *InputClassifier {
	return &InputClassifier{guard: guard}
}

func (c *InputClassifier) Classify(_ context.Context, query models.Query) Outcome {
	verdict := c.guard.Evaluate(query)
	if verdict.Blocked() {
		return Outcome{Disposition: models.DispositionBlocked, Reasons: verdict.Reasons}
	}
	return Outcome{Disposition: models.DispositionAllowed, Reasons: verdict.Reasons}
}

type handler interface {
	Handle(ctx context.Context, query models.Query) models.FinalResponse
}

// PipelineClassifier runs the full pipeline, generation included.
type PipelineClassifier struct {
	handler handler
}

func NewPipelineClassifier(h handler) *PipelineClassifier {
	return &PipelineClassifier{handler: h}
}

func (c *PipelineClassifier) Classify(ctx context.Context, query models.Query) Outcome {
	response := c.handler.Handle(ctx, query)
	return Outcome{Disposition: response.Disposition, Reasons: response.Reasons}
}

// Result never carries the query text.
type Result struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	LineNumber  int                 `json:"line"`
	Expected    string              `json:"expected"`
	Disposition models.Disposition  `json:"disposition,omitempty"`
	Reasons     []models.ReasonCode `json:"reasons,omitempty"`
	Passed      bool                `json:"passed"`
	Error       string              `json:"error,omitempty"`
	Duration    time.Duration       `json:"duration_ns"`
}

type Processor struct {
	classifier Classifier
	workers    int
	logger     *zerolog.Logger
}

func NewProcessor(classifier Classifier, workers int, logger *zerolog.Logger) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{classifier: classifier, workers: workers, logger: logger}
}

// Process classifies records with a bounded worker pool. Results arrive in
// completion order. The channel closes once every record is done or ctx
// is cancelled.
func (p *Processor) Process(ctx context.Context, records []InputRecord) <-chan Result {
	out := make(chan Result, p.workers)

	go func() {
		defer close(out)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.workers)

		for _, record := range records {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				result := p.run(gctx, record)
				select {
				case out <- result:
				case <-gctx.Done():
				}
				return nil
			})
		}

		_ = g.Wait()
	}()

	return out
}

func (p *Processor) run(ctx context.Context, record InputRecord) Result {
	result := Result{
		ID:         record.Case.ID,
		Name:       record.Case.Name,
		LineNumber: record.LineNumber,
		Expected:   record.Case.Expect,
	}
	if record.Error != nil {
		result.Error = record.Error.Error()
		return result
	}

	query := models.Query{
		ID:         uuid.NewString(),
		Text:       record.Case.Query,
		SessionID:  "experiment",
		ReceivedAt: time.Now(),
	}

	start := time.Now()
	outcome := p.classifier.Classify(ctx, query)
	result.Duration = time.Since(start)
	result.Disposition = outcome.Disposition
	result.Reasons = outcome.Reasons
	if outcome.Disposition == models.DispositionUnavailable {
		result.Error = "system unavailable"
	} else {
		result.Passed = passed(record.Case, outcome)
	}

	p.logger.Debug().
		Str("case", record.Case.ID).
		Str("disposition", string(outcome.Disposition)).
		Bool("passed", result.Passed).
		Msg("Case classified")

	return result
}

func passed(c Case, outcome Outcome) bool {
	if outcome.Blocked() != (c.Expect == ExpectBlocked) {
		return false
	}
	if c.ExpectReason == "" {
		return true
	}
	return len(outcome.Reasons) > 0 && outcome.Reasons[0] == c.ExpectReason
}
