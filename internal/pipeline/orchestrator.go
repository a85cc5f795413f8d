package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/generation"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/rs/zerolog"
)

const (
	StageInput      = "input_guardrail"
	StageRetrieval  = "retrieval"
	StageGeneration = "generation"
	StageOutput     = "output_guardrail"
)

type Config struct {
	// TopK is passed to the retriever. Zero uses the retriever default.
	TopK int
}

// Orchestrator runs a query through input guardrail, retrieval, generation
// and output guardrail. Collaborators are shared and must be safe for
// concurrent use; the orchestrator keeps no state between requests.
type Orchestrator struct {
	input     InputGuard
	retriever Retriever
	generator Generator
	output    OutputGuard
	audit     AuditSink
	observer  Observer
	cfg       Config
	logger    *zerolog.Logger
}

func NewOrchestrator(
	input InputGuard,
	retriever Retriever,
	generator Generator,
	output OutputGuard,
	audit AuditSink,
	observer Observer,
	cfg Config,
	logger *zerolog.Logger,
) *Orchestrator {
	if audit == nil {
		audit = NopAuditSink{}
	}
	if observer == nil {
		observer = nopObserver{}
	}

	return &Orchestrator{
		input:     input,
		retriever: retriever,
		generator: generator,
		output:    output,
		audit:     audit,
		observer:  observer,
		cfg:       cfg,
		logger:    logger,
	}
}

// request tracks one query through the state machine.
type request struct {
	query models.Query
	state models.State
	start time.Time
}

// Handle processes one query to a terminal state. It never returns the
// unredacted answer and never fails: every error becomes a FinalResponse.
func (o *Orchestrator) Handle(ctx context.Context, query models.Query) models.FinalResponse {
	if query.ID == "" {
		query.ID = uuid.NewString()
	}
	if query.ReceivedAt.IsZero() {
		query.ReceivedAt = time.Now()
	}

	req := &request{
		query: query,
		state: models.StateReceived,
		start: time.Now(),
	}
	o.logger.Info().
		Str("request_id", query.ID).
		Str("session_id", query.SessionID).
		Str("state", string(req.state)).
		Int("query_length", len(query.Text)).
		Msg("Request received")

	if ctx.Err() != nil {
		return o.cancel(req)
	}

	// Input guardrail
	stageStart := time.Now()
	inputVerdict := o.input.Evaluate(query)
	o.stageDone(req, StageInput, stageStart, models.StateInputChecked)

	if inputVerdict.Blocked() {
		return o.reject(ctx, req, inputVerdict.Reasons, models.DispositionBlocked, inputBlockedMessage(inputVerdict.Reasons))
	}
	if ctx.Err() != nil {
		return o.cancel(req)
	}

	// Retrieval
	stageStart = time.Now()
	grounding, err := o.retriever.Retrieve(ctx, query, o.cfg.TopK)
	if err != nil {
		if ctx.Err() != nil {
			return o.cancel(req)
		}
		o.logger.Warn().Err(err).Str("request_id", query.ID).Msg("Retrieval failed")
		return o.reject(ctx, req, []models.ReasonCode{models.ReasonIndexUnavailable}, models.DispositionUnavailable, messageNoData)
	}
	o.stageDone(req, StageRetrieval, stageStart, models.StateRetrieved)

	if ctx.Err() != nil {
		return o.cancel(req)
	}

	// Generation
	stageStart = time.Now()
	answer, err := o.generator.Generate(ctx, query, grounding)
	if err != nil {
		if ctx.Err() != nil {
			return o.cancel(req)
		}
		reason := models.ReasonAdapterUnavailable
		if errors.Is(err, generation.ErrGenerationTimeout) {
			reason = models.ReasonGenerationTimeout
		}
		o.logger.Warn().Err(err).Str("request_id", query.ID).Str("reason", string(reason)).Msg("Generation failed")
		return o.reject(ctx, req, []models.ReasonCode{reason}, models.DispositionUnavailable, messageUnavailable)
	}
	o.stageDone(req, StageGeneration, stageStart, models.StateGenerated)

	if ctx.Err() != nil {
		return o.cancel(req)
	}

	// Output guardrail
	stageStart = time.Now()
	outputVerdict, sanitized := o.output.Evaluate(*answer)
	o.stageDone(req, StageOutput, stageStart, models.StateOutputChecked)

	if outputVerdict.Blocked() {
		return o.reject(ctx, req, outputVerdict.Reasons, models.DispositionBlocked, messageOutputBlocked)
	}

	disposition := models.DispositionAllowed
	if outputVerdict.Verdict == models.VerdictRedact {
		disposition = models.DispositionRedacted
	}

	return o.finish(ctx, req, models.FinalResponse{
		RequestID:   query.ID,
		Text:        sanitized,
		Disposition: disposition,
		Citations:   citations(answer.Grounding),
		State:       models.StateDelivered,
		Reasons:     outputVerdict.Reasons,
	})
}

func (o *Orchestrator) stageDone(req *request, stage string, started time.Time, next models.State) {
	duration := time.Since(started)
	o.observer.ObserveStage(stage, duration)
	o.transition(req, next, duration)
}

func (o *Orchestrator) transition(req *request, next models.State, duration time.Duration) {
	o.logger.Debug().
		Str("request_id", req.query.ID).
		Str("from", string(req.state)).
		Str("to", string(next)).
		Dur("duration", duration).
		Msg("State transition")
	req.state = next
}

func (o *Orchestrator) reject(ctx context.Context, req *request, reasons []models.ReasonCode, disposition models.Disposition, message string) models.FinalResponse {
	retryable := false
	for _, r := range reasons {
		if r.Infrastructure() {
			retryable = true
		}
	}

	return o.finish(ctx, req, models.FinalResponse{
		RequestID:   req.query.ID,
		Text:        message,
		Disposition: disposition,
		Citations:   []models.RecordRef{},
		Retryable:   retryable,
		State:       models.StateRejected,
		Reasons:     reasons,
	})
}

// cancel ends the request without auditing it.
func (o *Orchestrator) cancel(req *request) models.FinalResponse {
	response := models.FinalResponse{
		RequestID:   req.query.ID,
		Text:        messageCancelled,
		Disposition: models.DispositionUnavailable,
		Citations:   []models.RecordRef{},
		Retryable:   true,
		State:       models.StateRejected,
		Reasons:     []models.ReasonCode{models.ReasonCancelled},
		Duration:    time.Since(req.start),
	}

	o.transition(req, models.StateRejected, 0)
	o.logger.Info().
		Str("request_id", req.query.ID).
		Str("state", string(response.State)).
		Strs("reasons", reasonStrings(response.Reasons)).
		Dur("duration", response.Duration).
		Msg("Request cancelled")
	o.observer.ObserveResponse(response)

	return response
}

func (o *Orchestrator) finish(ctx context.Context, req *request, response models.FinalResponse) models.FinalResponse {
	response.Duration = time.Since(req.start)
	o.transition(req, response.State, 0)

	o.logger.Info().
		Str("request_id", req.query.ID).
		Str("session_id", req.query.SessionID).
		Str("state", string(response.State)).
		Str("disposition", string(response.Disposition)).
		Strs("reasons", reasonStrings(response.Reasons)).
		Int("citations", len(response.Citations)).
		Dur("duration", response.Duration).
		Msg("Request finished")

	event := models.AuditEvent{
		RequestID:      req.query.ID,
		SessionID:      req.query.SessionID,
		State:          response.State,
		Disposition:    response.Disposition,
		Reasons:        response.Reasons,
		Citations:      len(response.Citations),
		RuleSetVersion: o.input.Version(),
		Duration:       response.Duration,
		Timestamp:      time.Now().UTC(),
	}
	if err := o.audit.Record(context.WithoutCancel(ctx), event); err != nil {
		o.logger.Warn().Err(err).Str("request_id", req.query.ID).Msg("Failed to record audit event")
	}

	o.observer.ObserveResponse(response)
	return response
}

// citations returns the distinct record references of the grounding
// passages in rank order.
func citations(grounding *models.RetrievalResult) []models.RecordRef {
	refs := grounding.Refs()
	seen := make(map[models.RecordRef]bool, len(refs))
	unique := make([]models.RecordRef, 0, len(refs))

	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		unique = append(unique, ref)
	}

	return unique
}

func reasonStrings(reasons []models.ReasonCode) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}

// NopAuditSink discards audit events.
type NopAuditSink struct{}

func (NopAuditSink) Record(ctx context.Context, event models.AuditEvent) error {
	return nil
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration)   {}
func (nopObserver) ObserveResponse(models.FinalResponse) {}
