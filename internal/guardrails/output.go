package guardrails

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/identifier"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
)

type OutputConfig struct {
	// RelevanceThreshold is the minimum combined relevance score.
	RelevanceThreshold float64
	// QueryWeight is the share of the relevance score taken from query
	// overlap. The rest comes from overlap with the retrieved passages.
	QueryWeight float64
	// FactSupportThreshold is the minimum share of answer claims that must
	// be found in the retrieved passages.
	FactSupportThreshold float64
	RedactionMarker      string
}

func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		RelevanceThreshold:   0.3,
		QueryWeight:          0.25,
		FactSupportThreshold: 0.7,
		RedactionMarker:      identifier.RedactionMarker,
	}
}

// OutputEngine redacts and classifies generated answers. It is pure and
// safe for concurrent use.
type OutputEngine struct {
	cfg            OutputConfig
	overconfidence []*regexp.Regexp
}

func NewOutputEngine(cfg OutputConfig, ruleSet *RuleSet) *OutputEngine {
	if cfg.RedactionMarker == "" {
		cfg.RedactionMarker = identifier.RedactionMarker
	}

	var overconfidence []*regexp.Regexp
	if ruleSet != nil {
		overconfidence = ruleSet.Overconfidence
	}

	return &OutputEngine{
		cfg:            cfg,
		overconfidence: overconfidence,
	}
}

// Evaluate redacts every regulated identifier in the answer and then checks
// relevance and claim support against the passages the answer was grounded
// on. The verdict is the most severe outcome of all checks and the reasons
// accumulate. The returned text is always the redacted one.
func (e *OutputEngine) Evaluate(answer models.GeneratedAnswer) (models.GuardrailVerdict, string) {
	verdict := models.GuardrailVerdict{
		Verdict: models.VerdictAllow,
		Reasons: []models.ReasonCode{},
	}

	escalate := func(v models.Verdict, reason models.ReasonCode) {
		verdict.Verdict = models.MaxVerdict(verdict.Verdict, v)
		verdict.Reasons = append(verdict.Reasons, reason)
	}

	sanitized, redactions, check := e.redact(answer.Text)
	verdict.Checks = append(verdict.Checks, check)
	if redactions > 0 {
		escalate(models.VerdictRedact, models.ReasonPIIRedacted)
	}

	context := groundingText(answer.Grounding)

	check = e.relevance(answer.Query, sanitized, context)
	verdict.Checks = append(verdict.Checks, check)
	if check.Score < e.cfg.RelevanceThreshold {
		escalate(models.VerdictBlock, models.ReasonLowRelevance)
	}

	check = e.factSupport(sanitized, context)
	verdict.Checks = append(verdict.Checks, check)
	if check.Score < e.cfg.FactSupportThreshold {
		escalate(models.VerdictBlock, models.ReasonUnsupportedClaim)
	}

	verdict.Checks = append(verdict.Checks, e.confidence(sanitized))
	verdict.RedactedText = sanitized

	return verdict, sanitized
}

func (e *OutputEngine) redact(text string) (string, int, models.StageResult) {
	now := time.Now()
	sanitized, count := identifier.Redact(text, e.cfg.RedactionMarker)

	result := models.StageResult{
		Name:   "identifier-redaction",
		Score:  1.0,
		Reason: "No regulated identifiers found",
	}
	if count > 0 {
		result.Score = 0.0
		result.Reason = fmt.Sprintf("%d regulated identifier(s) redacted", count)
	}
	result.Duration = time.Since(now)

	return sanitized, count, result
}

// relevance scores the answer on two token overlaps: how much of the query
// the answer addresses and how much of the answer is drawn from the context.
func (e *OutputEngine) relevance(query, answer, context string) models.StageResult {
	now := time.Now()
	result := models.StageResult{Name: "relevance-checker"}

	answerTokens := uniqueTokens(tokenize(strings.ReplaceAll(answer, e.cfg.RedactionMarker, " ")))
	if len(answerTokens) == 0 {
		result.Reason = "Empty Answer"
		result.Duration = time.Since(now)
		return result
	}

	contextScore := 0.0
	if context != "" {
		contextScore = coverage(answerTokens, uniqueTokens(tokenize(context)))
	}

	queryScore := 0.0
	if queryTokens := uniqueTokens(tokenize(query)); len(queryTokens) > 0 {
		queryScore = coverage(queryTokens, answerTokens)
	}

	score := e.cfg.QueryWeight*queryScore + (1-e.cfg.QueryWeight)*contextScore
	result.Score = score
	if score < e.cfg.RelevanceThreshold {
		result.Reason = fmt.Sprintf("Low relevance: %.0f%% context overlap, %.0f%% query overlap", contextScore*100, queryScore*100)
	} else {
		result.Reason = "Answer is relevant to the retrieved context"
	}
	result.Duration = time.Since(now)

	return result
}

// factSupport checks that entities and figures mentioned in the answer
// appear in at least one retrieved passage.
func (e *OutputEngine) factSupport(answer, context string) models.StageResult {
	now := time.Now()
	result := models.StageResult{Name: "fact-support-checker"}

	claims := extractClaims(strings.ReplaceAll(answer, e.cfg.RedactionMarker, " "))
	if len(claims) == 0 {
		result.Score = 1.0
		result.Reason = "No checkable claims"
		result.Duration = time.Since(now)
		return result
	}

	normalized := strings.ToLower(strings.ReplaceAll(context, "-", " "))
	count := 0
	for _, claim := range claims {
		if supported(claim, normalized) {
			count++
		}
	}

	result.Score = float64(count) / float64(len(claims))
	result.Reason = fmt.Sprintf("%d of %d claims found in retrieved passages", count, len(claims))
	result.Duration = time.Since(now)

	return result
}

// confidence flags overconfident phrasing. It lowers the score but never
// decides the verdict on its own.
func (e *OutputEngine) confidence(answer string) models.StageResult {
	now := time.Now()
	result := models.StageResult{
		Name:   "overconfidence-checker",
		Score:  1.0,
		Reason: "No overconfident phrasing",
	}

	hits := 0
	for _, re := range e.overconfidence {
		if re.MatchString(answer) {
			hits++
		}
	}
	if hits > 0 {
		result.Score = 1.0 / float64(hits+1)
		result.Reason = fmt.Sprintf("%d overconfident phrase pattern(s)", hits)
	}
	result.Duration = time.Since(now)

	return result
}

func groundingText(grounding *models.RetrievalResult) string {
	if grounding == nil {
		return ""
	}

	parts := make([]string, 0, len(grounding.Passages))
	for _, p := range grounding.Passages {
		parts = append(parts, p.Passage.Text)
	}
	return strings.Join(parts, "\n")
}
