package models

import (
	"fmt"
	"time"
)

// Verdict is the outcome of a guardrail check. Values are ordered by severity
// so that the most severe outcome of several checks is their maximum.
type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictRedact
	VerdictBlock
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "ALLOW"
	case VerdictRedact:
		return "REDACT"
	case VerdictBlock:
		return "BLOCK"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// MaxVerdict returns the more severe of two verdicts.
func MaxVerdict(a, b Verdict) Verdict {
	if b > a {
		return b
	}
	return a
}

type ReasonCode string

const (
	// Input side
	ReasonRegulatedIDPresent     ReasonCode = "REGULATED_ID_PRESENT"
	ReasonInjectionSuspected     ReasonCode = "INJECTION_SUSPECTED"
	ReasonPIIExtractionSuspected ReasonCode = "PII_EXTRACTION_SUSPECTED"
	ReasonMalformedInput         ReasonCode = "MALFORMED_INPUT"

	// Output side
	ReasonPIIRedacted      ReasonCode = "PII_REDACTED"
	ReasonLowRelevance     ReasonCode = "LOW_RELEVANCE"
	ReasonUnsupportedClaim ReasonCode = "UNSUPPORTED_CLAIM"

	// Infrastructure
	ReasonIndexUnavailable   ReasonCode = "INDEX_UNAVAILABLE"
	ReasonAdapterUnavailable ReasonCode = "ADAPTER_UNAVAILABLE"
	ReasonGenerationTimeout  ReasonCode = "GENERATION_TIMEOUT"
	ReasonCancelled          ReasonCode = "CANCELLED"
)

// Infrastructure reports whether the reason describes a system failure
// rather than a guardrail decision. Only these are worth retrying.
func (r ReasonCode) Infrastructure() bool {
	switch r {
	case ReasonIndexUnavailable, ReasonAdapterUnavailable, ReasonGenerationTimeout, ReasonCancelled:
		return true
	}
	return false
}

// State is a step of the request lifecycle.
type State string

const (
	StateReceived      State = "RECEIVED"
	StateInputChecked  State = "INPUT_CHECKED"
	StateRetrieved     State = "RETRIEVED"
	StateGenerated     State = "GENERATED"
	StateOutputChecked State = "OUTPUT_CHECKED"
	StateDelivered     State = "DELIVERED"
	StateRejected      State = "REJECTED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDelivered || s == StateRejected
}

type Disposition string

const (
	DispositionAllowed     Disposition = "allowed"
	DispositionRedacted    Disposition = "redacted"
	DispositionBlocked     Disposition = "blocked"
	DispositionUnavailable Disposition = "unavailable"
)

type Query struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	SessionID  string    `json:"session_id"`
	ReceivedAt time.Time `json:"received_at"`
}

// One check's output
type StageResult struct {
	Name     string        `json:"name"`
	Score    float64       `json:"score"`
	Reason   string        `json:"reason"`
	Duration time.Duration `json:"duration_ns"`
}

type GuardrailVerdict struct {
	Verdict      Verdict       `json:"verdict"`
	Reasons      []ReasonCode  `json:"reasons"`
	RedactedText string        `json:"-"`
	Checks       []StageResult `json:"checks,omitempty"`
}

// Blocked is a shorthand for Verdict == VerdictBlock.
func (g GuardrailVerdict) Blocked() bool {
	return g.Verdict == VerdictBlock
}

// IdentifierMatch is a regulated identifier candidate found in a text.
// Start and End are byte offsets, End exclusive.
type IdentifierMatch struct {
	Start         int
	End           int
	Value         string
	ChecksumValid bool
}

type EntityType string

const (
	EntityStudent EntityType = "student"
	EntityFaculty EntityType = "faculty"
	EntityCourse  EntityType = "course"
)

// RecordRef points at the dataset record a passage was built from.
type RecordRef struct {
	EntityType EntityType `json:"entity_type"`
	ID         string     `json:"id"`
}

func (r RecordRef) String() string {
	return fmt.Sprintf("%s #%s", r.EntityType, r.ID)
}

type Passage struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Ref       RecordRef `json:"ref"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

type ScoredPassage struct {
	Passage Passage `json:"passage"`
	Score   float64 `json:"score"`
}

type RetrievalResult struct {
	Passages       []ScoredPassage
	QueryEmbedding []float32
}

// Refs returns the record references of the retrieved passages in rank order.
func (r *RetrievalResult) Refs() []RecordRef {
	if r == nil {
		return nil
	}
	refs := make([]RecordRef, 0, len(r.Passages))
	for _, p := range r.Passages {
		refs = append(refs, p.Passage.Ref)
	}
	return refs
}

type GeneratedAnswer struct {
	Query      string
	Text       string
	Grounding  *RetrievalResult
	Model      string
	StopReason string
}

// FinalResponse is what the presentation layer receives.
type FinalResponse struct {
	RequestID   string        `json:"request_id"`
	Text        string        `json:"text"`
	Disposition Disposition   `json:"disposition"`
	Citations   []RecordRef   `json:"citations"`
	Retryable   bool          `json:"retryable"`
	State       State         `json:"-"`
	Reasons     []ReasonCode  `json:"-"`
	Duration    time.Duration `json:"-"`
}

// AuditEvent describes how a request ended. It never carries query or
// answer text.
type AuditEvent struct {
	RequestID      string        `json:"request_id"`
	SessionID      string        `json:"session_id"`
	State          State         `json:"state"`
	Disposition    Disposition   `json:"disposition"`
	Reasons        []ReasonCode  `json:"reasons"`
	Citations      int           `json:"citations"`
	RuleSetVersion string        `json:"rule_set_version,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
	Timestamp      time.Time     `json:"timestamp"`
}
