package pipeline

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

import (
	"context"
	"time"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
)

// InputGuard classifies a raw query before anything else sees it.
type InputGuard interface {
	Evaluate(query models.Query) models.GuardrailVerdict
	Version() string
}

// Retriever finds the passages a query is answered from.
type Retriever interface {
	Retrieve(ctx context.Context, query models.Query, topK int) (*models.RetrievalResult, error)
}

// Generator produces an answer grounded on the retrieved passages.
type Generator interface {
	Generate(ctx context.Context, query models.Query, grounding *models.RetrievalResult) (*models.GeneratedAnswer, error)
}

// OutputGuard redacts and classifies a generated answer.
type OutputGuard interface {
	Evaluate(answer models.GeneratedAnswer) (models.GuardrailVerdict, string)
}

// AuditSink records how each request ended.
type AuditSink interface {
	Record(ctx context.Context, event models.AuditEvent) error
}

// Observer receives stage timings and every final response, cancelled
// ones included.
type Observer interface {
	ObserveStage(stage string, duration time.Duration)
	ObserveResponse(response models.FinalResponse)
}
