package llm

import (
	"context"
)

// LLMClient is an interface for invoking LLM models.
// Implementations must honour ctx cancellation and deadlines.
type LLMClient interface {
	InvokeModel(ctx context.Context, request LLMRequest) (*LLMResponse, error)
	InvokeModelWithRetry(ctx context.Context, request LLMRequest) (*LLMResponse, error)
}
