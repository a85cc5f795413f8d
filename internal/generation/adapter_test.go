package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/llm"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/rs/zerolog"
)

type MockLLMClient struct {
	ResponseToReturn *llm.LLMResponse
	ErrorToReturn    error
	// Delay blocks the call until it elapses or ctx is done.
	Delay       time.Duration
	Calls       int
	LastRequest *llm.LLMRequest
}

func (m *MockLLMClient) InvokeModel(ctx context.Context, request llm.LLMRequest) (*llm.LLMResponse, error) {
	m.Calls++
	m.LastRequest = &request

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}
	return m.ResponseToReturn, nil
}

func (m *MockLLMClient) InvokeModelWithRetry(ctx context.Context, request llm.LLMRequest) (*llm.LLMResponse, error) {
	return m.InvokeModel(ctx, request)
}

func testGrounding() *models.RetrievalResult {
	return &models.RetrievalResult{
		Passages: []models.ScoredPassage{
			{Passage: models.Passage{ID: "p1", Seq: 1, Ref: models.RecordRef{EntityType: models.EntityStudent, ID: "1045"}, Text: "Student #1045: Maria Huber, enrolled in Databases."}, Score: 0.9},
			{Passage: models.Passage{ID: "p2", Seq: 2, Ref: models.RecordRef{EntityType: models.EntityCourse, ID: "301"}, Text: "Course #301: Databases, taught by Anna Berger."}, Score: 0.8},
		},
	}
}

func newTestAdapter(client llm.LLMClient, cfg Config) *Adapter {
	logger := zerolog.Nop()
	return NewAdapter(client, cfg, &logger)
}

func TestAdapter_Generate(t *testing.T) {
	client := &MockLLMClient{
		ResponseToReturn: &llm.LLMResponse{Content: "  Maria Huber takes Databases. ", StopReason: "end_turn", Model: "claude-test"},
	}
	adapter := newTestAdapter(client, DefaultConfig())
	grounding := testGrounding()

	answer, err := adapter.Generate(context.Background(), models.Query{ID: "q1", Text: "What does Maria take?"}, grounding)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answer.Text != "Maria Huber takes Databases." {
		t.Errorf("unexpected answer %q", answer.Text)
	}
	if answer.Grounding != grounding {
		t.Error("answer should keep the grounding it was generated from")
	}
	if answer.Query != "What does Maria take?" || answer.Model != "claude-test" {
		t.Errorf("unexpected answer metadata: %+v", answer)
	}

	req := client.LastRequest
	if req.MaxTokens != 512 || req.Temperature != 0.7 {
		t.Errorf("unexpected generation parameters: %d tokens, temperature %.1f", req.MaxTokens, req.Temperature)
	}
	if !strings.Contains(req.System, "university assistant") {
		t.Error("system prompt missing")
	}
	if !strings.Contains(req.Prompt, "[1] (student #1045)") || !strings.Contains(req.Prompt, "[2] (course #301)") {
		t.Errorf("prompt does not number passages: %s", req.Prompt)
	}
}

func TestAdapter_Generate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		client  *MockLLMClient
		timeout time.Duration
		wantErr error
	}{
		{
			name:    "model failure",
			client:  &MockLLMClient{ErrorToReturn: errors.New("non-retryable error: AccessDeniedException")},
			wantErr: ErrAdapterUnavailable,
		},
		{
			name:    "timeout",
			client:  &MockLLMClient{Delay: time.Second, ResponseToReturn: &llm.LLMResponse{Content: "late"}},
			timeout: 20 * time.Millisecond,
			wantErr: ErrGenerationTimeout,
		},
		{
			name:    "empty completion",
			client:  &MockLLMClient{ResponseToReturn: &llm.LLMResponse{Content: "   ", StopReason: "max_tokens"}},
			wantErr: ErrAdapterUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.timeout > 0 {
				cfg.Timeout = tt.timeout
			}
			adapter := newTestAdapter(tt.client, cfg)

			_, err := adapter.Generate(context.Background(), models.Query{Text: "q"}, testGrounding())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAdapter_Generate_CallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &MockLLMClient{Delay: time.Second, ResponseToReturn: &llm.LLMResponse{Content: "late"}}
	adapter := newTestAdapter(client, DefaultConfig())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := adapter.Generate(ctx, models.Query{Text: "q"}, testGrounding())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrGenerationTimeout) || errors.Is(err, ErrAdapterUnavailable) {
		t.Errorf("caller cancellation should not be reported as an adapter failure: %v", err)
	}
}

func TestBuildPrompt_MaxPassages(t *testing.T) {
	prompt := BuildPrompt("Who teaches Databases?", testGrounding(), 1)

	if !strings.Contains(prompt, "[1]") || strings.Contains(prompt, "[2]") {
		t.Errorf("expected only one passage: %s", prompt)
	}
	if !strings.HasSuffix(prompt, "Answer based only on the context above.") {
		t.Errorf("unexpected prompt ending: %s", prompt)
	}
}
