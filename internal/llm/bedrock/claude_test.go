package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/llm"
)

type fakeRuntime struct {
	errs     []error
	body     string
	calls    int
	lastBody []byte
}

func (f *fakeRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.calls++
	f.lastBody = params.Body
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

const okBody = `{"content":[{"type":"text","text":"Maria takes "},{"type":"text","text":"Databases."}],"stop_reason":"end_turn"}`

func newTestClient(runtime RuntimeAPI, attempts int) *Client {
	c := NewWithRuntime(runtime, "anthropic.claude-test", attempts)
	c.InitialDelay = time.Millisecond
	c.MaxDelay = 2 * time.Millisecond
	return c
}

func TestInvokeModel(t *testing.T) {
	runtime := &fakeRuntime{body: okBody}
	client := newTestClient(runtime, 2)

	resp, err := client.InvokeModel(context.Background(), llm.LLMRequest{
		System:      "You are a university assistant.",
		Prompt:      "What does Maria take?",
		MaxTokens:   512,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "Maria takes Databases." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("unexpected stop reason %q", resp.StopReason)
	}

	var sent claudeMessageRequest
	if err := json.Unmarshal(runtime.lastBody, &sent); err != nil {
		t.Fatalf("request body is not json: %v", err)
	}
	if sent.AnthropicVersion != anthropicVersion || sent.System == "" || sent.MaxTokens != 512 {
		t.Errorf("unexpected request payload: %+v", sent)
	}
}

func TestInvokeModelWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{"first call succeeds", nil, 2, 1, false},
		{"throttled then ok", []error{&types.ThrottlingException{}}, 2, 2, false},
		{"throttled twice", []error{&types.ThrottlingException{}, &types.ThrottlingException{}}, 2, 2, true},
		{"validation error", []error{&types.ValidationException{}}, 2, 1, true},
		{"connection reset", []error{errors.New("read tcp: connection reset by peer")}, 2, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runtime := &fakeRuntime{errs: tt.errs, body: okBody}
			client := newTestClient(runtime, tt.attempts)

			_, err := client.InvokeModelWithRetry(context.Background(), llm.LLMRequest{Prompt: "q"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if runtime.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", runtime.calls, tt.wantCalls)
			}
		})
	}
}

func TestInvokeModelWithRetry_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runtime := &fakeRuntime{errs: []error{context.Canceled}}
	client := newTestClient(runtime, 3)

	_, err := client.InvokeModelWithRetry(ctx, llm.LLMRequest{Prompt: "q"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if runtime.calls != 1 {
		t.Errorf("expected no retry after cancellation, got %d calls", runtime.calls)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&types.ThrottlingException{}, true},
		{&types.ServiceUnavailableException{}, true},
		{&types.InternalServerException{}, true},
		{&types.AccessDeniedException{}, false},
		{errors.New("Rate exceeded"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("invalid model id"), false},
	}

	for _, tt := range tests {
		if got := isRetryableError(tt.err); got != tt.want {
			name := "<nil>"
			if tt.err != nil {
				name = tt.err.Error()
			}
			t.Errorf("isRetryableError(%s) = %v, want %v", name, got, tt.want)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	initial := 100 * time.Millisecond
	max := 400 * time.Millisecond

	for attempt := 0; attempt < 6; attempt++ {
		got := calculateBackoff(attempt, initial, max)
		if got <= 0 || got > time.Duration(float64(max)*1.2) {
			t.Errorf("attempt %d: backoff %s out of range", attempt, got)
		}
	}
}
