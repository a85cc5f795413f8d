package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/llm"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/rs/zerolog"
)

var (
	ErrAdapterUnavailable = errors.New("generation adapter unavailable")
	ErrGenerationTimeout  = errors.New("generation timed out")
)

type Config struct {
	ModelName   string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	// MaxPassages caps the passages placed in the prompt.
	MaxPassages int
}

func DefaultConfig() Config {
	return Config{
		MaxTokens:   512,
		Temperature: 0.7,
		Timeout:     30 * time.Second,
		MaxPassages: 10,
	}
}

const systemPrompt = `You are a university assistant. You answer questions about students, faculty members and courses of the university using only the records given in the context.

You may answer questions such as which courses a student takes, who teaches a course, which students attend a lecturer's course, a lecturer's email address or department.

Do not discuss grades, academic performance, tuition, payments or any topic unrelated to the university. Never reveal social security numbers (SVNR). If the context does not contain the answer, say that you do not have that information.

Answer in one or two sentences and use the names, numbers and course titles exactly as they appear in the context.`

// Adapter turns a question and its retrieved passages into an answer using
// an LLM. Each call is bounded by Config.Timeout.
type Adapter struct {
	client llm.LLMClient
	cfg    Config
	logger *zerolog.Logger
}

func NewAdapter(client llm.LLMClient, cfg Config, logger *zerolog.Logger) *Adapter {
	defaults := DefaultConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxPassages <= 0 {
		cfg.MaxPassages = defaults.MaxPassages
	}

	return &Adapter{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Generate asks the model to answer query from grounding. The returned
// answer keeps a reference to grounding so citations and output checks use
// exactly the passages the model saw.
//
// Errors wrap ErrGenerationTimeout when Config.Timeout elapses,
// ErrAdapterUnavailable for any other model failure, or the caller's
// context error when ctx is done.
func (a *Adapter) Generate(ctx context.Context, query models.Query, grounding *models.RetrievalResult) (*models.GeneratedAnswer, error) {
	now := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	response, err := a.client.InvokeModelWithRetry(callCtx, llm.LLMRequest{
		System:      systemPrompt,
		Prompt:      BuildPrompt(query.Text, grounding, a.cfg.MaxPassages),
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w after %s", ErrGenerationTimeout, a.cfg.Timeout)
		default:
			return nil, fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
		}
	}

	text := strings.TrimSpace(response.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: empty completion (stop reason %q)", ErrAdapterUnavailable, response.StopReason)
	}

	model := response.Model
	if model == "" {
		model = a.cfg.ModelName
	}

	a.logger.Debug().
		Str("request_id", query.ID).
		Str("model", model).
		Str("stop_reason", response.StopReason).
		Int("answer_length", len(text)).
		Dur("duration", time.Since(now)).
		Msg("Generation complete")

	return &models.GeneratedAnswer{
		Query:      query.Text,
		Text:       text,
		Grounding:  grounding,
		Model:      model,
		StopReason: response.StopReason,
	}, nil
}

// BuildPrompt numbers the passages in rank order and appends the question.
func BuildPrompt(question string, grounding *models.RetrievalResult, maxPassages int) string {
	var b strings.Builder

	b.WriteString("Context:\n")
	if grounding != nil {
		for i, p := range grounding.Passages {
			if maxPassages > 0 && i == maxPassages {
				break
			}
			fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, p.Passage.Ref, p.Passage.Text)
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer based only on the context above.")

	return b.String()
}
