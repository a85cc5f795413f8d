package bedrock

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// RuntimeAPI is the part of the Bedrock runtime client used here.
type RuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type Client struct {
	Client       RuntimeAPI
	ModelID      string
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// NewClient loads the default AWS config for region. maxAttempts bounds the
// number of calls made by InvokeModelWithRetry, the first one included.
func NewClient(ctx context.Context, region string, modelID string, maxAttempts int) (*Client, *bedrockruntime.Client, error) {
	if modelID == "" {
		return nil, nil, fmt.Errorf("Claude model ID is required")
	}

	runtime, err := NewRuntime(ctx, region)
	if err != nil {
		return nil, nil, err
	}

	return NewWithRuntime(runtime, modelID, maxAttempts), runtime, nil
}

// NewRuntime returns a Bedrock runtime client for region, shared by the
// Claude client and the embedder.
func NewRuntime(ctx context.Context, region string) (*bedrockruntime.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("Unable to load AWS config: %w", err)
	}

	return bedrockruntime.NewFromConfig(cfg), nil
}

func NewWithRuntime(runtime RuntimeAPI, modelID string, maxAttempts int) *Client {
	if maxAttempts <= 0 {
		maxAttempts = 2
	}

	return &Client{
		Client:       runtime,
		ModelID:      modelID,
		MaxRetries:   maxAttempts,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
	}
}
