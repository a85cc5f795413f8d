package embedding

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	DefaultModelID    = "amazon.titan-embed-text-v2:0"
	DefaultDimensions = 1024
)

type runtimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions"`
	Normalize  bool   `json:"normalize"`
}

type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// BedrockEmbedder produces normalized Titan text embeddings.
type BedrockEmbedder struct {
	client     runtimeAPI
	modelID    string
	dimensions int
}

func NewBedrockEmbedder(client runtimeAPI, modelID string, dimensions int) *BedrockEmbedder {
	if modelID == "" {
		modelID = DefaultModelID
	}
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}

	return &BedrockEmbedder{
		client:     client,
		modelID:    modelID,
		dimensions: dimensions,
	}
}

func (e *BedrockEmbedder) ModelID() string {
	return e.modelID
}

// Embed implements retrieval.Embedder.
func (e *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.GenerateEmbeddings(ctx, text)
}

func (e *BedrockEmbedder) GenerateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanRequest{
		InputText:  text,
		Dimensions: e.dimensions,
		Normalize:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	output, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke embedding model: %w", err)
	}

	var response titanResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding response: %w", err)
	}
	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("embedding model returned an empty vector")
	}

	return response.Embedding, nil
}

// GenerateBatchEmbeddings embeds texts one by one, preserving order.
func (e *BedrockEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))

	for i, text := range texts {
		vector, err := e.GenerateEmbeddings(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		embeddings = append(embeddings, vector)
	}

	return embeddings, nil
}
