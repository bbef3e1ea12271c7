package llm

import (
	"context"
	"encoding/json"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// defaultTitanModel is the Bedrock embedding model. Titan v2 produces
// 1024-dimensional vectors natively, matching the index dimension.
const defaultTitanModel = "amazon.titan-embed-text-v2:0"

// titanEmbedder implements the embeddings backend on AWS Bedrock.
// Credentials and region come from the standard AWS environment.
type titanEmbedder struct {
	client    *bedrockruntime.Client
	modelID   string
	dimension int
}

// newTitanEmbedder creates a Bedrock-backed embedder.
func newTitanEmbedder(ctx context.Context, modelID string, dimension int) (*titanEmbedder, error) {
	if modelID == "" || modelID == "text-embedding-3-small" {
		// Provider switched to bedrock without a matching model name.
		modelID = defaultTitanModel
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &titanEmbedder{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		modelID:   modelID,
		dimension: dimension,
	}, nil
}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize"`
}

type titanResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedDocuments embeds each text with a separate InvokeModel call;
// Titan accepts a single input per invocation.
func (t *titanEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := t.invoke(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (t *titanEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return t.invoke(ctx, text)
}

func (t *titanEmbedder) invoke(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanRequest{
		InputText:  text,
		Dimensions: t.dimension,
		Normalize:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal titan request: %w", err)
	}

	out, err := t.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &t.modelID,
		ContentType: ptr("application/json"),
		Accept:      ptr("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, wrapFatalError(fmt.Errorf("invoke %s: %w", t.modelID, err))
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode titan response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding from %s", t.modelID)
	}
	return resp.Embedding, nil
}

func ptr(s string) *string {
	return &s
}
