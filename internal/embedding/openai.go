package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Harshitk-cp/credo/internal/domain"
)

const (
	openAIEmbeddingURL = "https://api.openai.com/v1/embeddings"
	model              = "text-embedding-3-small"
)

type OpenAIClient struct {
	apiKey     string
	dimension  int
	httpClient *http.Client
}

func NewOpenAIClient(apiKey string, dimension int) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		dimension:  dimension,
		httpClient: &http.Client{},
	}
}

func (c *OpenAIClient) Dimension() int        { return c.dimension }
func (c *OpenAIClient) IsDeterministic() bool { return false }

type embeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Model:      model,
		Input:      text,
		Dimensions: c.dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIEmbeddingURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapErr(domain.KindEmbeddingUnavailable, "embedding request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.WrapErr(domain.KindEmbeddingUnavailable, "read embedding response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.E(domain.KindEmbeddingUnavailable,
			fmt.Sprintf("embedding API returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var result embeddingResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, domain.WrapErr(domain.KindEmbeddingUnavailable, "unmarshal embedding response", err)
	}

	if result.Error != nil {
		return nil, domain.E(domain.KindEmbeddingUnavailable, "embedding API error: "+result.Error.Message)
	}

	if len(result.Data) == 0 {
		return nil, domain.E(domain.KindEmbeddingUnavailable, "embedding API returned no data")
	}

	vec := result.Data[0].Embedding
	if len(vec) != c.dimension {
		return nil, domain.E(domain.KindEmbeddingUnavailable,
			fmt.Sprintf("embedding API returned dimension %d, want %d", len(vec), c.dimension))
	}

	return normalize(vec), nil
}
