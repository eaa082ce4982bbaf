package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/credo/internal/domain"
)

const (
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	chatModel     = "gpt-4o-mini"
)

type OpenAIClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

// chat types for OpenAI API
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) complete(ctx context.Context, messages []chatMessage, temp float32) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       chatModel,
		Messages:    messages,
		Temperature: temp,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIChatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("chat API error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// stripFences removes markdown code fences the model sometimes adds.
func stripFences(s string) string {
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func (c *OpenAIClient) Categorize(ctx context.Context, text string, hints []string) (domain.CategoryLabel, error) {
	prompt := fmt.Sprintf(categorizePrompt, text)
	if len(hints) > 0 {
		prompt += "\n\nHints: " + strings.Join(hints, ", ")
	}

	result, err := c.complete(ctx, []chatMessage{{Role: "user", Content: prompt}}, 0.2)
	if err != nil {
		return domain.FallbackCategory(), domain.WrapErr(domain.KindCategorizationUnavailable, "categorize", err)
	}

	var raw struct {
		Primary    string   `json:"primary"`
		Secondary  string   `json:"secondary"`
		Tags       []string `json:"tags"`
		Confidence float32  `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripFences(result)), &raw); err != nil {
		return domain.FallbackCategory(), domain.WrapErr(domain.KindCategorizationUnavailable, "parse categorize result", err)
	}
	if raw.Primary == "" {
		return domain.FallbackCategory(), nil
	}

	return domain.NewCategoryLabel(raw.Primary, raw.Secondary, raw.Tags, raw.Confidence), nil
}

func (c *OpenAIClient) ExtractBeliefs(ctx context.Context, text string, category domain.CategoryLabel, agentID string) ([]domain.BeliefProposal, error) {
	prompt := fmt.Sprintf(extractBeliefsPrompt, category.Primary, text)

	result, err := c.complete(ctx, []chatMessage{{Role: "user", Content: prompt}}, 0.2)
	if err != nil {
		return nil, domain.WrapErr(domain.KindExtractionUnavailable, "extract beliefs", err)
	}

	var raw []struct {
		Statement  string  `json:"statement"`
		Confidence float32 `json:"confidence"`
		Polarity   string  `json:"polarity"`
	}
	if err := json.Unmarshal([]byte(stripFences(result)), &raw); err != nil {
		return nil, domain.WrapErr(domain.KindExtractionUnavailable, "parse extraction result", err)
	}

	proposals := make([]domain.BeliefProposal, 0, len(raw))
	for _, r := range raw {
		stmt := strings.TrimSpace(r.Statement)
		if stmt == "" {
			continue
		}
		stmt = domain.TruncateStatement(stmt)
		proposals = append(proposals, domain.BeliefProposal{
			Statement:  stmt,
			Category:   category,
			Confidence: domain.ClampConfidence(r.Confidence),
			Polarity:   domain.Polarity(r.Polarity).OrPositive(),
		})
	}

	return proposals, nil
}

func (c *OpenAIClient) SynthesizeMerge(ctx context.Context, oldStatement, newStatement string) (string, error) {
	result, err := c.complete(ctx, []chatMessage{
		{Role: "user", Content: fmt.Sprintf(mergePrompt, oldStatement, newStatement)},
	}, 0.3)
	if err != nil {
		return "", domain.WrapErr(domain.KindExtractionUnavailable, "synthesize merge", err)
	}
	return domain.TruncateStatement(strings.TrimSpace(result)), nil
}
