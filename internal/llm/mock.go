package llm

import (
	"context"

	"github.com/Harshitk-cp/credo/internal/domain"
)

// MockClient is a configurable categorizer/extractor for testing.
// Set the response fields to control what each method returns.
type MockClient struct {
	CategorizeResponse      domain.CategoryLabel
	CategorizeError         error
	ExtractResponse         []domain.BeliefProposal
	ExtractError            error
	SynthesizeMergeResponse string
	SynthesizeMergeError    error

	// Call tracking for assertions
	CategorizeCalls      []string
	ExtractCalls         []string
	SynthesizeMergeCalls []struct{ Old, New string }
}

func NewMockClient() *MockClient {
	return &MockClient{
		CategorizeResponse: domain.FallbackCategory(),
		ExtractResponse:    []domain.BeliefProposal{},
	}
}

func (c *MockClient) Categorize(ctx context.Context, text string, hints []string) (domain.CategoryLabel, error) {
	c.CategorizeCalls = append(c.CategorizeCalls, text)
	if c.CategorizeError != nil {
		return domain.FallbackCategory(), c.CategorizeError
	}
	return c.CategorizeResponse, nil
}

func (c *MockClient) ExtractBeliefs(ctx context.Context, text string, category domain.CategoryLabel, agentID string) ([]domain.BeliefProposal, error) {
	c.ExtractCalls = append(c.ExtractCalls, text)
	if c.ExtractError != nil {
		return nil, c.ExtractError
	}
	return c.ExtractResponse, nil
}

func (c *MockClient) SynthesizeMerge(ctx context.Context, oldStatement, newStatement string) (string, error) {
	c.SynthesizeMergeCalls = append(c.SynthesizeMergeCalls, struct{ Old, New string }{oldStatement, newStatement})
	if c.SynthesizeMergeError != nil {
		return "", c.SynthesizeMergeError
	}
	return c.SynthesizeMergeResponse, nil
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.CategorizeResponse = domain.FallbackCategory()
	c.CategorizeError = nil
	c.ExtractResponse = []domain.BeliefProposal{}
	c.ExtractError = nil
	c.SynthesizeMergeResponse = ""
	c.SynthesizeMergeError = nil
	c.CategorizeCalls = nil
	c.ExtractCalls = nil
	c.SynthesizeMergeCalls = nil
}
