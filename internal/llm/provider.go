package llm

import (
	"fmt"

	"github.com/Harshitk-cp/credo/internal/categorize"
	"github.com/Harshitk-cp/credo/internal/domain"
	"github.com/Harshitk-cp/credo/internal/extract"
)

// Provider constants
const (
	ProviderOpenAI  = "openai"
	ProviderPattern = "pattern"
	ProviderMock    = "mock"
)

// Clients bundles the categorizer and extractor selected by config.
// Synthesizer is nil when the backend cannot merge statements.
type Clients struct {
	Categorizer domain.Categorizer
	Extractor   domain.BeliefExtractor
	Synthesizer domain.MergeSynthesizer
}

// NewClients creates categorizer/extractor clients based on the provider
// name. The pattern provider needs no API key and is fully deterministic.
func NewClients(provider, apiKey string) (*Clients, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		c := NewOpenAIClient(apiKey)
		return &Clients{Categorizer: c, Extractor: c, Synthesizer: c}, nil

	case ProviderPattern:
		return &Clients{
			Categorizer: categorize.NewPatternEngine(),
			Extractor:   extract.NewPatternExtractor(),
		}, nil

	case ProviderMock:
		c := NewMockClient()
		return &Clients{Categorizer: c, Extractor: c, Synthesizer: c}, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (valid options: openai, pattern, mock)", provider)
	}
}
