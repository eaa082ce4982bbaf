package embedding

import (
	"fmt"
	"math"

	"github.com/Harshitk-cp/credo/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI        = "openai"
	ProviderDeterministic = "deterministic"
)

// NewClient creates an embedding client based on the provider name.
// Returns an error if the provider is unknown or the API key is empty
// (except for the deterministic fallback).
func NewClient(provider, apiKey string, dimension int) (domain.EmbeddingClient, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embedding provider")
		}
		return NewOpenAIClient(apiKey, dimension), nil

	case ProviderDeterministic:
		return NewDeterministicClient(dimension), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (valid options: openai, deterministic)", provider)
	}
}

// normalize scales v to unit L2 norm in place and returns it.
// A zero vector is returned unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
