package testutils

import (
	"context"
	"fmt"
)

// MockEmbedder is a test embedder that returns predictable embeddings.
type MockEmbedder struct {
	// Dims is the configured output length.
	Dims int

	// Embeddings maps input text to a fixed vector.
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches.
	FailOn string
}

func NewMockEmbedder(dims int) *MockEmbedder {
	return &MockEmbedder{
		Dims:       dims,
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Default embedding for any text: a constant ramp of the configured
	// length.
	emb := make([]float32, m.Dims)
	for i := range emb {
		emb[i] = float32(i+1) / float32(m.Dims)
	}
	return emb, nil
}

func (m *MockEmbedder) Dimensions() int {
	return m.Dims
}

func (m *MockEmbedder) Close() error {
	return nil
}
