package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Runner is the synchronous provider surface used to embed text.
type Runner interface {
	Run(ctx context.Context, model string, payload, out any) error
}

// Embedder produces embedding vectors for style search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// FalEmbedder embeds text through a synchronous provider model.
type FalEmbedder struct {
	runner Runner
	model  string
}

// NewFalEmbedder creates an embedder running on the given model path.
func NewFalEmbedder(runner Runner, model string) *FalEmbedder {
	return &FalEmbedder{runner: runner, model: model}
}

// Embed returns the embedding vector for text.
func (e *FalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := e.runner.Run(ctx, e.model, map[string]any{"input": text}, &out); err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embedding response contained no vector")
	}
	return out.Embedding, nil
}
