package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

type embedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f embedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

type searcherFunc func(ctx context.Context, embedding []float32, family string, limit int) ([]Match, error)

func (f searcherFunc) Search(ctx context.Context, embedding []float32, family string, limit int) ([]Match, error) {
	return f(ctx, embedding, family, limit)
}

func staticEmbedder(vec []float32) embedderFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return vec, nil
	}
}

func TestSearchTool(t *testing.T) {
	var gotQuery string
	embedder := embedderFunc(func(ctx context.Context, text string) ([]float32, error) {
		gotQuery = text
		return []float32{0.5, 0.5}, nil
	})

	var gotEmbedding []float32
	var gotFamily string
	var gotLimit int
	store := searcherFunc(func(ctx context.Context, embedding []float32, family string, limit int) ([]Match, error) {
		gotEmbedding = embedding
		gotFamily = family
		gotLimit = limit
		return []Match{
			{Style: Style{Name: "pixel-art", Family: "image"}, Score: 0.91},
			{Style: Style{Name: "illustration", Family: "image"}, Score: 0.74},
		}, nil
	})

	tool := NewSearchTool(embedder, store, 5, log.NewNop())
	res, err := tool.Handler(context.Background(), tools.NewContext(), map[string]any{
		"query":  "retro game sprites",
		"family": "image",
		"limit":  float64(2),
	})
	if err != nil {
		t.Fatalf("search_styles error: %v", err)
	}

	if gotQuery != "retro game sprites" {
		t.Errorf("embedded query = %q", gotQuery)
	}
	if len(gotEmbedding) != 2 || gotFamily != "image" || gotLimit != 2 {
		t.Errorf("store.Search got embedding=%v family=%q limit=%d", gotEmbedding, gotFamily, gotLimit)
	}

	var payload struct {
		Matches []Match `json:"matches"`
		Count   int     `json:"count"`
	}
	decodePayload(t, res, &payload)
	if payload.Count != 2 {
		t.Fatalf("search_styles count = %d, want 2", payload.Count)
	}
	if payload.Matches[0].Name != "pixel-art" || payload.Matches[0].Score != 0.91 {
		t.Errorf("first match = %+v", payload.Matches[0])
	}
}

func TestSearchToolRequiresQuery(t *testing.T) {
	tool := NewSearchTool(staticEmbedder([]float32{1}), searcherFunc(nil), 5, log.NewNop())

	for _, args := range []map[string]any{
		{},
		{"query": "   "},
	} {
		_, err := tool.Handler(context.Background(), tools.NewContext(), args)
		if err == nil {
			t.Fatalf("search_styles(%v) succeeded, want error", args)
		}
		if code := errCode(t, err); code != tools.CodeInvalidArgument {
			t.Errorf("search_styles(%v) code = %s, want %s", args, code, tools.CodeInvalidArgument)
		}
	}
}

func TestSearchToolDefaultLimit(t *testing.T) {
	var gotLimit int
	store := searcherFunc(func(ctx context.Context, embedding []float32, family string, limit int) ([]Match, error) {
		gotLimit = limit
		return nil, nil
	})

	// A zero configured default falls back to 5.
	tool := NewSearchTool(staticEmbedder([]float32{1}), store, 0, log.NewNop())
	if _, err := tool.Handler(context.Background(), tools.NewContext(), map[string]any{"query": "q"}); err != nil {
		t.Fatalf("search_styles error: %v", err)
	}
	if gotLimit != 5 {
		t.Errorf("default limit = %d, want 5", gotLimit)
	}

	// Non-positive caller limits are ignored.
	if _, err := tool.Handler(context.Background(), tools.NewContext(), map[string]any{
		"query": "q",
		"limit": float64(-3),
	}); err != nil {
		t.Fatalf("search_styles error: %v", err)
	}
	if gotLimit != 5 {
		t.Errorf("limit after negative request = %d, want 5", gotLimit)
	}
}

func TestSearchToolEmbedError(t *testing.T) {
	embedder := embedderFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("model offline")
	})

	tool := NewSearchTool(embedder, searcherFunc(nil), 5, log.NewNop())
	_, err := tool.Handler(context.Background(), tools.NewContext(), map[string]any{"query": "q"})
	if err == nil {
		t.Fatal("search_styles succeeded, want error")
	}
	if code := errCode(t, err); code != tools.CodeProviderError {
		t.Errorf("embed failure code = %s, want %s", code, tools.CodeProviderError)
	}
	if !strings.Contains(err.Error(), "style search is unavailable") {
		t.Errorf("embed failure message = %v", err)
	}
}

func TestSearchToolStoreError(t *testing.T) {
	store := searcherFunc(func(ctx context.Context, embedding []float32, family string, limit int) ([]Match, error) {
		return nil, fmt.Errorf("connection refused")
	})

	tool := NewSearchTool(staticEmbedder([]float32{1}), store, 5, log.NewNop())
	_, err := tool.Handler(context.Background(), tools.NewContext(), map[string]any{"query": "q"})
	if err == nil {
		t.Fatal("search_styles succeeded, want error")
	}
	if code := errCode(t, err); code != tools.CodeInternal {
		t.Errorf("store failure code = %s, want %s", code, tools.CodeInternal)
	}
}
