package config

// CatalogConfig holds the style catalog configuration.
//
// Style definitions ship embedded in the binary; StylesDir layers
// deployment-specific styles on top. The semantic search tool additionally
// needs DatabaseURL (top-level) for its pgvector store.
type CatalogConfig struct {
	// StylesDir points at a directory of style definition JSON files.
	// Empty means embedded styles only.
	StylesDir string `mapstructure:"styles_dir" json:"styles_dir"`

	// EmbedModel is the provider's synchronous embedding model used to
	// vectorize search queries (default: fal-ai/any-llm/embeddings).
	EmbedModel string `mapstructure:"embed_model" json:"embed_model"`

	// SearchLimit caps results returned by style search (default: 5).
	SearchLimit int `mapstructure:"search_limit" json:"search_limit"`
}
