package config

const (
	defaultAPIListen = ":8090"

	defaultChatBaseURL = "https://openrouter.ai/api/v1"
	defaultChatModel   = "deepseek/deepseek-r1-0528:free"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "cartable"

	defaultRetrievalThreshold = 1.2
	defaultRetrievalTopK      = 4

	defaultChunkSize    = 1000
	defaultChunkOverlap = 200

	defaultEventsProvider = "nop"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Chat: ChatConfig{
			BaseURL: defaultChatBaseURL,
			Model:   defaultChatModel,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Retrieval: RetrievalConfig{
			Threshold: defaultRetrievalThreshold,
			TopK:      defaultRetrievalTopK,
		},
		Chunking: ChunkingConfig{
			Size:    defaultChunkSize,
			Overlap: defaultChunkOverlap,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
		},
	}
}
