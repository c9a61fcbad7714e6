package config

const (
	defaultStorageDriver = "sqlite"
	defaultSQLitePath    = "askdoc.db"

	defaultVectorProvider   = "sqlitevec"
	defaultVectorSQLitePath = "askdoc-vectors.db"
	defaultChromaURL        = "http://localhost:8000"

	defaultEmbeddingProvider       = "ollama"
	defaultEmbeddingTarget         = "http://localhost:11434"
	defaultEmbeddingModel          = "nomic-embed-text"
	defaultEmbeddingDimensions     = 768
	defaultEmbeddingTimeoutSeconds = 30

	defaultLLMBaseURL        = "https://api.groq.com/openai/v1"
	defaultLLMModel          = "llama3-8b-8192"
	defaultLLMTemperature    = 0.1
	defaultLLMMaxTokens      = 1000
	defaultLLMTimeoutSeconds = 60

	defaultChunkSize        = 1000
	defaultChunkOverlap     = 200
	defaultMaxFileBytes     = 10 * 1024 * 1024
	defaultEmbedConcurrency = 4

	defaultTopK = 3

	defaultCallsPerMinute = 30
	defaultMaxAttempts    = 4

	defaultContextBudget = 6000

	defaultKafkaTopic = "askdoc.documents"

	defaultAPIListen = ":8080"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:     defaultStorageDriver,
			SQLitePath: defaultSQLitePath,
		},
		Vector: VectorConfig{
			Provider:   defaultVectorProvider,
			SQLitePath: defaultVectorSQLitePath,
			ChromaURL:  defaultChromaURL,
		},
		Embedding: EmbeddingConfig{
			Provider:       defaultEmbeddingProvider,
			Target:         defaultEmbeddingTarget,
			Model:          defaultEmbeddingModel,
			Dimensions:     defaultEmbeddingDimensions,
			TimeoutSeconds: defaultEmbeddingTimeoutSeconds,
		},
		LLM: LLMConfig{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Temperature:    defaultLLMTemperature,
			MaxTokens:      defaultLLMMaxTokens,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			CallsPerMinute: defaultCallsPerMinute,
			MaxAttempts:    defaultMaxAttempts,
		},
		Ingest: IngestConfig{
			ChunkSize:        defaultChunkSize,
			ChunkOverlap:     defaultChunkOverlap,
			MaxFileBytes:     defaultMaxFileBytes,
			EmbedConcurrency: defaultEmbedConcurrency,
		},
		Retrieval: RetrievalConfig{
			TopK: defaultTopK,
		},
		Answer: AnswerConfig{
			ContextBudget: defaultContextBudget,
		},
		Events: EventsConfig{
			Enabled:    false,
			KafkaTopic: defaultKafkaTopic,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
	}
}
