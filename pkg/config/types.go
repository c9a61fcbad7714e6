// Package config holds the askdoc configuration surface and its viper
// wiring. The YAML layout uses sections for logical grouping.
package config

// Config represents the full askdoc configuration.
type Config struct {
	Debug     bool            `mapstructure:"debug"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Answer    AnswerConfig    `mapstructure:"answer"`
	Events    EventsConfig    `mapstructure:"events"`
	API       APIConfig       `mapstructure:"api"`
}

// StorageConfig holds metadata store settings.
type StorageConfig struct {
	// Driver selects the backend: "sqlite", "postgres" or "memory".
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresURL string `mapstructure:"postgres_url"`
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	// Provider selects the backend: "sqlitevec", "chroma" or "memory".
	Provider   string `mapstructure:"provider"`
	SQLitePath string `mapstructure:"sqlite_path"`
	ChromaURL  string `mapstructure:"chroma_url"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the backend: "ollama" or "openai".
	Provider       string `mapstructure:"provider"`
	Target         string `mapstructure:"target"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	Dimensions     uint   `mapstructure:"dimensions"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LLMConfig holds chat completion settings for answer synthesis,
// including the endpoint's rate ceiling and retry budget.
type LLMConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	Temperature    float32 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	CallsPerMinute int     `mapstructure:"calls_per_minute"`
	MaxAttempts    int     `mapstructure:"max_attempts"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	ChunkSize        int   `mapstructure:"chunk_size"`
	ChunkOverlap     int   `mapstructure:"chunk_overlap"`
	MaxFileBytes     int64 `mapstructure:"max_file_bytes"`
	EmbedConcurrency int   `mapstructure:"embed_concurrency"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

// AnswerConfig holds answer synthesis settings.
type AnswerConfig struct {
	ContextBudget int `mapstructure:"context_budget"`
}

// EventsConfig holds event stream settings.
type EventsConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `mapstructure:"listen"`
}
