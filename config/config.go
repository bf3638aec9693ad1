package config

// Config is the top-level configuration for the retrieval engine.
type Config struct {
	Engine    EngineConfig    `json:"engine" yaml:"engine"`
	Scoring   ScoringConfig   `json:"scoring" yaml:"scoring"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	VectorDB  VectorDBConfig  `json:"vectordb" yaml:"vectordb"`
	// Sources registers external document sources for ingestion.
	Sources []SourceConfig `json:"sources,omitempty" yaml:"sources,omitempty"`
	// HTTP holds outbound client defaults for source adapters.
	HTTP *HTTPClientConfig `json:"http,omitempty" yaml:"http,omitempty"`
	// Cache controls L1 caching of search results. Nil disables caching.
	Cache *CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// EngineConfig contains the retrieval parameters of the engine.
type EngineConfig struct {
	Splitter            SplitterConfig `json:"splitter" yaml:"splitter"`
	ConfidenceThreshold float64        `json:"confidence_threshold,omitempty" yaml:"confidence_threshold,omitempty"`
	TopK                int            `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	ExcerptMaxLength    int            `json:"excerpt_max_length,omitempty" yaml:"excerpt_max_length,omitempty"`
}

// SplitterConfig defines document chunking configuration.
type SplitterConfig struct {
	ChunkSize    int `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	ChunkOverlap int `json:"chunk_overlap,omitempty" yaml:"chunk_overlap,omitempty"`
	// PreserveSections enables section-aware chunking for research papers.
	PreserveSections bool `json:"preserve_sections,omitempty" yaml:"preserve_sections,omitempty"`
	// MinSectionLength discards detected sections shorter than this as noise.
	MinSectionLength int `json:"min_section_length,omitempty" yaml:"min_section_length,omitempty"`
}

// ScoringConfig carries the confidence model weights. Defaults reproduce
// the standard model; deployments may retune per specialty as long as the
// weights sum to 1.
type ScoringConfig struct {
	SimilarityWeight   float64 `json:"similarity_weight,omitempty" yaml:"similarity_weight,omitempty"`
	SourceWeight       float64 `json:"source_weight,omitempty" yaml:"source_weight,omitempty"`
	DocumentTypeWeight float64 `json:"document_type_weight,omitempty" yaml:"document_type_weight,omitempty"`
	RecencyWeight      float64 `json:"recency_weight,omitempty" yaml:"recency_weight,omitempty"`
	RelevanceWeight    float64 `json:"relevance_weight,omitempty" yaml:"relevance_weight,omitempty"`
	QualityWeight      float64 `json:"quality_weight,omitempty" yaml:"quality_weight,omitempty"`
}

// IsZero reports whether no weight has been set.
func (s ScoringConfig) IsZero() bool {
	return s.SimilarityWeight == 0 && s.SourceWeight == 0 && s.DocumentTypeWeight == 0 &&
		s.RecencyWeight == 0 && s.RelevanceWeight == 0 && s.QualityWeight == 0
}

// EmbeddingConfig defines configuration for embedding models.
type EmbeddingConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: openai
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// VectorDBConfig defines configuration for vector databases.
type VectorDBConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: milvus, memory
	Host       string `json:"host,omitempty" yaml:"host,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database   string `json:"database,omitempty" yaml:"database,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
}

// SourceConfig registers one external document source.
type SourceConfig struct {
	// Name must be one of the closed source enumeration values.
	Name     string `json:"name" yaml:"name"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// RequestsPerSecond throttles fetches against the upstream quota.
	// Zero applies the default of 3 req/s.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
}

// HTTPClientConfig holds outbound HTTP defaults for source adapters.
type HTTPClientConfig struct {
	TimeoutMs              int      `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Retry                  int      `json:"retry,omitempty" yaml:"retry,omitempty"`
	BackoffMinMs           int      `json:"backoff_min_ms,omitempty" yaml:"backoff_min_ms,omitempty"`
	BackoffMaxMs           int      `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
	HostAllowlist          []string `json:"host_allowlist,omitempty" yaml:"host_allowlist,omitempty"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty"`
	CircuitOpenSeconds     int      `json:"circuit_open_seconds,omitempty" yaml:"circuit_open_seconds,omitempty"`
}

// CacheConfig controls the L1 search result cache.
type CacheConfig struct {
	Enable     bool `json:"enable,omitempty" yaml:"enable,omitempty"`
	MaxEntries int  `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
	TTLSeconds int  `json:"ttl_seconds,omitempty" yaml:"ttl_seconds,omitempty"`
}

// Default chunking and retrieval parameters.
const (
	DefaultChunkSize           = 1000
	DefaultChunkOverlap        = 200
	DefaultMinSectionLength    = 50
	DefaultConfidenceThreshold = 0.7
	DefaultTopK                = 10
	DefaultExcerptMaxLength    = 200
)

// DefaultScoring holds the standard confidence model weights.
var DefaultScoring = ScoringConfig{
	SimilarityWeight:   0.40,
	SourceWeight:       0.20,
	DocumentTypeWeight: 0.15,
	RecencyWeight:      0.10,
	RelevanceWeight:    0.10,
	QualityWeight:      0.05,
}

// ApplyDefaults fills unset fields with engine defaults.
func (c *Config) ApplyDefaults() {
	if c.Engine.Splitter.ChunkSize <= 0 {
		c.Engine.Splitter.ChunkSize = DefaultChunkSize
	}
	if c.Engine.Splitter.ChunkOverlap <= 0 {
		c.Engine.Splitter.ChunkOverlap = DefaultChunkOverlap
	}
	if c.Engine.Splitter.MinSectionLength <= 0 {
		c.Engine.Splitter.MinSectionLength = DefaultMinSectionLength
	}
	if c.Engine.ConfidenceThreshold <= 0 {
		c.Engine.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.Engine.TopK <= 0 {
		c.Engine.TopK = DefaultTopK
	}
	if c.Engine.ExcerptMaxLength <= 0 {
		c.Engine.ExcerptMaxLength = DefaultExcerptMaxLength
	}
	if c.Scoring.IsZero() {
		c.Scoring = DefaultScoring
	}
}
