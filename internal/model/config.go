package model

// Config holds the complete application configuration
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Embedding    EmbeddingConfig    `yaml:"embedding" mapstructure:"embedding"`
	Retrieval    RetrievalConfig    `yaml:"retrieval" mapstructure:"retrieval"`
	Scoring      ScoringWeights     `yaml:"scoring" mapstructure:"scoring"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	VectorStore  VectorStoreConfig  `yaml:"vector_store" mapstructure:"vector_store"`
	Patients     PatientsConfig     `yaml:"patients" mapstructure:"patients"`
	Memory       MemoryConfig       `yaml:"memory" mapstructure:"memory"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig    `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Ingest       IngestConfig       `yaml:"ingest" mapstructure:"ingest"`
}

// LLMConfig configures the language model provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // gemini, vertex, openai, anthropic, ollama, "" (disabled)
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Project     string  `yaml:"project,omitempty" mapstructure:"project"`   // Vertex AI project
	Location    string  `yaml:"location,omitempty" mapstructure:"location"` // Vertex AI region
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     int     `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	HTTPProxy   string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy     string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// EmbeddingConfig configures the query/passage embedder
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // gemini, vertex, openai, ollama
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Project    string `yaml:"project,omitempty" mapstructure:"project"`
	Location   string `yaml:"location,omitempty" mapstructure:"location"`
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"`
	Timeout    int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// RetrievalConfig controls top-k bounds and the evidence sufficiency gate
type RetrievalConfig struct {
	DefaultTopK int     `yaml:"default_top_k" mapstructure:"default_top_k"`
	MaxTopK     int     `yaml:"max_top_k" mapstructure:"max_top_k"`
	MinTopScore float64 `yaml:"min_top_score" mapstructure:"min_top_score"`
}

// ScoringWeights are the bonus and penalty terms of the relevance heuristic
type ScoringWeights struct {
	HasCriteria          float64 `yaml:"has_criteria" mapstructure:"has_criteria"`
	FeaturesRecommend    float64 `yaml:"features_recommendation" mapstructure:"features_recommendation"`
	PathwayPhrase        float64 `yaml:"pathway_phrase" mapstructure:"pathway_phrase"`
	ReferralVerb         float64 `yaml:"referral_verb" mapstructure:"referral_verb"`
	SymptomMatch         float64 `yaml:"symptom_match" mapstructure:"symptom_match"`
	SymptomMatchCap      float64 `yaml:"symptom_match_cap" mapstructure:"symptom_match_cap"`
	SymptomTermLimit     int     `yaml:"symptom_term_limit" mapstructure:"symptom_term_limit"`
	Haemoptysis          float64 `yaml:"haemoptysis" mapstructure:"haemoptysis"`
	UnexplainedQualifier float64 `yaml:"unexplained_qualifier" mapstructure:"unexplained_qualifier"`
	Site                 float64 `yaml:"site" mapstructure:"site"`
	BoilerplatePenalty   float64 `yaml:"boilerplate_penalty" mapstructure:"boilerplate_penalty"`
}

// VerificationConfig selects how grounding violations are handled
type VerificationConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"` // enforce, warn
}

// VectorStoreConfig locates the sqlite-vec passage index
type VectorStoreConfig struct {
	Path           string `yaml:"path" mapstructure:"path"`
	DistanceMetric string `yaml:"distance_metric" mapstructure:"distance_metric"` // l2, cosine
}

// PatientsConfig locates the patient records file
type PatientsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MemoryConfig selects the chat session backend
type MemoryConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend"` // memory, sqlite
	Path       string `yaml:"path" mapstructure:"path"`
	SessionTTL int    `yaml:"session_ttl_seconds" mapstructure:"session_ttl_seconds"` // 0 = sessions never expire
}

// CacheConfig configures response caching
type CacheConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir          string `yaml:"dir,omitempty" mapstructure:"dir"` // Enables the disk layer for LLM responses
	PatientTTL   int    `yaml:"patient_ttl_seconds" mapstructure:"patient_ttl_seconds"`
	RetrievalTTL int    `yaml:"retrieval_ttl_seconds" mapstructure:"retrieval_ttl_seconds"`
	LLMTTL       int    `yaml:"llm_ttl_seconds" mapstructure:"llm_ttl_seconds"`
}

// RateLimitConfig limits outbound model and fetch calls
type RateLimitConfig struct {
	RequestsPerSecond float64        `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int            `yaml:"burst_size" mapstructure:"burst_size"`
	Overrides         []RateOverride `yaml:"overrides,omitempty" mapstructure:"overrides"`
}

// RateOverride sets a dedicated limit for one limiter key: a model
// provider name, an embedding engine name such as "ollama:embeddinggemma",
// or a download host
type RateOverride struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size,omitempty" mapstructure:"burst_size"`
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr         string   `yaml:"addr" mapstructure:"addr"`
	APIKey       string   `yaml:"api_key,omitempty" mapstructure:"api_key"`
	CORSOrigins  []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ReadTimeout  int      `yaml:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`
	WriteTimeout int      `yaml:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`
}

// IngestConfig controls guideline download and chunking
type IngestConfig struct {
	Source        string `yaml:"source" mapstructure:"source"` // Local path or http(s) URL
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout       int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxBytes      int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
	RespectRobots bool   `yaml:"respect_robots" mapstructure:"respect_robots"`
	ChunkChars    int    `yaml:"chunk_chars" mapstructure:"chunk_chars"`
	OverlapChars  int    `yaml:"overlap_chars" mapstructure:"overlap_chars"`
	BatchSize     int    `yaml:"batch_size" mapstructure:"batch_size"`
	HTTPProxy     string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// DefaultScoringWeights returns the standard relevance heuristic
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		HasCriteria:          0.22,
		FeaturesRecommend:    0.16,
		PathwayPhrase:        0.12,
		ReferralVerb:         0.08,
		SymptomMatch:         0.03,
		SymptomMatchCap:      0.18,
		SymptomTermLimit:     14,
		Haemoptysis:          0.18,
		UnexplainedQualifier: 0.10,
		Site:                 0.06,
		BoilerplatePenalty:   0.35,
	}
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			Location:    "us-central1",
			Temperature: 0,
			MaxTokens:   1024,
			Timeout:     60,
		},
		Embedding: EmbeddingConfig{
			Provider:   "gemini",
			Model:      "gemini-embedding-001",
			Location:   "us-central1",
			Dimensions: 768,
			Timeout:    30,
		},
		Retrieval: RetrievalConfig{
			DefaultTopK: 5,
			MaxTopK:     20,
			MinTopScore: 0.55,
		},
		Scoring: DefaultScoringWeights(),
		Verification: VerificationConfig{
			Mode: "enforce",
		},
		VectorStore: VectorStoreConfig{
			Path:           "data/ng12.db",
			DistanceMetric: "l2",
		},
		Patients: PatientsConfig{
			Path: "data/patients.json",
		},
		Memory: MemoryConfig{
			Backend: "memory",
			Path:    "data/sessions.db",
		},
		Cache: CacheConfig{
			Enabled:      true,
			PatientTTL:   300,
			RetrievalTTL: 300,
			LLMTTL:       120,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 5.0,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Server: ServerConfig{
			Addr:         ":8000",
			CORSOrigins:  []string{"http://localhost:5173"},
			ReadTimeout:  30,
			WriteTimeout: 120,
		},
		Ingest: IngestConfig{
			Source:        "https://www.nice.org.uk/guidance/ng12/resources/suspected-cancer-recognition-and-referral-pdf-1837268071621",
			UserAgent:     "ng12agent/0.1 (+https://github.com/ppiankov/ng12agent)",
			Timeout:       60,
			MaxBytes:      50 * 1024 * 1024,
			RespectRobots: true,
			ChunkChars:    1400,
			OverlapChars:  160,
			BatchSize:     32,
		},
	}
}
