package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const DefaultPipelineConfigPath = "configs/pipeline.yaml"

// PipelineConfig holds the tunable thresholds of the pipeline.
type PipelineConfig struct {
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Generation GenerationConfig `yaml:"generation"`
	Output     OutputConfig     `yaml:"output"`
	API        APIConfig        `yaml:"api"`
}

type RetrievalConfig struct {
	TopK     int     `yaml:"top_k" validate:"gte=1,lte=50"`
	MinScore float64 `yaml:"min_score" validate:"gte=0,lte=1"`
}

type GenerationConfig struct {
	MaxTokens   int           `yaml:"max_tokens" validate:"gte=1,lte=4096"`
	Temperature float64       `yaml:"temperature" validate:"gte=0,lte=1"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=1s"`
	MaxPassages int           `yaml:"max_passages" validate:"gte=1"`
	// MaxAttempts counts the first call. At most one retry is allowed.
	MaxAttempts int `yaml:"max_attempts" validate:"gte=1,lte=2"`
}

type OutputConfig struct {
	RelevanceThreshold   float64 `yaml:"relevance_threshold" validate:"gte=0,lte=1"`
	QueryWeight          float64 `yaml:"query_weight" validate:"gte=0,lte=1"`
	FactSupportThreshold float64 `yaml:"fact_support_threshold" validate:"gte=0,lte=1"`
}

type APIConfig struct {
	// RequestsPerSecond is the per-session rate. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
	MaxQueryBytes     int     `yaml:"max_query_bytes" validate:"gte=1"`
}

var validate = validator.New()

// LoadPipelineConfig reads PIPELINE_CONFIG_PATH or configs/pipeline.yaml.
// A missing file yields the defaults.
func LoadPipelineConfig() (*PipelineConfig, error) {
	path := os.Getenv("PIPELINE_CONFIG_PATH")
	if path == "" {
		path = DefaultPipelineConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && os.Getenv("PIPELINE_CONFIG_PATH") == "" {
			return DefaultPipelineConfig(), nil
		}
		return nil, fmt.Errorf("failed to read pipeline config %s: %w", path, err)
	}

	return ParsePipelineConfig(data)
}

// ParsePipelineConfig decodes data over the defaults, so keys left out keep
// their default and an explicit zero is kept as written.
func ParsePipelineConfig(data []byte) (*PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		Generation: GenerationConfig{
			MaxTokens:   512,
			Temperature: 0.7,
			Timeout:     30 * time.Second,
			MaxPassages: 10,
			MaxAttempts: 2,
		},
		Output: OutputConfig{
			RelevanceThreshold:   0.3,
			QueryWeight:          0.25,
			FactSupportThreshold: 0.7,
		},
		API: APIConfig{
			MaxQueryBytes: 2000,
		},
	}
}

// applyDefaults fills values that depend on other settings.
func applyDefaults(cfg *PipelineConfig) {
	if cfg.API.RequestsPerSecond > 0 && cfg.API.Burst == 0 {
		cfg.API.Burst = 1
	}
}

func (c *PipelineConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}
	return nil
}
