package setup

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/api/middleware"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/audit"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/config"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/database"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/embedding"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/generation"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/guardrails"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/llm/bedrock"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/metrics"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/pipeline"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/redis"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/retrieval"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	IndexMemory   = "memory"
	IndexPgvector = "pgvector"

	AuditLog   = "log"
	AuditRedis = "redis"
)

type Config struct {
	AWSRegion           string
	ClaudeModelID       string
	EmbeddingModelID    string
	EmbeddingDimensions int

	IndexBackend      string
	IndexSnapshotPath string
	Database          database.Config
	DBMaxRetries      int

	RedisAddr     string
	RedisPassword string
	AuditSink     string
	AuditStream   string

	APIPort         string
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string
}

type Dependencies struct {
	Orchestrator   *pipeline.Orchestrator
	InputEngine    *guardrails.InputEngine
	PipelineConfig *config.PipelineConfig
	Limiter        *middleware.RateLimiter
	Registry       *prometheus.Registry
	Redis          *goredis.Client
	DB             *database.DB
	Logger         *zerolog.Logger
}

func LoadConfig() *Config {
	return &Config{
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		ClaudeModelID:       getEnv("CLAUDE_MODEL_ID", ""),
		EmbeddingModelID:    getEnv("EMBEDDING_MODEL_ID", embedding.DefaultModelID),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", embedding.DefaultDimensions),

		IndexBackend:      getEnv("INDEX_BACKEND", IndexMemory),
		IndexSnapshotPath: getEnv("INDEX_SNAPSHOT_PATH", "data/index.json"),
		Database: database.Config{
			Host:     getEnv("UNI_GUARD_DB_HOST", "localhost"),
			Port:     getEnv("UNI_GUARD_DB_PORT", "5432"),
			User:     getEnv("UNI_GUARD_DB_USER", "postgres"),
			Password: getEnv("UNI_GUARD_DB_PASSWORD", ""),
			Database: getEnv("UNI_GUARD_DB_NAME", "university"),
			SSLMode:  getEnv("UNI_GUARD_DB_SSLMODE", "disable"),
		},
		DBMaxRetries: getEnvInt("UNI_GUARD_DB_MAX_RETRIES", 5),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		AuditSink:     getEnv("AUDIT_SINK", AuditLog),
		AuditStream:   getEnv("AUDIT_STREAM", audit.DefaultStream),

		APIPort:         getEnv("UNI_GUARD_API_PORT", "18082"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),
	}
}

// Wire builds the pipeline and its shared resources. Callers must Close
// the returned dependencies.
func Wire(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: logger}

	pipelineCfg, err := config.LoadPipelineConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline config: %w", err)
	}
	deps.PipelineConfig = pipelineCfg

	rules, err := guardrails.LoadRuleSet()
	if err != nil {
		return nil, fmt.Errorf("failed to load guardrail rules: %w", err)
	}
	logger.Info().Str("rule_set_version", rules.Version).Int("input_rules", len(rules.Input)).Msg("Guardrail rules loaded")

	llmClient, runtime, err := bedrock.NewClient(ctx, cfg.AWSRegion, cfg.ClaudeModelID, pipelineCfg.Generation.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bedrock client: %w", err)
	}
	embedder := embedding.NewBedrockEmbedder(runtime, cfg.EmbeddingModelID, cfg.EmbeddingDimensions)

	index, err := deps.openIndex(ctx, cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}

	sink, err := deps.auditSink(ctx, cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.Registry = prometheus.NewRegistry()
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(deps.Registry)

	deps.InputEngine = guardrails.NewInputEngine(rules)

	retriever := retrieval.NewEngine(embedder, index, retrieval.Config{
		TopK:     pipelineCfg.Retrieval.TopK,
		MinScore: pipelineCfg.Retrieval.MinScore,
	}, logger)

	adapter := generation.NewAdapter(llmClient, generation.Config{
		ModelName:   cfg.ClaudeModelID,
		MaxTokens:   pipelineCfg.Generation.MaxTokens,
		Temperature: pipelineCfg.Generation.Temperature,
		Timeout:     pipelineCfg.Generation.Timeout,
		MaxPassages: pipelineCfg.Generation.MaxPassages,
	}, logger)

	outputCfg := guardrails.DefaultOutputConfig()
	outputCfg.RelevanceThreshold = pipelineCfg.Output.RelevanceThreshold
	outputCfg.QueryWeight = pipelineCfg.Output.QueryWeight
	outputCfg.FactSupportThreshold = pipelineCfg.Output.FactSupportThreshold

	deps.Orchestrator = pipeline.NewOrchestrator(
		deps.InputEngine,
		retriever,
		adapter,
		guardrails.NewOutputEngine(outputCfg, rules),
		sink,
		recorder,
		pipeline.Config{TopK: pipelineCfg.Retrieval.TopK},
		logger,
	)

	deps.Limiter = middleware.NewRateLimiter(pipelineCfg.API.RequestsPerSecond, pipelineCfg.API.Burst)

	return deps, nil
}

func (d *Dependencies) openIndex(ctx context.Context, cfg *Config) (retrieval.Index, error) {
	switch cfg.IndexBackend {
	case IndexPgvector:
		db, err := database.NewWithBackoff(ctx, cfg.Database, cfg.DBMaxRetries)
		if err != nil {
			return nil, err
		}
		d.DB = db
		d.Logger.Info().Str("backend", cfg.IndexBackend).Msg("Passage index opened")
		return database.NewPassageStore(db), nil

	case IndexMemory, "":
		index, err := retrieval.LoadMemoryIndex(cfg.IndexSnapshotPath)
		if err != nil {
			return nil, err
		}
		d.Logger.Info().Str("backend", IndexMemory).Int("passages", index.Len()).Msg("Passage index loaded")
		return index, nil

	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.IndexBackend)
	}
}

func (d *Dependencies) auditSink(ctx context.Context, cfg *Config) (pipeline.AuditSink, error) {
	logSink := audit.NewLogSink(d.Logger)

	switch cfg.AuditSink {
	case AuditRedis:
		client, err := d.ConnectRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return audit.Multi{logSink, audit.NewRedisSink(client, cfg.AuditStream, audit.DefaultMaxLen)}, nil

	case AuditLog, "":
		return logSink, nil

	default:
		return nil, fmt.Errorf("unsupported audit sink: %s", cfg.AuditSink)
	}
}

// ConnectRedis returns the shared redis client, connecting on first use.
func (d *Dependencies) ConnectRedis(ctx context.Context, cfg *Config) (*goredis.Client, error) {
	if d.Redis != nil {
		return d.Redis, nil
	}

	client, err := redis.Connect(ctx, redis.Options{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		MaxRetries: 5,
	}, d.Logger)
	if err != nil {
		return nil, err
	}

	d.Redis = client
	return client, nil
}

func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		value = defaultValue
	}

	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		value = defaultValue
	}

	return value
}
