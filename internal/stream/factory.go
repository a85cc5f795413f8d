package stream

import (
	"fmt"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/stream/redis"
	"github.com/rs/zerolog"
)

type StreamConfig struct {
	Provider    string // redis
	RedisConfig *redis.RedisStreamConfig
}

func NewStreamConsumer(
	cfg *StreamConfig,
	client redis.StreamClient,
	handler redis.QueryHandler,
	logger *zerolog.Logger,
) (StreamConsumer, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "redis"
	}

	switch provider {
	case "redis":
		if cfg.RedisConfig == nil {
			return nil, fmt.Errorf("redis config required")
		}
		return redis.NewConsumer(client, *cfg.RedisConfig, handler, logger), nil

	default:
		return nil, fmt.Errorf("unsupported stream provider: %s", cfg.Provider)
	}
}
