package redis

import "time"

const (
	DefaultQueryStream    = "uni-guard:queries"
	DefaultResponseStream = "uni-guard:responses"
	DefaultGroup          = "uni-guard"
)

type RedisStreamConfig struct {
	QueryStream    string
	ResponseStream string
	Group          string
	ConsumerName   string
	// MaxLen bounds the response stream. Trimming is approximate.
	MaxLen int64
	// ClaimMinIdle is how long a message must sit unacknowledged with
	// another consumer before this one takes it over. It is also the
	// interval between reclaim passes.
	ClaimMinIdle time.Duration
	// RetryDelay is the pause before a message whose response could not be
	// published is read again.
	RetryDelay time.Duration
}

func NewRedisStreamConfig(queryStream string, responseStream string, group string, consumerName string) *RedisStreamConfig {
	if queryStream == "" {
		queryStream = DefaultQueryStream
	}
	if responseStream == "" {
		responseStream = DefaultResponseStream
	}
	if group == "" {
		group = DefaultGroup
	}
	if consumerName == "" {
		consumerName = "uni-guard-1"
	}

	return &RedisStreamConfig{
		QueryStream:    queryStream,
		ResponseStream: responseStream,
		Group:          group,
		ConsumerName:   consumerName,
		MaxLen:         10000,
		ClaimMinIdle:   time.Minute,
		RetryDelay:     time.Second,
	}
}
