package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultStream = "uni-guard:audit"
	// DefaultMaxLen bounds the audit stream. Trimming is approximate.
	DefaultMaxLen = 100000
)

// streamWriter is the subset of the redis client the sink needs.
type streamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisSink appends audit events to a redis stream.
type RedisSink struct {
	client streamWriter
	stream string
	maxLen int64
}

func NewRedisSink(client streamWriter, stream string, maxLen int64) *RedisSink {
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}

	return &RedisSink{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

func (s *RedisSink) Record(ctx context.Context, event models.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"request_id":  event.RequestID,
			"disposition": string(event.Disposition),
			"payload":     string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append audit event to %s: %w", s.stream, err)
	}

	return nil
}

// LogSink writes audit events to a logger.
type LogSink struct {
	logger *zerolog.Logger
}

func NewLogSink(logger *zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, event models.AuditEvent) error {
	reasons := make([]string, len(event.Reasons))
	for i, r := range event.Reasons {
		reasons[i] = string(r)
	}

	s.logger.Info().
		Str("request_id", event.RequestID).
		Str("session_id", event.SessionID).
		Str("state", string(event.State)).
		Str("disposition", string(event.Disposition)).
		Strs("reasons", reasons).
		Int("citations", event.Citations).
		Str("rule_set_version", event.RuleSetVersion).
		Dur("duration", event.Duration).
		Time("timestamp", event.Timestamp).
		Msg("Audit")
	return nil
}

// Sink records audit events.
type Sink interface {
	Record(ctx context.Context, event models.AuditEvent) error
}

// Multi records every event in all sinks and returns the first error.
type Multi []Sink

func (m Multi) Record(ctx context.Context, event models.AuditEvent) error {
	var first error
	for _, sink := range m {
		if err := sink.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
