package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StreamClient is the subset of *redis.Client the consumer uses.
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
}

// QueryHandler runs a query to its final response.
type QueryHandler interface {
	Handle(ctx context.Context, query models.Query) models.FinalResponse
}

// QueryMessage is the payload of a message on the query stream.
type QueryMessage struct {
	RequestID string `json:"request_id"`
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

type Consumer struct {
	client  StreamClient
	cfg     RedisStreamConfig
	handler QueryHandler
	logger  *zerolog.Logger
}

func NewConsumer(client StreamClient, cfg RedisStreamConfig, handler QueryHandler, logger *zerolog.Logger) *Consumer {
	return &Consumer{
		client:  client,
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

func (c *Consumer) Setup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.QueryStream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Start first works through the messages already pending for this
// consumer, then reads new ones. Messages idle with other consumers are
// claimed every ClaimMinIdle and go through the same pending pass. A
// message whose response could not be published stays pending and is
// retried after RetryDelay.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("stream", c.cfg.QueryStream).
		Str("group", c.cfg.Group).
		Str("consumer", c.cfg.ConsumerName).
		Msg("Consumer started")

	backlog := true
	var lastClaim time.Time

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if c.cfg.ClaimMinIdle > 0 && time.Since(lastClaim) >= c.cfg.ClaimMinIdle {
			lastClaim = time.Now()
			if c.reclaim(ctx) > 0 {
				backlog = true
			}
		}

		// "0" replays this consumer's pending entries, ">" asks for new ones.
		id := ">"
		if backlog {
			id = "0"
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.ConsumerName,
			Streams:  []string{c.cfg.QueryStream, id},
			Count:    1,
			Block:    2 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				backlog = false
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			c.logger.Error().Err(err).Msg("Failed to read from stream")
			continue
		}

		read, failed := 0, false
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				read++
				if !c.process(ctx, msg) {
					failed = true
				}
			}
		}

		if backlog && read == 0 {
			backlog = false
			continue
		}

		if failed {
			backlog = true
			if err := sleep(ctx, c.cfg.RetryDelay); err != nil {
				return err
			}
		}
	}
}

func (c *Consumer) Stop() error {
	return nil
}

// reclaim moves messages that sat idle with any consumer for ClaimMinIdle
// into this consumer's pending list and returns how many moved.
func (c *Consumer) reclaim(ctx context.Context) int {
	claimed := 0
	start := "0-0"

	for {
		messages, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.cfg.QueryStream,
			Group:    c.cfg.Group,
			Consumer: c.cfg.ConsumerName,
			MinIdle:  c.cfg.ClaimMinIdle,
			Start:    start,
			Count:    100,
		}).Result()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, redis.Nil) {
				c.logger.Error().Err(err).Msg("Failed to claim idle messages")
			}
			return claimed
		}

		claimed += len(messages)
		if next == "" || next == "0-0" {
			break
		}
		start = next
	}

	if claimed > 0 {
		c.logger.Info().Int("claimed", claimed).Msg("Claimed idle messages")
	}
	return claimed
}

// process handles one message and reports whether it was acknowledged.
func (c *Consumer) process(ctx context.Context, msg redis.XMessage) bool {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		// Also the shape of a pending entry whose message was trimmed.
		c.logger.Error().Str("id", msg.ID).Msg("Missing payload field")
		return c.ack(ctx, msg.ID)
	}

	var message QueryMessage
	if err := json.Unmarshal([]byte(payload), &message); err != nil {
		// The decoder error may quote the payload.
		c.logger.Error().Str("id", msg.ID).Msg("Failed to decode message")
		return c.ack(ctx, msg.ID)
	}

	response := c.handler.Handle(ctx, models.Query{
		ID:         message.RequestID,
		Text:       message.Query,
		SessionID:  message.SessionID,
		ReceivedAt: time.Now(),
	})

	// A cancelled request stays pending for the next start.
	if ctx.Err() != nil {
		return false
	}

	if err := c.publish(ctx, response); err != nil {
		c.logger.Error().Err(err).Str("id", msg.ID).Str("request_id", response.RequestID).Msg("Failed to publish response")
		return false
	}

	c.logger.Info().
		Str("id", msg.ID).
		Str("request_id", response.RequestID).
		Str("disposition", string(response.Disposition)).
		Msg("Query processed")

	return c.ack(ctx, msg.ID)
}

func (c *Consumer) publish(ctx context.Context, response models.FinalResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}

	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.ResponseStream,
		MaxLen: c.cfg.MaxLen,
		Approx: true,
		Values: map[string]any{
			"request_id": response.RequestID,
			"payload":    string(data),
		},
	}).Err()
}

func (c *Consumer) ack(ctx context.Context, msgID string) bool {
	if err := c.client.XAck(ctx, c.cfg.QueryStream, c.cfg.Group, msgID).Err(); err != nil {
		c.logger.Error().Err(err).Str("id", msgID).Msg("Failed to ACK message")
		return false
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
