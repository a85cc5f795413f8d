package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	red "github.com/povarna/generative-ai-agents/uni-guard/internal/redis"
	streamredis "github.com/povarna/generative-ai-agents/uni-guard/internal/stream/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	query := flag.String("q", "", "Question to publish")
	session := flag.String("session", "", "Session ID")
	wait := flag.Duration("wait", 0, "Wait this long for the response (0 = do not wait)")
	flag.Parse()

	if *query == "" {
		fmt.Fprintln(os.Stderr, "Usage: producer -q '<question>' [-session id] [-wait 30s]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(*query, *session, *wait); err != nil {
		log.Error().Err(err).Msg("producer failed")
		os.Exit(1)
	}
}

func run(query, session string, wait time.Duration) error {
	_ = godotenv.Load()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	cfg := streamredis.NewRedisStreamConfig(os.Getenv("QUERY_STREAM"), os.Getenv("RESPONSE_STREAM"), "", "")

	ctx := context.Background()
	client, err := red.Connect(ctx, red.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), MaxRetries: 3}, &log.Logger)
	if err != nil {
		return err
	}
	defer client.Close()

	// Start reading responses from now on, before publishing.
	lastID := fmt.Sprintf("%d-0", time.Now().UnixMilli())

	requestID := uuid.NewString()
	payload, err := json.Marshal(streamredis.QueryMessage{
		RequestID: requestID,
		SessionID: session,
		Query:     query,
	})
	if err != nil {
		return err
	}

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: cfg.QueryStream,
		Values: map[string]any{"payload": string(payload)},
	}).Result()
	if err != nil {
		return err
	}
	log.Info().Str("stream", cfg.QueryStream).Str("id", id).Str("request_id", requestID).Msg("Published successfully!")

	if wait <= 0 {
		return nil
	}
	return awaitResponse(ctx, client, cfg.ResponseStream, lastID, requestID, wait)
}

func awaitResponse(ctx context.Context, client *redis.Client, stream, lastID, requestID string, wait time.Duration) error {
	deadline := time.Now().Add(wait)

	for {
		// Block: 0 would wait forever.
		remaining := time.Until(deadline)
		if remaining < time.Millisecond {
			break
		}

		streams, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, lastID},
			Block:   remaining,
		}).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return err
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				lastID = msg.ID
				if msg.Values["request_id"] == requestID {
					fmt.Println(msg.Values["payload"])
					return nil
				}
			}
		}
	}

	return fmt.Errorf("no response for %s within %s", requestID, wait)
}
