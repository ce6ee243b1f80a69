// Package stream publishes finished risk assessments to Redis.
package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"pathfinder/internal/config"
	"pathfinder/internal/risk"
)

// DefaultMaxLen bounds the assessment stream
const DefaultMaxLen = 500

// NewClient connects to Redis with the environment settings
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Publisher stores the latest assessment under a key and appends every
// assessment to a capped stream for downstream consumers
type Publisher struct {
	client    *redis.Client
	stream    string
	latestKey string
	maxLen    int64
}

// NewPublisher creates a publisher. maxLen <= 0 uses DefaultMaxLen.
func NewPublisher(client *redis.Client, stream, latestKey string, maxLen int64) *Publisher {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Publisher{
		client:    client,
		stream:    stream,
		latestKey: latestKey,
		maxLen:    maxLen,
	}
}

// Name implements risk.Sink
func (p *Publisher) Name() string { return "redis" }

// Save implements risk.Sink
func (p *Publisher) Save(ctx context.Context, payload []byte) error {
	data := string(payload)

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.latestKey, data, 0)
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Values: map[string]interface{}{"data": data},
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish assessment: %w", err)
	}
	return nil
}

// Latest implements risk.LatestReader
func (p *Publisher) Latest(ctx context.Context) ([]byte, error) {
	data, err := p.client.Get(ctx, p.latestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, risk.ErrNoAssessment
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest assessment: %w", err)
	}
	return data, nil
}

// Recent returns up to count assessments from the stream, newest first
func (p *Publisher) Recent(ctx context.Context, count int64) ([][]byte, error) {
	messages, err := p.client.XRevRangeN(ctx, p.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read assessment stream: %w", err)
	}

	out := make([][]byte, 0, len(messages))
	for _, msg := range messages {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		out = append(out, []byte(data))
	}
	return out, nil
}
