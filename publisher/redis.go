// Package publisher forwards extracted product records to a Redis stream for
// downstream consumers such as the image downloader and caption renderer.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/use-agent/cardgrab/models"
)

// StreamClient is the part of the Redis client the publisher needs.
type StreamClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisPublisher appends every record to a Redis stream.
type RedisPublisher struct {
	client StreamClient
	stream string
	maxLen int64
}

// NewRedisPublisher connects to the Redis server at addr.
func NewRedisPublisher(addr string, db int, stream string, maxLen int64) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return newPublisher(client, stream, maxLen)
}

func newPublisher(client StreamClient, stream string, maxLen int64) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish adds rec to the stream as one entry with fields url, source,
// record (the JSON record) and extracted_at.
func (p *RedisPublisher) Publish(ctx context.Context, url string, rec *models.ProductRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("publisher: marshal record: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"url":          url,
			"source":       string(rec.Source),
			"record":       string(body),
			"extracted_at": time.Now().UTC().Format(time.RFC3339),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publisher: xadd %s: %w", p.stream, err)
	}
	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
