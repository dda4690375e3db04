package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"surebet/internal/config"
	"surebet/internal/model"
)

// StreamPublisher publishes opportunities to a Redis stream, one entry each.
type StreamPublisher struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewStreamPublisher creates a new stream publisher
func NewStreamPublisher(client redis.Cmdable, cfg config.RedisConfig) *StreamPublisher {
	stream := cfg.Stream
	if stream == "" {
		stream = "surebets.detected"
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: cfg.MaxLen}
}

func (p *StreamPublisher) Name() string { return "redis" }

// Publish writes every opportunity in the report in a single pipeline.
func (p *StreamPublisher) Publish(ctx context.Context, report model.ScanReport) error {
	if len(report.Opportunities) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, opp := range report.Opportunities {
		payload, err := json.Marshal(opp)
		if err != nil {
			return fmt.Errorf("failed to marshal opportunity: %w", err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLen,
			Approx: p.maxLen > 0,
			Values: map[string]interface{}{
				"run_id":      report.RunID,
				"opportunity": string(payload),
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", p.stream, err)
	}
	return nil
}
