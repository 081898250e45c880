// Package cache keeps the latest alignment analysis per symbol in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trogers1052/ichimoku-signal-service/internal/models"
)

const defaultPrefix = "ichimoku"

// AnalysisCache stores MultiTimeframeAnalysis values as JSON
type AnalysisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// New connects to Redis and verifies the connection
func New(ctx context.Context, opts Options) (*AnalysisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewWithClient(client, opts.TTL, opts.Prefix), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, ttl time.Duration, prefix string) *AnalysisCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnalysisCache{client: client, prefix: prefix, ttl: ttl}
}

// Close closes the Redis connection
func (c *AnalysisCache) Close() error {
	return c.client.Close()
}

// GetAnalysis returns the cached analysis of a symbol. ok is false on a miss.
func (c *AnalysisCache) GetAnalysis(ctx context.Context, symbol string) (*models.MultiTimeframeAnalysis, bool, error) {
	data, err := c.client.Get(ctx, c.key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var analysis models.MultiTimeframeAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached analysis: %w", err)
	}
	return &analysis, true, nil
}

// SetAnalysis stores the analysis of its symbol for the configured TTL
func (c *AnalysisCache) SetAnalysis(ctx context.Context, analysis *models.MultiTimeframeAnalysis) error {
	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}
	if err := c.client.Set(ctx, c.key(analysis.Symbol), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// DeleteAnalysis drops the cached analysis of a symbol
func (c *AnalysisCache) DeleteAnalysis(ctx context.Context, symbol string) error {
	if err := c.client.Del(ctx, c.key(symbol)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (c *AnalysisCache) key(symbol string) string {
	return c.prefix + ":alignment:" + strings.ToUpper(symbol)
}
