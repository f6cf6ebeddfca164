package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/storage/models"
	"github.com/influencer-scout/backend/pkg/logger"
)

const (
	historySnapshotKey = "search-history:snapshot"
	leadsSnapshotKey   = "leads:snapshot"

	snapshotTTL = 24 * time.Hour
)

// Client mirrors read-heavy result sets so reads can degrade gracefully when
// the primary store errors. It is never the write target of record.
type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetHistorySnapshot refreshes the cached search-history list. Best effort;
// callers log and continue on failure.
func (c *Client) SetHistorySnapshot(ctx context.Context, records []models.SearchRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal history snapshot: %w", err)
	}

	err = c.client.Set(ctx, historySnapshotKey, data, snapshotTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set history snapshot: %w", err)
	}

	logger.Debug("History snapshot cached", zap.Int("records", len(records)))
	return nil
}

// GetHistorySnapshot returns the last cached history list. The second return
// is false on a cache miss.
func (c *Client) GetHistorySnapshot(ctx context.Context) ([]models.SearchRecord, bool, error) {
	data, err := c.client.Get(ctx, historySnapshotKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get history snapshot: %w", err)
	}

	var records []models.SearchRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal history snapshot: %w", err)
	}

	logger.Debug("History snapshot cache hit", zap.Int("records", len(records)))
	return records, true, nil
}

func (c *Client) SetLeadsSnapshot(ctx context.Context, leads []models.Lead) error {
	data, err := json.Marshal(leads)
	if err != nil {
		return fmt.Errorf("failed to marshal leads snapshot: %w", err)
	}

	err = c.client.Set(ctx, leadsSnapshotKey, data, snapshotTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set leads snapshot: %w", err)
	}

	logger.Debug("Leads snapshot cached", zap.Int("leads", len(leads)))
	return nil
}

func (c *Client) GetLeadsSnapshot(ctx context.Context) ([]models.Lead, bool, error) {
	data, err := c.client.Get(ctx, leadsSnapshotKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get leads snapshot: %w", err)
	}

	var leads []models.Lead
	if err := json.Unmarshal(data, &leads); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal leads snapshot: %w", err)
	}

	return leads, true, nil
}
