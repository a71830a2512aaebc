package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	reportKeyPrefix     = "report"
	reportScanBatchSize = 100
)

// ReportCache stores JSON-encoded report payloads per region.
type ReportCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	InvalidateRegion(ctx context.Context, regionID int64) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
	owner  *Client
}

type noopReportCache struct{}

// NewReportCache returns the noop cache for a nil client.
func NewReportCache(c *Client) ReportCache {
	if c == nil {
		return &noopReportCache{}
	}
	return &redisReportCache{client: c.rdb, ttl: c.reportTTL, owner: c}
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode report cache %s: %w", key, err)
	}
	return true, nil
}

func (c *redisReportCache) Set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode report cache %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) InvalidateRegion(ctx context.Context, regionID int64) error {
	n, err := c.owner.unlinkPrefix(ctx, regionPrefix(regionID), reportScanBatchSize)
	if err != nil {
		return err
	}
	log.Debug().Int64("region_id", regionID).Int("keys", n).Msg("report cache invalidated")
	return nil
}

func (n *noopReportCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	return false, nil
}

func (n *noopReportCache) Set(ctx context.Context, key string, value any) error {
	return nil
}

func (n *noopReportCache) InvalidateRegion(ctx context.Context, regionID int64) error {
	return nil
}

func regionPrefix(regionID int64) string {
	return fmt.Sprintf("%s:%d:", reportKeyPrefix, regionID)
}

// ReportKey builds the cache key of a report. Filters are order-insensitive.
func ReportKey(kind string, regionID int64, date string, filters ...string) string {
	return fmt.Sprintf("%s%s:%s:%s", regionPrefix(regionID), kind, date, filterHash(filters))
}

func filterHash(filters []string) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			parts = append(parts, f)
		}
	}
	if len(parts) == 0 {
		return "default"
	}

	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
