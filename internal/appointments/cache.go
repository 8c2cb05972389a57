package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	summaryCachePrefix        = "carepulse:appointments:summary:"
	summaryCacheGenerationKey = "carepulse:appointments:summary:generation"
)

func summaryCacheKey(generation int64) string {
	return summaryCachePrefix + strconv.FormatInt(generation, 10)
}

// SummaryCache holds the last computed admin summary in Redis. Entries are
// keyed by a generation counter that every write bumps, so a summary computed
// before a write can only land on a key no reader uses anymore. A nil cache
// misses on every read and ignores writes.
type SummaryCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSummaryCache(redisClient *redis.Client, ttl time.Duration) *SummaryCache {
	if redisClient == nil || ttl <= 0 {
		return nil
	}
	return &SummaryCache{redis: redisClient, ttl: ttl}
}

// Get returns the summary cached for the current generation, whether it was
// present, and that generation. The caller passes the generation back to Set.
func (c *SummaryCache) Get(ctx context.Context) (*AppointmentList, int64, bool, error) {
	if c == nil {
		return nil, 0, false, nil
	}
	generation, err := c.redis.Get(ctx, summaryCacheGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("appointments: read summary generation: %w", err)
	}
	raw, err := c.redis.Get(ctx, summaryCacheKey(generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, generation, false, fmt.Errorf("appointments: read summary cache: %w", err)
	}
	var list AppointmentList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, generation, false, fmt.Errorf("appointments: decode summary cache: %w", err)
	}
	return &list, generation, true, nil
}

// Set stores list under the generation observed before it was computed.
func (c *SummaryCache) Set(ctx context.Context, generation int64, list *AppointmentList) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("appointments: encode summary cache: %w", err)
	}
	if err := c.redis.Set(ctx, summaryCacheKey(generation), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("appointments: write summary cache: %w", err)
	}
	return nil
}

// Invalidate moves readers to a new generation after a write. Older entries
// expire on their TTL.
func (c *SummaryCache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.redis.Incr(ctx, summaryCacheGenerationKey).Err(); err != nil {
		return fmt.Errorf("appointments: invalidate summary cache: %w", err)
	}
	return nil
}
