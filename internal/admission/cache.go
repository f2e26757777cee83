package admission

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// occupancyTTL keeps cached ratios short-lived; browse reads tolerate this
// much staleness.
const occupancyTTL = 30 * time.Second

// OccupancyCache caches per-seminar occupancy ratios in Redis for the public
// browse endpoints, sparing them a registration count per request.
type OccupancyCache struct {
	client *redis.Client
}

// NewOccupancyCache creates an occupancy cache.
func NewOccupancyCache(client *redis.Client) *OccupancyCache {
	return &OccupancyCache{client: client}
}

func occupancyKey(seminarID uuid.UUID) string {
	return "occupancy:" + seminarID.String()
}

// Get returns the cached ratio. ok is false on miss.
func (c *OccupancyCache) Get(ctx context.Context, seminarID uuid.UUID) (ratio float64, ok bool, err error) {
	val, err := c.client.Get(ctx, occupancyKey(seminarID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	ratio, err = strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, nil
	}
	return ratio, true, nil
}

// Set stores the ratio with a short TTL.
func (c *OccupancyCache) Set(ctx context.Context, seminarID uuid.UUID, ratio float64) error {
	return c.client.Set(ctx, occupancyKey(seminarID), strconv.FormatFloat(ratio, 'f', -1, 64), occupancyTTL).Err()
}
