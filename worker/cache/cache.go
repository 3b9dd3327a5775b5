package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusTTL = 10 * time.Minute

// StatusCache mirrors the API's owner-scoped status keys so pollers see
// transitions without a database round trip.
type StatusCache struct {
	client *redis.Client
}

func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{client: client}
}

func (c *StatusCache) Set(ctx context.Context, ownerID, taskID int64, status string) error {
	key := fmt.Sprintf("task:status:%d:%d", ownerID, taskID)
	return c.client.Set(ctx, key, status, statusTTL).Err()
}
