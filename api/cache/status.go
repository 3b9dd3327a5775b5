package cache

import (
	"context"
	"fmt"
	"time"

	"treeAnalysis/api/database"
	"treeAnalysis/api/models"
)

const (
	statusKeyPrefix = "task:status:"
	statusTTL       = 10 * time.Minute
)

// StatusCache keeps the bare task status in Redis so tight polling loops
// do not hit Postgres on every request. Keys are scoped by owner so a
// cache hit can never leak another session's task.
type StatusCache struct {
	cache *database.Cache
}

func NewStatusCache(cache *database.Cache) *StatusCache {
	return &StatusCache{cache: cache}
}

func statusKey(ownerID, taskID int64) string {
	return fmt.Sprintf("%s%d:%d", statusKeyPrefix, ownerID, taskID)
}

func (sc *StatusCache) Get(ctx context.Context, ownerID, taskID int64) (models.TaskStatus, error) {
	data, err := sc.cache.Get(ctx, statusKey(ownerID, taskID))
	if err != nil {
		return "", err
	}
	return models.TaskStatus(data), nil
}

func (sc *StatusCache) Set(ctx context.Context, ownerID, taskID int64, status models.TaskStatus) error {
	return sc.cache.Set(ctx, statusKey(ownerID, taskID), string(status), statusTTL)
}

func (sc *StatusCache) Delete(ctx context.Context, ownerID, taskID int64) error {
	return sc.cache.Del(ctx, statusKey(ownerID, taskID))
}
