package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/goblin-executor/internal/constants"
	"github.com/aman-zulfiqar/goblin-executor/internal/routes"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// CatalogCache shares the aggregator token catalog between executor
// instances through a single Redis key.
type CatalogCache struct {
	client redis.Cmdable
	key    string
	logger *logrus.Logger
}

func NewCatalogCache(addr string, logger *logrus.Logger) (*CatalogCache, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.WithField("addr", addr).Info("connected to redis")
	return NewCatalogCacheFromClient(client, logger), client, nil
}

func NewCatalogCacheFromClient(client redis.Cmdable, logger *logrus.Logger) *CatalogCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &CatalogCache{client: client, key: constants.RedisKeyTokenCatalog, logger: logger}
}

// Load returns the shared snapshot. A missing key is a miss, not an error.
func (c *CatalogCache) Load(ctx context.Context) (routes.Snapshot, bool, error) {
	val, err := c.client.Get(ctx, c.key).Bytes()
	if err == redis.Nil {
		return routes.Snapshot{}, false, nil
	}
	if err != nil {
		return routes.Snapshot{}, false, fmt.Errorf("get token catalog: %w", err)
	}

	var snap routes.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return routes.Snapshot{}, false, fmt.Errorf("unmarshal token catalog: %w", err)
	}
	return snap, true, nil
}

// Store publishes snap for ttl. The fetch time travels with the tokens so
// readers age the catalog from the original fetch.
func (c *CatalogCache) Store(ctx context.Context, snap routes.Snapshot, ttl time.Duration) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal token catalog: %w", err)
	}
	if err := c.client.Set(ctx, c.key, b, ttl).Err(); err != nil {
		return fmt.Errorf("set token catalog: %w", err)
	}
	c.logger.WithFields(logrus.Fields{"tokens": len(snap.Tokens), "ttl": ttl}).Debug("token catalog published")
	return nil
}
