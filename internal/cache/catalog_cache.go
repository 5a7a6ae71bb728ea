package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
)

const (
	catalogKeyPrefix  = "catalog:full"
	catalogScanBatch  = 100
	catalogDateLayout = "2006-01-02"
	defaultCatalogTTL = 5 * time.Minute
	redisPingTimeout  = 5 * time.Second
)

// catalogScanPattern matches every CatalogKey and nothing else under the prefix.
const catalogScanPattern = catalogKeyPrefix + ":*"

// CatalogKey identifies one computed catalog. Calculations depend on the
// policy version and on the calendar day through days-since-last-sale.
type CatalogKey struct {
	PolicyID      string
	PolicyVersion int
	Date          time.Time
}

func (k CatalogKey) String() string {
	return fmt.Sprintf("%s:%s:v%d:%s", catalogKeyPrefix, k.PolicyID, k.PolicyVersion, k.Date.UTC().Format(catalogDateLayout))
}

type CatalogCache interface {
	GetCatalog(ctx context.Context, key CatalogKey) ([]domain.FullItemData, bool, error)
	SetCatalog(ctx context.Context, key CatalogKey, items []domain.FullItemData) error
	InvalidateAll(ctx context.Context) error
}

type redisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopCatalogCache struct{}

// NewCatalogCache returns a redis cache when enabled and a no-op cache otherwise.
// An enabled cache must answer a ping before it is returned.
func NewCatalogCache(cfg config.CacheConfig) (CatalogCache, error) {
	if !cfg.Enabled {
		return &noopCatalogCache{}, nil
	}

	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &redisCatalogCache{client: client, ttl: catalogTTL(cfg)}, nil
}

func catalogTTL(cfg config.CacheConfig) time.Duration {
	if cfg.CatalogTTLSeconds <= 0 {
		return defaultCatalogTTL
	}
	return time.Duration(cfg.CatalogTTLSeconds) * time.Second
}

// redisOptions prefers REDIS_URL and falls back to host, port and db.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func NewNoopCatalogCache() CatalogCache {
	return &noopCatalogCache{}
}

func (c *redisCatalogCache) GetCatalog(ctx context.Context, key CatalogKey) ([]domain.FullItemData, bool, error) {
	payload, err := c.client.Get(ctx, key.String()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var items []domain.FullItemData
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, false, fmt.Errorf("decode catalog cache: %w", err)
	}

	return items, true, nil
}

func (c *redisCatalogCache) SetCatalog(ctx context.Context, key CatalogKey, items []domain.FullItemData) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode catalog cache: %w", err)
	}

	if err := c.client.Set(ctx, key.String(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// InvalidateAll drops every computed catalog, whatever its policy or day.
// Keys are unlinked in batches as the scan yields them.
func (c *redisCatalogCache) InvalidateAll(ctx context.Context) error {
	batch := make([]string, 0, catalogScanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis unlink failed: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	iter := c.client.Scan(ctx, 0, catalogScanPattern, catalogScanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == catalogScanBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	return flush()
}

func (n *noopCatalogCache) GetCatalog(ctx context.Context, key CatalogKey) ([]domain.FullItemData, bool, error) {
	return nil, false, nil
}

func (n *noopCatalogCache) SetCatalog(ctx context.Context, key CatalogKey, items []domain.FullItemData) error {
	return nil
}

func (n *noopCatalogCache) InvalidateAll(ctx context.Context) error {
	return nil
}
