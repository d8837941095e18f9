// Package rewards serves the redeemable rewards catalog.
package rewards

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

const (
	// CacheKey prefixes the cached catalog, ordered by cost. The full key
	// carries the catalog version so fills that raced a write land under a
	// key nobody reads any more.
	CacheKey   = "rewards:all"
	VersionKey = "rewards:version"
	CacheTTL   = 8 * time.Hour
)

func cacheKey(version int64) string {
	return fmt.Sprintf("%s:%d", CacheKey, version)
}

// Repository is the persistent rewards table.
type Repository interface {
	ListRewards(ctx context.Context) ([]models.Reward, error)
	GetReward(ctx context.Context, id int64) (models.Reward, error)
	CreateReward(ctx context.Context, in models.RewardInput) (models.Reward, error)
	UpdateReward(ctx context.Context, id int64, in models.RewardInput) (models.Reward, error)
	DeleteReward(ctx context.Context, id int64) error
	SetRewardImage(ctx context.Context, id int64, url string) (models.Reward, error)
	CountRewards(ctx context.Context) (int, error)
}

// Cache is a JSON value cache.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Counter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

type Catalog struct {
	repo  Repository
	cache Cache
	log   *zap.SugaredLogger
}

// NewCatalog builds a Catalog. cache may be nil.
func NewCatalog(repo Repository, cache Cache, log *zap.SugaredLogger) *Catalog {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Catalog{repo: repo, cache: cache, log: log}
}

// List returns every reward ordered by ascending cost.
func (c *Catalog) List(ctx context.Context) ([]models.Reward, error) {
	var key string
	if c.cache != nil {
		// The version must be read before the rows.
		version, err := c.cache.Counter(ctx, VersionKey)
		if err != nil {
			c.log.Warnw("rewards cache version read failed", "error", err)
		} else {
			key = cacheKey(version)
			var cached []models.Reward
			found, err := c.cache.Get(ctx, key, &cached)
			if err != nil {
				c.log.Warnw("rewards cache read failed", "error", err)
			} else if found {
				return cached, nil
			}
		}
	}

	list, err := c.repo.ListRewards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	sortByCost(list)

	if key != "" {
		if err := c.cache.SetWithTTL(ctx, key, list, CacheTTL); err != nil {
			c.log.Warnw("rewards cache write failed", "error", err)
		}
	}
	return list, nil
}

func (c *Catalog) Get(ctx context.Context, id int64) (models.Reward, error) {
	return c.repo.GetReward(ctx, id)
}

func (c *Catalog) Create(ctx context.Context, in models.RewardInput) (models.Reward, error) {
	r, err := c.repo.CreateReward(ctx, in)
	if err != nil {
		return models.Reward{}, fmt.Errorf("create reward: %w", err)
	}
	c.invalidate(ctx)
	return r, nil
}

func (c *Catalog) Update(ctx context.Context, id int64, in models.RewardInput) (models.Reward, error) {
	r, err := c.repo.UpdateReward(ctx, id, in)
	if err != nil {
		return models.Reward{}, fmt.Errorf("update reward %d: %w", id, err)
	}
	c.invalidate(ctx)
	return r, nil
}

func (c *Catalog) Delete(ctx context.Context, id int64) error {
	if err := c.repo.DeleteReward(ctx, id); err != nil {
		return fmt.Errorf("delete reward %d: %w", id, err)
	}
	c.invalidate(ctx)
	return nil
}

// AttachImage records an uploaded image URL on a reward.
func (c *Catalog) AttachImage(ctx context.Context, id int64, url string) (models.Reward, error) {
	r, err := c.repo.SetRewardImage(ctx, id, url)
	if err != nil {
		return models.Reward{}, fmt.Errorf("attach image to reward %d: %w", id, err)
	}
	c.invalidate(ctx)
	return r, nil
}

func (c *Catalog) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	version, err := c.cache.Incr(ctx, VersionKey)
	if err != nil {
		c.log.Warnw("rewards cache invalidation failed", "error", err)
		return
	}
	if err := c.cache.Delete(ctx, cacheKey(version-1)); err != nil {
		c.log.Debugw("failed to drop previous rewards cache entry", "error", err)
	}
}

func sortByCost(list []models.Reward) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Cost != list[j].Cost {
			return list[i].Cost < list[j].Cost
		}
		return list[i].ID < list[j].ID
	})
}
