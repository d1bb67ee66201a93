package cache

import (
	"time"

	"equilibre-volume/internal/worker/model"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const VOLUME_CACHE_TTL = 25 * time.Hour // 本地缓存过期时间

// VolumeCache 进程内的成交量结果缓存，避免同一自然日在多次调度中重复计算
type VolumeCache struct {
	tl         *zap.Logger
	localCache *cache.Cache
}

func NewVolumeCache(tl *zap.Logger) *VolumeCache {
	return &VolumeCache{
		tl:         tl,
		localCache: cache.New(VOLUME_CACHE_TTL, time.Hour),
	}
}

func (c *VolumeCache) Get(key string) (model.DailyVolumeResult, bool) {
	v, found := c.localCache.Get(key)
	if !found {
		return model.DailyVolumeResult{}, false
	}
	return v.(model.DailyVolumeResult), true
}

func (c *VolumeCache) Set(key string, result model.DailyVolumeResult) {
	c.localCache.Set(key, result, cache.DefaultExpiration)
	c.tl.Debug("volume cached", zap.String("key", key), zap.Int("items", c.localCache.ItemCount()))
}
