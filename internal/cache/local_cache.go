// Package cache 提供进程内 L1 缓存，挡在 Redis 前减少热点键的网络往返
package cache

import (
	"sync"
	"time"
)

// LocalCache 本地内存缓存
//
// 使用 sync.Map 实现无锁读取，支持 TTL 过期与后台清理。
// 容量不设硬限制，依赖 TTL 和清理循环控制内存占用。
type LocalCache struct {
	data sync.Map
	ttl  time.Duration
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewLocalCache 创建本地缓存，ttl 为默认过期时间
func NewLocalCache(ttl time.Duration) *LocalCache {
	cache := &LocalCache{ttl: ttl}

	go cache.cleanupLoop()

	return cache
}

// Get 获取缓存值
func (c *LocalCache) Get(key string) (interface{}, bool) {
	val, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}

	entry := val.(*cacheEntry)

	if time.Now().After(entry.expiresAt) {
		c.data.Delete(key)
		return nil, false
	}

	return entry.value, true
}

// Set 设置缓存值，ttl 为 0 时使用默认过期时间
func (c *LocalCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}

	c.data.Store(key, &cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
}

// Delete 删除缓存值
func (c *LocalCache) Delete(key string) {
	c.data.Delete(key)
}

// cleanupLoop 定期清理过期条目
func (c *LocalCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.data.Range(func(key, value interface{}) bool {
			entry := value.(*cacheEntry)
			if now.After(entry.expiresAt) {
				c.data.Delete(key)
			}
			return true
		})
	}
}
