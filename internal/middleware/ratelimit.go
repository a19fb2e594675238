package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"loveletter/backend/internal/monitoring"
	"loveletter/backend/internal/storage"
)

// RateLimiter 按客户端 IP 限流
//
// 单机部署用进程内令牌桶；带 Redis 的部署可换用 counters
// 做跨实例的固定窗口计数，两者对外行为一致。
type RateLimiter struct {
	route     string
	perMinute int
	counters  storage.RateLimitRepository
	metrics   *monitoring.Metrics
	log       *zap.Logger

	mu       sync.Mutex
	limiters map[string]*ipLimiter
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter 创建限流中间件
//
// counters 为 nil 时使用进程内令牌桶。
func NewRateLimiter(route string, perMinute int, counters storage.RateLimitRepository, metrics *monitoring.Metrics, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	rl := &RateLimiter{
		route:     route,
		perMinute: perMinute,
		counters:  counters,
		metrics:   metrics,
		log:       log,
		limiters:  make(map[string]*ipLimiter),
	}
	if counters == nil {
		go rl.cleanupLoop()
	}
	return rl
}

// Handler 返回 Gin 中间件
//
// perMinute <= 0 表示该路由不限流。
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	if rl.perMinute <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()

		allowed := true
		if rl.counters != nil {
			key := fmt.Sprintf("%s:%s", rl.route, ip)
			count, err := rl.counters.IncrementCounter(c.Request.Context(), key, time.Minute)
			if err != nil {
				// 计数失败时放行，限流不应成为单点故障
				rl.log.Warn("rate limit counter failed", zap.Error(err))
			} else if count > int64(rl.perMinute) {
				allowed = false
			}
		} else {
			allowed = rl.localLimiter(ip).Allow()
		}

		if !allowed {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitBlock(rl.route)
			}
			rl.log.Warn("rate limit exceeded",
				zap.String("route", rl.route),
				zap.String("ip", ip),
			)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) localLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &ipLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMinute)), rl.perMinute),
		}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// cleanupLoop 定期清理长时间不活跃的 IP 条目
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		rl.mu.Lock()
		for ip, entry := range rl.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(rl.limiters, ip)
			}
		}
		rl.mu.Unlock()
	}
}
