// Package health 基于 heptiolabs/healthcheck 暴露存活与就绪探针
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"loveletter/backend/internal/storage"
)

// Checker 健康检查器
type Checker struct {
	health    healthcheck.Handler
	store     storage.Store
	redisPing func(ctx context.Context) error
	logger    *zap.Logger
}

// NewChecker 创建健康检查器
//
// redisPing 为 nil 时（内存部署）不注册 Redis 检查。
func NewChecker(store storage.Store, redisPing func(ctx context.Context) error, logger *zap.Logger) *Checker {
	c := &Checker{
		health:    healthcheck.NewHandler(),
		store:     store,
		redisPing: redisPing,
		logger:    logger,
	}
	c.addChecks()
	return c
}

func (c *Checker) addChecks() {
	c.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(500))

	c.health.AddReadinessCheck("database", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return c.store.Health(ctx)
	})

	if c.redisPing != nil {
		c.health.AddReadinessCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return c.redisPing(ctx)
		})
	}
}

// Handler 返回探针处理器，挂载 /live 与 /ready
func (c *Checker) Handler() http.Handler {
	return c.health
}

// Summary 返回各组件的检查结果摘要
func (c *Checker) Summary() map[string]string {
	results := make(map[string]string)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.store.Health(ctx); err != nil {
		results["database"] = fmt.Sprintf("ERROR: %v", err)
	} else {
		results["database"] = "OK"
	}

	if c.redisPing != nil {
		if err := c.redisPing(ctx); err != nil {
			results["redis"] = fmt.Sprintf("ERROR: %v", err)
		} else {
			results["redis"] = "OK"
		}
	} else {
		results["redis"] = "NOT_AVAILABLE"
	}

	results["timestamp"] = time.Now().Format(time.RFC3339)
	return results
}
