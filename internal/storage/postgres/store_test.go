package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"loveletter/backend/internal/config"
)

func TestPoolSettings(t *testing.T) {
	t.Run("取配置中的连接池参数", func(t *testing.T) {
		maxOpen, maxIdle, lifetime := poolSettings(&config.DatabaseConfig{
			MaxOpenConns:    50,
			MaxIdleConns:    10,
			ConnMaxLifetime: 10 * time.Minute,
		})
		assert.Equal(t, 50, maxOpen)
		assert.Equal(t, 10, maxIdle)
		assert.Equal(t, 10*time.Minute, lifetime)
	})

	t.Run("未配置的项回退默认值", func(t *testing.T) {
		maxOpen, maxIdle, lifetime := poolSettings(&config.DatabaseConfig{MaxOpenConns: 100})
		assert.Equal(t, 100, maxOpen)
		assert.Equal(t, 5, maxIdle)
		assert.Equal(t, 5*time.Minute, lifetime)
	})

	t.Run("nil配置全部用默认值", func(t *testing.T) {
		maxOpen, maxIdle, lifetime := poolSettings(nil)
		assert.Equal(t, 25, maxOpen)
		assert.Equal(t, 5, maxIdle)
		assert.Equal(t, 5*time.Minute, lifetime)
	})
}
