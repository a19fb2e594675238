package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-32-characters-long!!"

func TestGenerateTokenPair(t *testing.T) {
	m := NewManager(testSecret, "dearly", 15*time.Minute, 7*24*time.Hour)

	t.Run("生成并验证访问令牌", func(t *testing.T) {
		pair, err := m.GenerateTokenPair("user-1", "a@b.com", "小艾")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.NotEmpty(t, pair.RefreshTokenID)
		assert.Equal(t, int64(900), pair.ExpiresIn)

		claims, err := m.ValidateToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "a@b.com", claims.Email)
		assert.Equal(t, "小艾", claims.Nickname)
	})

	t.Run("刷新令牌携带jti", func(t *testing.T) {
		pair, err := m.GenerateTokenPair("user-1", "a@b.com", "小艾")
		require.NoError(t, err)

		claims, err := m.ValidateToken(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, pair.RefreshTokenID, claims.ID)
	})
}

func TestValidateToken(t *testing.T) {
	m := NewManager(testSecret, "dearly", 15*time.Minute, 7*24*time.Hour)

	t.Run("篡改的令牌被拒绝", func(t *testing.T) {
		pair, err := m.GenerateTokenPair("user-1", "a@b.com", "n")
		require.NoError(t, err)

		_, err = m.ValidateToken(pair.AccessToken + "x")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("其他密钥签发的令牌被拒绝", func(t *testing.T) {
		other := NewManager("another-secret-key-32-chars-long!!!!", "dearly", time.Minute, time.Hour)
		pair, err := other.GenerateTokenPair("user-1", "a@b.com", "n")
		require.NoError(t, err)

		_, err = m.ValidateToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("过期令牌返回专用错误", func(t *testing.T) {
		expired := NewManager(testSecret, "dearly", -time.Minute, time.Hour)
		pair, err := expired.GenerateTokenPair("user-1", "a@b.com", "n")
		require.NoError(t, err)

		_, err = m.ValidateToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

func TestRefreshAccessToken(t *testing.T) {
	m := NewManager(testSecret, "dearly", 15*time.Minute, 7*24*time.Hour)

	t.Run("刷新出的访问令牌有效", func(t *testing.T) {
		pair, err := m.GenerateTokenPair("user-1", "a@b.com", "小艾")
		require.NoError(t, err)

		access, err := m.RefreshAccessToken(pair.RefreshToken)
		require.NoError(t, err)

		claims, err := m.ValidateToken(access)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
	})

	t.Run("非法刷新令牌被拒绝", func(t *testing.T) {
		_, err := m.RefreshAccessToken("garbage")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestExtractUserID(t *testing.T) {
	m := NewManager(testSecret, "dearly", 15*time.Minute, time.Hour)

	pair, err := m.GenerateTokenPair("user-42", "a@b.com", "n")
	require.NoError(t, err)

	id, err := m.ExtractUserID(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-42", id)
}
