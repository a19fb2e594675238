package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"loveletter/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// 缓存键前缀
const (
	userKeyPrefix    = "user:"
	codeKeyPrefix    = "invite:"
	rateKeyPrefix    = "rate:"
	sessionKeyPrefix = "session:"
)

// UserCache 用户对象缓存，供 hybrid 存储做旁路缓存
type UserCache struct {
	client *Client
	ttl    time.Duration
}

// NewUserCache 创建用户缓存，ttl 为条目存活时间
func NewUserCache(client *Client, ttl time.Duration) *UserCache {
	return &UserCache{client: client, ttl: ttl}
}

// GetUser 读取缓存的用户，未命中返回 ErrCacheMiss
func (c *UserCache) GetUser(ctx context.Context, id string) (*domain.User, error) {
	data, err := c.client.Get(ctx, userKeyPrefix+id)
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUser 写入用户缓存
func (c *UserCache) SetUser(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userKeyPrefix+user.ID, data, c.ttl)
}

// InvalidateUser 删除用户缓存条目
func (c *UserCache) InvalidateUser(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, userKeyPrefix+id)
	}
	return c.client.Del(ctx, keys...)
}

// GetInviteOwner 读取邀请码归属缓存
func (c *UserCache) GetInviteOwner(ctx context.Context, code string) (string, error) {
	id, err := c.client.Get(ctx, codeKeyPrefix+code)
	if errors.Is(err, goredis.Nil) {
		return "", ErrCacheMiss
	}
	return id, err
}

// SetInviteOwner 缓存邀请码到用户 ID 的映射
func (c *UserCache) SetInviteOwner(ctx context.Context, code, userID string) error {
	return c.client.Set(ctx, codeKeyPrefix+code, userID, c.ttl)
}

// InvalidateInviteCode 删除邀请码映射
func (c *UserCache) InvalidateInviteCode(ctx context.Context, codes ...string) error {
	keys := make([]string, 0, len(codes))
	for _, code := range codes {
		keys = append(keys, codeKeyPrefix+code)
	}
	return c.client.Del(ctx, keys...)
}

// RateLimiter 固定窗口限流计数器
type RateLimiter struct {
	client *Client
}

// NewRateLimiter 创建限流计数器
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// IncrementCounter 自增并在首次创建时设置窗口过期
func (r *RateLimiter) IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error) {
	full := rateKeyPrefix + key
	count, err := r.client.Incr(ctx, full)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, full, window); err != nil {
			return count, err
		}
	}
	return count, nil
}

// SessionStore 刷新令牌会话存储
//
// 以 session:{userID}:{tokenID} 为键，值只存过期戳，过期由 Redis TTL 负责。
type SessionStore struct {
	client *Client
}

// NewSessionStore 创建会话存储
func NewSessionStore(client *Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(userID, tokenID string) string {
	return fmt.Sprintf("%s%s:%s", sessionKeyPrefix, userID, tokenID)
}

// SaveSession 记录一个有效的刷新令牌
func (s *SessionStore) SaveSession(ctx context.Context, userID, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, sessionKey(userID, tokenID), expiresAt.Unix(), ttl)
}

// SessionExists 判断刷新令牌是否仍然有效
func (s *SessionStore) SessionExists(ctx context.Context, userID, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(userID, tokenID))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteSession 注销刷新令牌
func (s *SessionStore) DeleteSession(ctx context.Context, userID, tokenID string) error {
	return s.client.Del(ctx, sessionKey(userID, tokenID))
}
