// Package hybrid 组合关系型存储与 Redis 旁路缓存
//
// 用户与邀请码查询走缓存，写路径先落库再失效缓存；
// 信件与纪念日读写直接透传底层存储。
package hybrid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"loveletter/backend/internal/cache"
	"loveletter/backend/internal/config"
	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/storage"
	"loveletter/backend/internal/storage/postgres"
	"loveletter/backend/internal/storage/redis"
)

// 本地 L1 缓存的条目存活时间，取短值以限制跨实例的陈旧窗口
const localUserTTL = 30 * time.Second

// Store 带缓存的存储
type Store struct {
	db    storage.Store
	cache *redis.UserCache
	local *cache.LocalCache
	log   *zap.Logger
}

// NewStore 在既有存储之上套一层用户缓存
//
// 读路径 本地 L1 → Redis → 数据库，写路径先落库再逐层失效。
// userCache 可为 nil，此时跳过 Redis 层只保留本地 L1。
func NewStore(db storage.Store, userCache *redis.UserCache, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:    db,
		cache: userCache,
		local: cache.NewLocalCache(localUserTTL),
		log:   log,
	}
}

// NewStoreWithType 按数据库配置创建关系型存储并套上缓存
func NewStoreWithType(dbCfg *config.DatabaseConfig, cache *redis.UserCache, log *zap.Logger) (*Store, error) {
	var (
		db  storage.Store
		err error
	)
	switch dbCfg.Type {
	case "postgres":
		db, err = postgres.NewStore(dbCfg)
	case "mysql":
		db, err = postgres.NewMySQLStore(dbCfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbCfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return NewStore(db, cache, log), nil
}

// cloneUser 深拷贝用户对象
//
// L1 缓存条目必须与调用方返回值隔离：调用方会在落库前修改返回的
// 对象，共享指针会让未提交的修改污染后续读取。
func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.PartnerID != nil {
		v := *u.PartnerID
		c.PartnerID = &v
	}
	if u.ConnectedAt != nil {
		v := *u.ConnectedAt
		c.ConnectedAt = &v
	}
	if u.LastLoginAt != nil {
		v := *u.LastLoginAt
		c.LastLoginAt = &v
	}
	return &c
}

// CreateUser 创建用户
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return s.db.CreateUser(ctx, user)
}

// GetUserByID 先查本地 L1，再查 Redis，最后回源
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if v, ok := s.local.Get(id); ok {
		return cloneUser(v.(*domain.User)), nil
	}

	if s.cache != nil {
		if cached, err := s.cache.GetUser(ctx, id); err == nil {
			s.local.Set(id, cloneUser(cached), 0)
			return cached, nil
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.Warn("user cache read failed", zap.Error(err))
		}
	}

	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetUser(ctx, user); err != nil {
			s.log.Warn("user cache write failed", zap.Error(err))
		}
	}
	s.local.Set(id, cloneUser(user), 0)
	return user, nil
}

// GetUserByEmail 登录路径，直接回源
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.db.GetUserByEmail(ctx, email)
}

// GetUserByInviteCode 邀请码归属走缓存，用户对象按 ID 复用缓存
func (s *Store) GetUserByInviteCode(ctx context.Context, code string) (*domain.User, error) {
	if s.cache == nil {
		return s.db.GetUserByInviteCode(ctx, code)
	}

	if ownerID, err := s.cache.GetInviteOwner(ctx, code); err == nil {
		user, err := s.GetUserByID(ctx, ownerID)
		// 码已轮换时缓存映射可能指向旧主，回源兜底
		if err == nil && user.InviteCode == code {
			return user, nil
		}
	}

	user, err := s.db.GetUserByInviteCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetInviteOwner(ctx, code, user.ID); err != nil {
		s.log.Warn("invite cache write failed", zap.Error(err))
	}
	return user, nil
}

// UpdateUser 落库后失效缓存
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	old, err := s.db.GetUserByID(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := s.db.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.local.Delete(user.ID)
	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, user.ID); err != nil {
			s.log.Warn("user cache invalidate failed", zap.Error(err))
		}
		if old.InviteCode != user.InviteCode {
			if err := s.cache.InvalidateInviteCode(ctx, old.InviteCode); err != nil {
				s.log.Warn("invite cache invalidate failed", zap.Error(err))
			}
		}
	}
	return nil
}

// UpdateLastLogin 落库后失效缓存
func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if err := s.db.UpdateLastLogin(ctx, id, at); err != nil {
		return err
	}
	s.local.Delete(id)
	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, id); err != nil {
			s.log.Warn("user cache invalidate failed", zap.Error(err))
		}
	}
	return nil
}

// ListUnpairedWithExpiredCodes 批量任务直接回源
func (s *Store) ListUnpairedWithExpiredCodes(ctx context.Context, now time.Time) ([]*domain.User, error) {
	return s.db.ListUnpairedWithExpiredCodes(ctx, now)
}

// PairUsers 配对成功后失效双方缓存
func (s *Store) PairUsers(ctx context.Context, requesterID, candidateID string, connectedAt time.Time) error {
	if err := s.db.PairUsers(ctx, requesterID, candidateID, connectedAt); err != nil {
		return err
	}
	s.local.Delete(requesterID)
	s.local.Delete(candidateID)
	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, requesterID, candidateID); err != nil {
			s.log.Warn("user cache invalidate failed", zap.Error(err))
		}
	}
	return nil
}

// SaveLetter 透传
func (s *Store) SaveLetter(ctx context.Context, letter *domain.Letter) error {
	return s.db.SaveLetter(ctx, letter)
}

// GetLetter 透传
func (s *Store) GetLetter(ctx context.Context, id string) (*domain.Letter, error) {
	return s.db.GetLetter(ctx, id)
}

// ListLettersByUserID 透传
func (s *Store) ListLettersByUserID(ctx context.Context, userID string) ([]domain.Letter, error) {
	return s.db.ListLettersByUserID(ctx, userID)
}

// MarkLetterOpened 透传
func (s *Store) MarkLetterOpened(ctx context.Context, id, receiverID string, at time.Time) (bool, error) {
	return s.db.MarkLetterOpened(ctx, id, receiverID, at)
}

// ListUnreleasedDue 透传
func (s *Store) ListUnreleasedDue(ctx context.Context, now time.Time) ([]domain.Letter, error) {
	return s.db.ListUnreleasedDue(ctx, now)
}

// MarkLetterReleased 透传
func (s *Store) MarkLetterReleased(ctx context.Context, id string) error {
	return s.db.MarkLetterReleased(ctx, id)
}

// SaveMoment 透传
func (s *Store) SaveMoment(ctx context.Context, moment *domain.Moment) error {
	return s.db.SaveMoment(ctx, moment)
}

// GetMoment 透传
func (s *Store) GetMoment(ctx context.Context, id string) (*domain.Moment, error) {
	return s.db.GetMoment(ctx, id)
}

// ListMomentsForUser 透传
func (s *Store) ListMomentsForUser(ctx context.Context, userID string, partnerID *string) ([]domain.Moment, error) {
	return s.db.ListMomentsForUser(ctx, userID, partnerID)
}

// DeleteMoment 透传
func (s *Store) DeleteMoment(ctx context.Context, id string) error {
	return s.db.DeleteMoment(ctx, id)
}

// Health 检查底层数据库
func (s *Store) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

// Close 关闭底层数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}
