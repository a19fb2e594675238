// Package storage 定义持久层的仓储接口与通用错误
//
// 各实现（memory/postgres/hybrid）必须满足这里的全部语义，
// 服务层只依赖接口，不感知具体后端。
package storage

import (
	"context"
	"errors"
	"time"

	"loveletter/backend/internal/domain"
)

// 仓储层通用错误
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrCodeExists     = errors.New("invite code already exists")
	ErrLetterNotFound = errors.New("letter not found")
	ErrMomentNotFound = errors.New("moment not found")
	ErrAlreadyPaired  = errors.New("user already paired")
	ErrNotPaired      = errors.New("user not paired")
)

// UserRepository 用户仓储
type UserRepository interface {
	// CreateUser 创建用户，邮箱或邀请码冲突时返回 ErrEmailExists / ErrCodeExists
	CreateUser(ctx context.Context, user *domain.User) error

	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByInviteCode(ctx context.Context, code string) (*domain.User, error)

	// UpdateUser 全量更新用户资料字段（昵称、提醒时间、邀请码等）
	UpdateUser(ctx context.Context, user *domain.User) error

	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// ListUnpairedWithExpiredCodes 找出邀请码已过期且尚未配对的用户，
	// 供后台轮换任务批量换码
	ListUnpairedWithExpiredCodes(ctx context.Context, now time.Time) ([]*domain.User, error)
}

// CoupleRepository 配对仓储
type CoupleRepository interface {
	// PairUsers 原子地把两个用户互设为伴侣并写入同一 connectedAt
	//
	// 实现必须保证并发安全：两次并发配对同一用户时只有一次成功，
	// 失败方收到 ErrAlreadyPaired。两个 ID 任一不存在返回 ErrUserNotFound。
	PairUsers(ctx context.Context, requesterID, candidateID string, connectedAt time.Time) error
}

// LetterRepository 信件仓储
type LetterRepository interface {
	SaveLetter(ctx context.Context, letter *domain.Letter) error
	GetLetter(ctx context.Context, id string) (*domain.Letter, error)

	// ListLettersByUserID 返回用户寄出与收到的全部信件，含未释放的预约信件，
	// 可见性裁剪由服务层完成
	ListLettersByUserID(ctx context.Context, userID string) ([]domain.Letter, error)

	// MarkLetterOpened 仅当 receiverID 匹配且未读时置已读，幂等：
	// 已读或不匹配时不报错也不改动，返回是否真正发生了翻转
	MarkLetterOpened(ctx context.Context, id, receiverID string, at time.Time) (bool, error)

	// ListUnreleasedDue 找出预约时间已到但尚未推送释放通知的信件
	ListUnreleasedDue(ctx context.Context, now time.Time) ([]domain.Letter, error)

	MarkLetterReleased(ctx context.Context, id string) error
}

// MomentRepository 纪念日仓储
type MomentRepository interface {
	SaveMoment(ctx context.Context, moment *domain.Moment) error
	GetMoment(ctx context.Context, id string) (*domain.Moment, error)

	// ListMomentsForUser 返回本人全部纪念日，以及伴侣标记共享的纪念日，
	// 按日期倒序。partnerID 为 nil 时只看本人。
	ListMomentsForUser(ctx context.Context, userID string, partnerID *string) ([]domain.Moment, error)

	DeleteMoment(ctx context.Context, id string) error
}

// RateLimitRepository 限流计数仓储
type RateLimitRepository interface {
	// IncrementCounter 自增计数器并返回当前值，首次创建时设置过期窗口
	IncrementCounter(ctx context.Context, key string, window time.Duration) (int64, error)
}

// SessionRepository 刷新令牌会话仓储
type SessionRepository interface {
	SaveSession(ctx context.Context, userID, tokenID string, expiresAt time.Time) error
	SessionExists(ctx context.Context, userID, tokenID string) (bool, error)
	DeleteSession(ctx context.Context, userID, tokenID string) error
}

// Store 聚合全部仓储能力的存储后端
type Store interface {
	UserRepository
	CoupleRepository
	LetterRepository
	MomentRepository

	// Health 检查后端连通性
	Health(ctx context.Context) error

	// Close 释放底层连接
	Close() error
}
