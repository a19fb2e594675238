// Package postgres 提供基于 GORM 的关系型存储实现
//
// 默认使用 PostgreSQL，也可通过 dialector 切换 MySQL。
package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"loveletter/backend/internal/config"
	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/storage"
)

// Store GORM 存储
type Store struct {
	db *gorm.DB
}

// NewStore 按数据库配置创建 PostgreSQL 存储
func NewStore(cfg *config.DatabaseConfig) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(cfg.DSN), cfg)
}

// NewMySQLStore 按数据库配置创建 MySQL 存储
func NewMySQLStore(cfg *config.DatabaseConfig) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(cfg.DSN), cfg)
}

// poolSettings 读取连接池参数，未配置的项回退默认值
func poolSettings(cfg *config.DatabaseConfig) (maxOpen, maxIdle int, lifetime time.Duration) {
	maxOpen, maxIdle, lifetime = 25, 5, 5*time.Minute
	if cfg == nil {
		return
	}
	if cfg.MaxOpenConns > 0 {
		maxOpen = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		maxIdle = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		lifetime = cfg.ConnMaxLifetime
	}
	return
}

// NewStoreWithDialector 按任意 dialector 创建存储并自动迁移表结构
//
// cfg 仅用于连接池参数，可为 nil。
func NewStoreWithDialector(dialector gorm.Dialector, cfg *config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	maxOpen, maxIdle, lifetime := poolSettings(cfg)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)

	if err := db.AutoMigrate(&domain.User{}, &domain.Letter{}, &domain.Moment{}); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// CreateUser 创建用户，唯一键冲突映射为业务错误
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("lower(email) = lower(?)", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return storage.ErrEmailExists
	}

	err := s.db.WithContext(ctx).Create(user).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrEmailExists
	}
	return err
}

// GetUserByID 按 ID 查用户
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail 按邮箱查用户（大小写不敏感）
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, "lower(email) = lower(?)", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByInviteCode 按邀请码查用户
func (s *Store) GetUserByInviteCode(ctx context.Context, code string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, "invite_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser 全量保存用户
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	result := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"email":                  user.Email,
			"nickname":               user.Nickname,
			"password_hash":          user.PasswordHash,
			"invite_code":            user.InviteCode,
			"invite_code_expires_at": user.InviteCodeExpiresAt,
			"reminder_time":          user.ReminderTime,
			"is_active":              user.IsActive,
			"updated_at":             time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin 记录最近登录时间
func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).Update("last_login_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

// ListUnpairedWithExpiredCodes 找出邀请码过期且未配对的用户
func (s *Store) ListUnpairedWithExpiredCodes(ctx context.Context, now time.Time) ([]*domain.User, error) {
	var users []*domain.User
	err := s.db.WithContext(ctx).
		Where("partner_id IS NULL AND invite_code_expires_at < ?", now).
		Find(&users).Error
	return users, err
}

// PairUsers 单事务内锁定双方行并互设伴侣
//
// 按 ID 字典序加锁，避免两笔交叉配对事务互相死锁。
func (s *Store) PairUsers(ctx context.Context, requesterID, candidateID string, connectedAt time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		first, second := requesterID, candidateID
		if second < first {
			first, second = second, first
		}

		var a, b domain.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&a, "id = ?", first).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrUserNotFound
			}
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&b, "id = ?", second).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrUserNotFound
			}
			return err
		}

		if a.IsPaired() || b.IsPaired() {
			return storage.ErrAlreadyPaired
		}

		if err := tx.Model(&domain.User{}).Where("id = ?", requesterID).
			Updates(map[string]interface{}{
				"partner_id":   candidateID,
				"connected_at": connectedAt,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&domain.User{}).Where("id = ?", candidateID).
			Updates(map[string]interface{}{
				"partner_id":   requesterID,
				"connected_at": connectedAt,
			}).Error
	})
}

// SaveLetter 保存信件
func (s *Store) SaveLetter(ctx context.Context, letter *domain.Letter) error {
	return s.db.WithContext(ctx).Save(letter).Error
}

// GetLetter 按 ID 查信件
func (s *Store) GetLetter(ctx context.Context, id string) (*domain.Letter, error) {
	var letter domain.Letter
	err := s.db.WithContext(ctx).First(&letter, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrLetterNotFound
	}
	if err != nil {
		return nil, err
	}
	return &letter, nil
}

// ListLettersByUserID 返回用户相关信件，创建时间倒序
func (s *Store) ListLettersByUserID(ctx context.Context, userID string) ([]domain.Letter, error) {
	var letters []domain.Letter
	err := s.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&letters).Error
	return letters, err
}

// MarkLetterOpened 幂等置已读，条件更新保证只翻转一次
func (s *Store) MarkLetterOpened(ctx context.Context, id, receiverID string, at time.Time) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.Letter{}).
		Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, storage.ErrLetterNotFound
	}

	result := s.db.WithContext(ctx).Model(&domain.Letter{}).
		Where("id = ? AND receiver_id = ? AND is_opened = ?", id, receiverID, false).
		Updates(map[string]interface{}{
			"is_opened": true,
			"opened_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListUnreleasedDue 找出到期未通知的预约信件
func (s *Store) ListUnreleasedDue(ctx context.Context, now time.Time) ([]domain.Letter, error) {
	var letters []domain.Letter
	err := s.db.WithContext(ctx).
		Where("scheduled_at IS NOT NULL AND scheduled_at <= ? AND release_notified = ?", now, false).
		Find(&letters).Error
	return letters, err
}

// MarkLetterReleased 标记释放通知已推送
func (s *Store) MarkLetterReleased(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&domain.Letter{}).
		Where("id = ?", id).Update("release_notified", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrLetterNotFound
	}
	return nil
}

// SaveMoment 保存纪念日
func (s *Store) SaveMoment(ctx context.Context, moment *domain.Moment) error {
	return s.db.WithContext(ctx).Save(moment).Error
}

// GetMoment 按 ID 查纪念日
func (s *Store) GetMoment(ctx context.Context, id string) (*domain.Moment, error) {
	var moment domain.Moment
	err := s.db.WithContext(ctx).First(&moment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrMomentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &moment, nil
}

// ListMomentsForUser 本人全部 + 伴侣共享，按日期倒序
func (s *Store) ListMomentsForUser(ctx context.Context, userID string, partnerID *string) ([]domain.Moment, error) {
	query := s.db.WithContext(ctx).Model(&domain.Moment{})
	if partnerID != nil {
		query = query.Where("user_id = ? OR (user_id = ? AND is_shared = ?)", userID, *partnerID, true)
	} else {
		query = query.Where("user_id = ?", userID)
	}

	var moments []domain.Moment
	err := query.Order("date DESC").Find(&moments).Error
	return moments, err
}

// DeleteMoment 删除纪念日
func (s *Store) DeleteMoment(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Moment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrMomentNotFound
	}
	return nil
}

// Health 探测数据库连通性
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接池
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
