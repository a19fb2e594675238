// Package auth 提供注册、登录、令牌签发与邀请码生成
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/storage"
)

var (
	// ErrInvalidEmail 无效的邮箱格式
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrInvalidPassword 无效的密码
	ErrInvalidPassword = errors.New("invalid password")
	// ErrEmailExists 邮箱已存在
	ErrEmailExists = errors.New("email already exists")
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials 凭证无效
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserInactive 用户已被禁用
	ErrUserInactive = errors.New("user is inactive")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// 邀请码字符表，去掉易混淆的 0/O/1/I
const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Service 认证服务
type Service struct {
	store         storage.UserRepository
	inviteCodeTTL time.Duration
}

// NewService 创建认证服务
func NewService(store storage.UserRepository, inviteCodeTTL time.Duration) *Service {
	return &Service{
		store:         store,
		inviteCodeTTL: inviteCodeTTL,
	}
}

// RegisterInput 注册输入
type RegisterInput struct {
	Email    string
	Password string
	Nickname string
}

// LoginInput 登录输入
type LoginInput struct {
	Email    string
	Password string
}

// Register 用户注册
//
// 注册成功即分配唯一邀请码，伴侣凭此码发起配对。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if !ValidateEmail(input.Email) {
		return nil, ErrInvalidEmail
	}

	if err := ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	if err := domain.ValidateNickname(input.Nickname); err != nil {
		return nil, err
	}

	if user, err := s.store.GetUserByEmail(ctx, strings.ToLower(input.Email)); err == nil && user != nil {
		return nil, ErrEmailExists
	}

	passwordHash, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(input.Email),
		Nickname:     strings.TrimSpace(input.Nickname),
		PasswordHash: passwordHash,
		ReminderTime: "21:00",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 邀请码唯一索引冲突时换一个重试
	for attempt := 0; attempt < 5; attempt++ {
		code, err := GenerateInviteCode()
		if err != nil {
			return nil, err
		}
		user.InviteCode = code
		user.InviteCodeExpiresAt = now.Add(s.inviteCodeTTL)

		err = s.store.CreateUser(ctx, user)
		if err == nil {
			return user, nil
		}
		if errors.Is(err, storage.ErrCodeExists) {
			continue
		}
		if errors.Is(err, storage.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return nil, errors.New("failed to allocate a unique invite code")
}

// Login 用户登录
func (s *Service) Login(ctx context.Context, input LoginInput) (*domain.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(input.Email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	_ = s.store.UpdateLastLogin(ctx, user.ID, time.Now())

	return user, nil
}

// GetUserByID 根据 ID 获取用户
func (s *Service) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfileInput 资料更新输入，nil 字段表示不修改
type UpdateProfileInput struct {
	Nickname     *string
	ReminderTime *string
}

// UpdateProfile 更新昵称与每日提醒时间
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if input.Nickname != nil {
		if err := domain.ValidateNickname(*input.Nickname); err != nil {
			return nil, err
		}
		user.Nickname = strings.TrimSpace(*input.Nickname)
	}
	if input.ReminderTime != nil {
		if err := domain.ValidateReminderTime(*input.ReminderTime); err != nil {
			return nil, err
		}
		user.ReminderTime = *input.ReminderTime
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword 修改密码
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}

	if !CheckPassword(oldPassword, user.PasswordHash) {
		return errors.New("invalid old password")
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = newHash
	return s.store.UpdateUser(ctx, user)
}

// GenerateInviteCode 生成 LOVE-XXXXXX 形式的邀请码
func GenerateInviteCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	for i, b := range buf {
		buf[i] = inviteCodeAlphabet[int(b)%len(inviteCodeAlphabet)]
	}
	return "LOVE-" + string(buf), nil
}

// ValidateEmail 验证邮箱格式
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword 验证密码强度
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > 72 {
		return errors.New("password must be at most 72 characters")
	}
	return nil
}

// HashPassword 哈希密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword 检查密码是否匹配
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
