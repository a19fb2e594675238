// Package memory 提供基于内存的存储实现，用于开发与测试
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/storage"
)

// Store 内存存储，读写锁保护的若干索引表
type Store struct {
	mu sync.RWMutex

	users        map[string]*domain.User // ID -> user
	usersByEmail map[string]string       // 小写邮箱 -> ID
	usersByCode  map[string]string       // 邀请码 -> ID

	letters map[string]*domain.Letter
	moments map[string]*domain.Moment
}

// NewStore 创建空的内存存储
func NewStore() *Store {
	return &Store{
		users:        make(map[string]*domain.User),
		usersByEmail: make(map[string]string),
		usersByCode:  make(map[string]string),
		letters:      make(map[string]*domain.Letter),
		moments:      make(map[string]*domain.Moment),
	}
}

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

func cloneLetter(l *domain.Letter) *domain.Letter {
	c := *l
	if l.ScheduledAt != nil {
		v := *l.ScheduledAt
		c.ScheduledAt = &v
	}
	if l.OpenedAt != nil {
		v := *l.OpenedAt
		c.OpenedAt = &v
	}
	return &c
}

// CreateUser 创建用户
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.usersByEmail[email]; exists {
		return storage.ErrEmailExists
	}
	if _, exists := s.usersByCode[user.InviteCode]; exists {
		return storage.ErrCodeExists
	}

	s.users[user.ID] = cloneUser(user)
	s.usersByEmail[email] = user.ID
	s.usersByCode[user.InviteCode] = user.ID
	return nil
}

// GetUserByID 按 ID 查用户
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// GetUserByEmail 按邮箱查用户（大小写不敏感）
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return cloneUser(s.users[id]), nil
}

// GetUserByInviteCode 按邀请码查用户
func (s *Store) GetUserByInviteCode(ctx context.Context, code string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByCode[code]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return cloneUser(s.users[id]), nil
}

// UpdateUser 覆盖更新用户，维护邮箱与邀请码索引
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.users[user.ID]
	if !ok {
		return storage.ErrUserNotFound
	}

	newEmail := strings.ToLower(user.Email)
	oldEmail := strings.ToLower(old.Email)
	if newEmail != oldEmail {
		if _, exists := s.usersByEmail[newEmail]; exists {
			return storage.ErrEmailExists
		}
		delete(s.usersByEmail, oldEmail)
		s.usersByEmail[newEmail] = user.ID
	}
	if user.InviteCode != old.InviteCode {
		if _, exists := s.usersByCode[user.InviteCode]; exists {
			return storage.ErrCodeExists
		}
		delete(s.usersByCode, old.InviteCode)
		s.usersByCode[user.InviteCode] = user.ID
	}

	user.UpdatedAt = time.Now()
	s.users[user.ID] = cloneUser(user)
	return nil
}

// UpdateLastLogin 记录最近登录时间
func (s *Store) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	t := at
	u.LastLoginAt = &t
	return nil
}

// ListUnpairedWithExpiredCodes 找出邀请码过期且未配对的用户
func (s *Store) ListUnpairedWithExpiredCodes(ctx context.Context, now time.Time) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.User
	for _, u := range s.users {
		if !u.IsPaired() && u.InviteCodeExpired(now) {
			result = append(result, cloneUser(u))
		}
	}
	return result, nil
}

// PairUsers 在锁内原子配对两个用户
func (s *Store) PairUsers(ctx context.Context, requesterID, candidateID string, connectedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	requester, ok := s.users[requesterID]
	if !ok {
		return storage.ErrUserNotFound
	}
	candidate, ok := s.users[candidateID]
	if !ok {
		return storage.ErrUserNotFound
	}
	if requester.IsPaired() || candidate.IsPaired() {
		return storage.ErrAlreadyPaired
	}

	at := connectedAt
	rid, cid := requesterID, candidateID
	requester.PartnerID = &cid
	requester.ConnectedAt = &at
	candidate.PartnerID = &rid
	candidate.ConnectedAt = &at
	requester.UpdatedAt = time.Now()
	candidate.UpdatedAt = requester.UpdatedAt
	return nil
}

// SaveLetter 新建或覆盖信件
func (s *Store) SaveLetter(ctx context.Context, letter *domain.Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.letters[letter.ID] = cloneLetter(letter)
	return nil
}

// GetLetter 按 ID 查信件
func (s *Store) GetLetter(ctx context.Context, id string) (*domain.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.letters[id]
	if !ok {
		return nil, storage.ErrLetterNotFound
	}
	return cloneLetter(l), nil
}

// ListLettersByUserID 返回与用户相关的全部信件，创建时间倒序
func (s *Store) ListLettersByUserID(ctx context.Context, userID string) ([]domain.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Letter, 0)
	for _, l := range s.letters {
		if l.SenderID == userID || l.ReceiverID == userID {
			result = append(result, *cloneLetter(l))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// MarkLetterOpened 幂等置已读
func (s *Store) MarkLetterOpened(ctx context.Context, id, receiverID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.letters[id]
	if !ok {
		return false, storage.ErrLetterNotFound
	}
	if l.ReceiverID != receiverID || l.IsOpened {
		return false, nil
	}
	t := at
	l.IsOpened = true
	l.OpenedAt = &t
	return true, nil
}

// ListUnreleasedDue 找出到期未通知的预约信件
func (s *Store) ListUnreleasedDue(ctx context.Context, now time.Time) ([]domain.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []domain.Letter
	for _, l := range s.letters {
		if l.ScheduledAt != nil && !l.ReleaseNotified && !l.ScheduledAt.After(now) {
			due = append(due, *cloneLetter(l))
		}
	}
	return due, nil
}

// MarkLetterReleased 标记释放通知已推送
func (s *Store) MarkLetterReleased(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.letters[id]
	if !ok {
		return storage.ErrLetterNotFound
	}
	l.ReleaseNotified = true
	return nil
}

// SaveMoment 新建或覆盖纪念日
func (s *Store) SaveMoment(ctx context.Context, moment *domain.Moment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *moment
	s.moments[moment.ID] = &c
	return nil
}

// GetMoment 按 ID 查纪念日
func (s *Store) GetMoment(ctx context.Context, id string) (*domain.Moment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.moments[id]
	if !ok {
		return nil, storage.ErrMomentNotFound
	}
	c := *m
	return &c, nil
}

// ListMomentsForUser 本人全部 + 伴侣共享，按日期倒序
func (s *Store) ListMomentsForUser(ctx context.Context, userID string, partnerID *string) ([]domain.Moment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Moment, 0)
	for _, m := range s.moments {
		if m.UserID == userID {
			result = append(result, *m)
			continue
		}
		if partnerID != nil && m.UserID == *partnerID && m.IsShared {
			result = append(result, *m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	return result, nil
}

// DeleteMoment 删除纪念日
func (s *Store) DeleteMoment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.moments[id]; !ok {
		return storage.ErrMomentNotFound
	}
	delete(s.moments, id)
	return nil
}

// Health 内存存储恒为健康
func (s *Store) Health(ctx context.Context) error {
	return nil
}

// Close 无资源可释放
func (s *Store) Close() error {
	return nil
}
