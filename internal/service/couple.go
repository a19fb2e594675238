// Package service 实现信件、纪念日与配对的业务逻辑
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"loveletter/backend/internal/auth"
	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/monitoring"
	"loveletter/backend/internal/storage"
)

var (
	// ErrCodeNotFound 邀请码不存在
	ErrCodeNotFound = errors.New("invite code not found")
	// ErrSelfPairing 不能与自己配对
	ErrSelfPairing = errors.New("cannot pair with yourself")
	// ErrAlreadyPaired 一方已有伴侣
	ErrAlreadyPaired = errors.New("already paired")
)

// CoupleService 配对服务
type CoupleService struct {
	store   storage.Store
	codeTTL time.Duration
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewCoupleService 创建配对服务
func NewCoupleService(store storage.Store, codeTTL time.Duration, metrics *monitoring.Metrics, log *zap.Logger) *CoupleService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CoupleService{
		store:   store,
		codeTTL: codeTTL,
		metrics: metrics,
		log:     log,
	}
}

// ConnectResult 配对成功的返回信息
type ConnectResult struct {
	PartnerID       string    `json:"partnerId"`
	PartnerNickname string    `json:"partnerNickname"`
	ConnectedAt     time.Time `json:"connectedAt"`
}

// Connect 凭邀请码发起配对
//
// 检查顺序固定：码不存在 → 自配对 → 任一方已配对 → 原子双向写入。
// 并发场景由存储层的 PairUsers 兜底，输掉的一方同样收到 ErrAlreadyPaired。
// 邀请码过期只影响前端倒计时展示，这里不拒绝过期码。
func (s *CoupleService) Connect(ctx context.Context, requesterID, inviteCode string) (*ConnectResult, error) {
	requester, err := s.store.GetUserByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requester.IsPaired() {
		s.recordConnectFailure("requester_paired")
		return nil, ErrAlreadyPaired
	}

	candidate, err := s.store.GetUserByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.recordConnectFailure("code_not_found")
			return nil, ErrCodeNotFound
		}
		return nil, err
	}

	if candidate.ID == requesterID {
		s.recordConnectFailure("self_pairing")
		return nil, ErrSelfPairing
	}

	if candidate.IsPaired() {
		s.recordConnectFailure("candidate_paired")
		return nil, ErrAlreadyPaired
	}

	connectedAt := time.Now()
	if err := s.store.PairUsers(ctx, requesterID, candidate.ID, connectedAt); err != nil {
		if errors.Is(err, storage.ErrAlreadyPaired) {
			s.recordConnectFailure("lost_race")
			return nil, ErrAlreadyPaired
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordCoupleConnected()
	}
	s.log.Info("couple connected",
		zap.String("requesterID", requesterID),
		zap.String("partnerID", candidate.ID))

	return &ConnectResult{
		PartnerID:       candidate.ID,
		PartnerNickname: candidate.Nickname,
		ConnectedAt:     connectedAt,
	}, nil
}

func (s *CoupleService) recordConnectFailure(reason string) {
	if s.metrics != nil {
		s.metrics.RecordConnectFailure(reason)
	}
}

// CoupleStatus 配对状态
type CoupleStatus struct {
	Paired          bool       `json:"paired"`
	PartnerID       string     `json:"partnerId,omitempty"`
	PartnerNickname string     `json:"partnerNickname,omitempty"`
	ConnectedAt     *time.Time `json:"connectedAt,omitempty"`
}

// Status 查询当前配对状态
func (s *CoupleService) Status(ctx context.Context, userID string) (*CoupleStatus, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.IsPaired() {
		return &CoupleStatus{Paired: false}, nil
	}

	partner, err := s.store.GetUserByID(ctx, *user.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load partner: %w", err)
	}

	return &CoupleStatus{
		Paired:          true,
		PartnerID:       partner.ID,
		PartnerNickname: partner.Nickname,
		ConnectedAt:     user.ConnectedAt,
	}, nil
}

// InviteCodeInfo 邀请码信息
type InviteCodeInfo struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// InviteCode 返回当前用户的邀请码
func (s *CoupleService) InviteCode(ctx context.Context, userID string) (*InviteCodeInfo, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &InviteCodeInfo{
		Code:      user.InviteCode,
		ExpiresAt: user.InviteCodeExpiresAt,
	}, nil
}

// RegenerateInviteCode 主动更换邀请码
//
// 已配对用户的邀请码不再有意义，直接拒绝。
func (s *CoupleService) RegenerateInviteCode(ctx context.Context, userID string) (*InviteCodeInfo, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsPaired() {
		return nil, ErrAlreadyPaired
	}

	if err := s.rotateUserCode(ctx, user); err != nil {
		return nil, err
	}

	return &InviteCodeInfo{
		Code:      user.InviteCode,
		ExpiresAt: user.InviteCodeExpiresAt,
	}, nil
}

// RotateExpiredCodes 轮换所有过期的未配对用户邀请码，返回轮换数量
//
// 由后台定时任务调用。
func (s *CoupleService) RotateExpiredCodes(ctx context.Context) (int, error) {
	users, err := s.store.ListUnpairedWithExpiredCodes(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	rotated := 0
	for _, user := range users {
		if err := s.rotateUserCode(ctx, user); err != nil {
			s.log.Warn("failed to rotate invite code",
				zap.String("userID", user.ID),
				zap.Error(err))
			continue
		}
		rotated++
		if s.metrics != nil {
			s.metrics.RecordInviteCodeRotated()
		}
	}

	if rotated > 0 {
		s.log.Info("rotated expired invite codes", zap.Int("count", rotated))
	}
	return rotated, nil
}

// rotateUserCode 给用户换一个新邀请码，唯一索引冲突时重试
func (s *CoupleService) rotateUserCode(ctx context.Context, user *domain.User) error {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := auth.GenerateInviteCode()
		if err != nil {
			return err
		}
		user.InviteCode = code
		user.InviteCodeExpiresAt = time.Now().Add(s.codeTTL)

		err = s.store.UpdateUser(ctx, user)
		if err == nil {
			return nil
		}
		if errors.Is(err, storage.ErrCodeExists) {
			continue
		}
		return err
	}
	return errors.New("failed to allocate a unique invite code")
}
