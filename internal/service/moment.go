package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/monitoring"
	"loveletter/backend/internal/storage"
)

var (
	// ErrMomentNotFound 纪念日不存在或无权访问
	ErrMomentNotFound = errors.New("moment not found")
	// ErrInvalidCategory 分类不在枚举集合内
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidIcon 图标不在枚举集合内
	ErrInvalidIcon = errors.New("invalid icon")
	// ErrInvalidDate 日期缺失或非法
	ErrInvalidDate = errors.New("invalid date")
)

// MomentService 纪念日服务
type MomentService struct {
	store   storage.Store
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewMomentService 创建纪念日服务
func NewMomentService(store storage.Store, metrics *monitoring.Metrics, log *zap.Logger) *MomentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MomentService{
		store:   store,
		metrics: metrics,
		log:     log,
	}
}

// MomentInput 纪念日创建/更新输入
type MomentInput struct {
	Title       string
	Date        time.Time
	Category    domain.MomentCategory
	Description string
	ImageURL    string
	Icon        domain.MomentIcon
	IsRecurring bool
	IsShared    bool
}

// MomentView 带 D-day 标注的纪念日视图
type MomentView struct {
	domain.Moment
	DDay    domain.Proximity `json:"dday"`
	IsOwner bool             `json:"isOwner"`
}

func (s *MomentService) validate(input *MomentInput) error {
	if err := domain.ValidateMomentTitle(input.Title); err != nil {
		return err
	}
	if input.Date.IsZero() {
		return ErrInvalidDate
	}
	if input.Category == "" {
		input.Category = domain.CategoryMilestone
	}
	if !domain.ValidCategory(input.Category) {
		return ErrInvalidCategory
	}
	if input.Icon == "" {
		input.Icon = domain.IconFavorite
	}
	if !domain.ValidIcon(input.Icon) {
		return ErrInvalidIcon
	}
	return nil
}

// Create 创建纪念日
func (s *MomentService) Create(ctx context.Context, userID string, input MomentInput) (*MomentView, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	now := time.Now()
	moment := &domain.Moment{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       input.Title,
		Date:        input.Date,
		Category:    input.Category,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		Icon:        input.Icon,
		IsRecurring: input.IsRecurring,
		IsShared:    input.IsShared,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.SaveMoment(ctx, moment); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordMomentCreated()
	}
	s.log.Info("moment created",
		zap.String("momentID", moment.ID),
		zap.String("userID", userID),
		zap.String("category", string(moment.Category)))

	view := s.view(*moment, userID, now)
	return &view, nil
}

// Update 更新纪念日，仅归属用户可操作
//
// 非归属用户（包括伴侣）与不存在的 ID 同样返回 ErrMomentNotFound。
func (s *MomentService) Update(ctx context.Context, userID, momentID string, input MomentInput) (*MomentView, error) {
	moment, err := s.store.GetMoment(ctx, momentID)
	if err != nil {
		if errors.Is(err, storage.ErrMomentNotFound) {
			return nil, ErrMomentNotFound
		}
		return nil, err
	}
	if moment.UserID != userID {
		return nil, ErrMomentNotFound
	}

	if err := s.validate(&input); err != nil {
		return nil, err
	}

	moment.Title = input.Title
	moment.Date = input.Date
	moment.Category = input.Category
	moment.Description = input.Description
	moment.ImageURL = input.ImageURL
	moment.Icon = input.Icon
	moment.IsRecurring = input.IsRecurring
	moment.IsShared = input.IsShared
	moment.UpdatedAt = time.Now()

	if err := s.store.SaveMoment(ctx, moment); err != nil {
		return nil, err
	}

	view := s.view(*moment, userID, time.Now())
	return &view, nil
}

// Delete 删除纪念日，仅归属用户可操作
func (s *MomentService) Delete(ctx context.Context, userID, momentID string) error {
	moment, err := s.store.GetMoment(ctx, momentID)
	if err != nil {
		if errors.Is(err, storage.ErrMomentNotFound) {
			return ErrMomentNotFound
		}
		return err
	}
	if moment.UserID != userID {
		return ErrMomentNotFound
	}

	if err := s.store.DeleteMoment(ctx, momentID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordMomentDeleted()
	}
	return nil
}

// List 返回本人全部纪念日及伴侣共享的纪念日，每条带 D-day 标注
func (s *MomentService) List(ctx context.Context, userID string) ([]MomentView, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	moments, err := s.store.ListMomentsForUser(ctx, userID, user.PartnerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	views := make([]MomentView, 0, len(moments))
	for _, m := range moments {
		views = append(views, s.view(m, userID, now))
	}
	return views, nil
}

// Upcoming 返回下一个即将到来的纪念日，没有时返回 nil
func (s *MomentService) Upcoming(ctx context.Context, userID string) (*MomentView, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	moments, err := s.store.ListMomentsForUser(ctx, userID, user.PartnerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	next := domain.NextUpcoming(moments, now)
	if next == nil {
		return nil, nil
	}

	view := s.view(*next, userID, now)
	return &view, nil
}

func (s *MomentService) view(m domain.Moment, viewerID string, now time.Time) MomentView {
	return MomentView{
		Moment:  m,
		DDay:    domain.ComputeProximity(m.Date, m.IsRecurring, now),
		IsOwner: m.UserID == viewerID,
	}
}
