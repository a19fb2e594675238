package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/monitoring"
	"loveletter/backend/internal/pool"
	"loveletter/backend/internal/storage"
	"loveletter/backend/internal/websocket"
)

var (
	// ErrNoPartner 未配对时不能寄信
	ErrNoPartner = errors.New("no partner connected")
	// ErrLetterNotFound 信件不存在或当前用户不可见
	ErrLetterNotFound = errors.New("letter not found")
	// ErrScheduleInPast 预约时间早于当前时间
	ErrScheduleInPast = errors.New("scheduled time is in the past")
)

// 推送预览截断长度
const previewRuneLimit = 100

// LetterService 信件服务
type LetterService struct {
	store   storage.Store
	hub     *websocket.Hub
	workers *pool.WorkerPool
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewLetterService 创建信件服务
//
// hub 与 workers 允许为 nil（测试或精简部署），此时不做推送。
func NewLetterService(store storage.Store, hub *websocket.Hub, workers *pool.WorkerPool, metrics *monitoring.Metrics, log *zap.Logger) *LetterService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LetterService{
		store:   store,
		hub:     hub,
		workers: workers,
		metrics: metrics,
		log:     log,
	}
}

// SendLetterInput 寄信输入
type SendLetterInput struct {
	Content     string
	ThemeID     string
	ScheduledAt *time.Time
}

// LetterView 面向接口层的信件视图，昵称已展开
type LetterView struct {
	ID               string     `json:"id"`
	SenderID         string     `json:"senderId"`
	SenderNickname   string     `json:"senderNickname"`
	ReceiverID       string     `json:"receiverId"`
	ReceiverNickname string     `json:"receiverNickname"`
	Content          string     `json:"content"`
	ThemeID          string     `json:"themeId"`
	ScheduledAt      *time.Time `json:"scheduledAt,omitempty"`
	IsOpened         bool       `json:"isOpened"`
	OpenedAt         *time.Time `json:"openedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Send 给当前伴侣寄一封信
//
// 预约信件到点前对收件人不可见；立即送达的信件实时推送。
func (s *LetterService) Send(ctx context.Context, senderID string, input SendLetterInput) (*domain.Letter, error) {
	if err := domain.ValidateLetterContent(input.Content); err != nil {
		return nil, err
	}

	themeID := input.ThemeID
	if themeID == "" {
		themeID = "default"
	}
	if err := domain.ValidateThemeID(themeID); err != nil {
		return nil, err
	}

	now := time.Now()
	if input.ScheduledAt != nil && input.ScheduledAt.Before(now) {
		return nil, ErrScheduleInPast
	}

	sender, err := s.store.GetUserByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if !sender.IsPaired() {
		return nil, ErrNoPartner
	}

	letter := &domain.Letter{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		ReceiverID:  *sender.PartnerID,
		Content:     input.Content,
		ThemeID:     themeID,
		ScheduledAt: input.ScheduledAt,
		CreatedAt:   now,
	}

	if err := s.store.SaveLetter(ctx, letter); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordLetterSent(letter.ScheduledAt != nil)
	}
	s.log.Info("letter sent",
		zap.String("letterID", letter.ID),
		zap.String("senderID", senderID),
		zap.Bool("scheduled", letter.ScheduledAt != nil))

	// 立即送达的信件实时推给收件人
	if letter.ScheduledAt == nil {
		s.notify(letter, sender.Nickname, websocket.EventLetterNew)
	}

	return letter, nil
}

// notify 经协程池异步推送信件事件
func (s *LetterService) notify(letter *domain.Letter, senderNickname string, event websocket.EventType) {
	if s.hub == nil {
		return
	}

	data := websocket.LetterEventData{
		LetterID:       letter.ID,
		SenderID:       letter.SenderID,
		SenderNickname: senderNickname,
		ThemeID:        letter.ThemeID,
		Preview:        preview(letter.Content),
		CreatedAt:      letter.CreatedAt.Format(time.RFC3339),
	}

	receiverID := letter.ReceiverID
	task := func() {
		s.hub.NotifyLetter(receiverID, event, data)
	}

	if s.workers != nil {
		if !s.workers.TrySubmit(task) {
			s.log.Warn("worker queue full, notifying inline", zap.String("letterID", letter.ID))
			task()
		}
		return
	}
	task()
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewRuneLimit {
		return content
	}
	return string(runes[:previewRuneLimit])
}

// ListForUser 返回用户可见的全部信件，昵称已展开
//
// 收件方向的预约信件到点前被过滤掉；寄件人始终能看到自己写的信。
func (s *LetterService) ListForUser(ctx context.Context, userID string) ([]LetterView, error) {
	letters, err := s.store.ListLettersByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	visible := make([]domain.Letter, 0, len(letters))
	for _, l := range letters {
		if l.VisibleTo(userID, now) {
			visible = append(visible, l)
		}
	}

	return s.expandViews(ctx, visible)
}

// Archive 对用户可见信件执行信箱聚合
func (s *LetterService) Archive(ctx context.Context, userID string, opts domain.AggregateOptions) ([]domain.MonthGroup, error) {
	letters, err := s.store.ListLettersByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	visible := make([]domain.Letter, 0, len(letters))
	for _, l := range letters {
		if l.VisibleTo(userID, now) {
			visible = append(visible, l)
		}
	}

	return domain.Aggregate(visible, userID, opts), nil
}

// Get 查看单封信件，仅寄件人或收件人可见
func (s *LetterService) Get(ctx context.Context, userID, letterID string) (*LetterView, error) {
	letter, err := s.store.GetLetter(ctx, letterID)
	if err != nil {
		if errors.Is(err, storage.ErrLetterNotFound) {
			return nil, ErrLetterNotFound
		}
		return nil, err
	}

	// 不可见与不存在不作区分，避免泄露信件存在性
	if !letter.VisibleTo(userID, time.Now()) {
		return nil, ErrLetterNotFound
	}

	views, err := s.expandViews(ctx, []domain.Letter{*letter})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// MarkRead 收件人置已读，幂等
//
// 仅收件人首次调用会翻转状态；重复调用与寄件人调用都返回当前信件。
func (s *LetterService) MarkRead(ctx context.Context, userID, letterID string) (*LetterView, error) {
	letter, err := s.store.GetLetter(ctx, letterID)
	if err != nil {
		if errors.Is(err, storage.ErrLetterNotFound) {
			return nil, ErrLetterNotFound
		}
		return nil, err
	}

	now := time.Now()
	if !letter.VisibleTo(userID, now) {
		return nil, ErrLetterNotFound
	}

	flipped, err := s.store.MarkLetterOpened(ctx, letterID, userID, now)
	if err != nil {
		return nil, err
	}
	if flipped {
		if s.metrics != nil {
			s.metrics.RecordLetterOpened()
		}
		letter.IsOpened = true
		letter.OpenedAt = &now
	}

	views, err := s.expandViews(ctx, []domain.Letter{*letter})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ReleaseDueScheduled 释放到期的预约信件并推送通知，返回释放数量
//
// 由后台定时任务调用。标记失败只记日志，下一轮会重试。
func (s *LetterService) ReleaseDueScheduled(ctx context.Context) (int, error) {
	due, err := s.store.ListUnreleasedDue(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	released := 0
	for _, letter := range due {
		if err := s.store.MarkLetterReleased(ctx, letter.ID); err != nil {
			s.log.Warn("failed to mark letter released",
				zap.String("letterID", letter.ID),
				zap.Error(err))
			continue
		}

		senderNickname := ""
		if sender, err := s.store.GetUserByID(ctx, letter.SenderID); err == nil {
			senderNickname = sender.Nickname
		}
		l := letter
		s.notify(&l, senderNickname, websocket.EventLetterReleased)

		released++
		if s.metrics != nil {
			s.metrics.RecordLetterReleased()
		}
	}

	if released > 0 {
		s.log.Info("released scheduled letters", zap.Int("count", released))
	}
	return released, nil
}

// expandViews 批量展开昵称，同一用户只查一次
func (s *LetterService) expandViews(ctx context.Context, letters []domain.Letter) ([]LetterView, error) {
	nicknames := make(map[string]string)
	lookup := func(id string) string {
		if name, ok := nicknames[id]; ok {
			return name
		}
		name := ""
		if user, err := s.store.GetUserByID(ctx, id); err == nil {
			name = user.Nickname
		}
		nicknames[id] = name
		return name
	}

	views := make([]LetterView, 0, len(letters))
	for _, l := range letters {
		views = append(views, LetterView{
			ID:               l.ID,
			SenderID:         l.SenderID,
			SenderNickname:   lookup(l.SenderID),
			ReceiverID:       l.ReceiverID,
			ReceiverNickname: lookup(l.ReceiverID),
			Content:          l.Content,
			ThemeID:          l.ThemeID,
			ScheduledAt:      l.ScheduledAt,
			IsOpened:         l.IsOpened,
			OpenedAt:         l.OpenedAt,
			CreatedAt:        l.CreatedAt,
		})
	}
	return views, nil
}
