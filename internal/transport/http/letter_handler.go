package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/service"
)

// LetterHandler 处理信件相关的 HTTP 请求
type LetterHandler struct {
	letters *service.LetterService
	log     *zap.Logger
}

// NewLetterHandler 创建信件处理器
func NewLetterHandler(letters *service.LetterService, log *zap.Logger) *LetterHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LetterHandler{letters: letters, log: log}
}

type sendLetterRequest struct {
	Content     string     `json:"content" binding:"required"`
	ThemeID     string     `json:"themeId"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

type letterListResponse struct {
	Items []service.LetterView `json:"items"`
	Count int                  `json:"count"`
}

type archiveResponse struct {
	Groups []domain.MonthGroup `json:"groups"`
	Count  int                 `json:"count"`
}

// Send godoc
// @Summary 寄一封信
// @Description 给伴侣写信，可指定信纸主题和预约送达时间
// @Tags 信件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body sendLetterRequest true "信件内容"
// @Success 201 {object} domain.Letter
// @Failure 400 {object} Response "内容为空、超长或预约时间无效"
// @Failure 422 {object} Response "尚未配对"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/letters [post]
func (h *LetterHandler) Send(c *gin.Context) {
	userID := c.GetString("userID")

	var req sendLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	letter, err := h.letters.Send(c.Request.Context(), userID, service.SendLetterInput{
		Content:     req.Content,
		ThemeID:     req.ThemeID,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyContent),
			errors.Is(err, domain.ErrContentTooLong),
			errors.Is(err, domain.ErrInvalidTheme),
			errors.Is(err, service.ErrScheduleInPast):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrNoPartner):
			UnprocessableEntity(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to send letter", zap.Error(err))
			InternalError(c, MsgLetterSendFailed)
		}
		return
	}

	Created(c, letter)
}

// List godoc
// @Summary 获取信件列表
// @Description 返回当前用户可见的全部信件，未到期的预约信件对收件人隐藏
// @Tags 信件
// @Produce json
// @Security BearerAuth
// @Success 200 {object} letterListResponse
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/letters [get]
func (h *LetterHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	views, err := h.letters.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("failed to list letters", zap.Error(err))
		InternalError(c, MsgLetterListFailed)
		return
	}

	Success(c, letterListResponse{
		Items: views,
		Count: len(views),
	})
}

// Archive godoc
// @Summary 信箱归档
// @Description 按方向过滤、内容搜索后按月分组返回信件
// @Tags 信件
// @Produce json
// @Security BearerAuth
// @Param filter query string false "方向过滤：all / sent / received（默认 all）"
// @Param q query string false "内容搜索关键词"
// @Param sort query string false "排序方向：desc（默认）或 asc"
// @Success 200 {object} archiveResponse
// @Failure 400 {object} Response "过滤参数无效"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/letters/archive [get]
func (h *LetterHandler) Archive(c *gin.Context) {
	userID := c.GetString("userID")

	filter := domain.LetterFilter(c.DefaultQuery("filter", string(domain.FilterAll)))
	switch filter {
	case domain.FilterAll, domain.FilterSent, domain.FilterReceived:
	default:
		BadRequest(c, MsgInvalidRequest)
		return
	}

	groups, err := h.letters.Archive(c.Request.Context(), userID, domain.AggregateOptions{
		Filter:        filter,
		Search:        c.Query("q"),
		SortAscending: c.Query("sort") == "asc",
	})
	if err != nil {
		h.log.Error("failed to build archive", zap.Error(err))
		InternalError(c, MsgLetterArchiveFailed)
		return
	}

	Success(c, archiveResponse{
		Groups: groups,
		Count:  len(groups),
	})
}

// Get godoc
// @Summary 获取信件详情
// @Description 查看单封信件，仅寄件人和收件人可见
// @Tags 信件
// @Produce json
// @Security BearerAuth
// @Param id path string true "信件ID"
// @Success 200 {object} service.LetterView
// @Failure 404 {object} Response "信件不存在"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/letters/{id} [get]
func (h *LetterHandler) Get(c *gin.Context) {
	userID := c.GetString("userID")

	view, err := h.letters.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrLetterNotFound) {
			NotFound(c, MsgLetterNotFound)
			return
		}
		h.log.Error("failed to get letter", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, view)
}

// MarkRead godoc
// @Summary 标记信件已读
// @Description 收件人将信件标记为已读，重复调用幂等
// @Tags 信件
// @Produce json
// @Security BearerAuth
// @Param id path string true "信件ID"
// @Success 200 {object} service.LetterView
// @Failure 404 {object} Response "信件不存在"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/letters/{id}/read [patch]
func (h *LetterHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("userID")

	view, err := h.letters.MarkRead(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrLetterNotFound) {
			NotFound(c, MsgLetterNotFound)
			return
		}
		h.log.Error("failed to mark letter read", zap.Error(err))
		InternalError(c, MsgLetterMarkReadFailed)
		return
	}

	Success(c, view)
}
