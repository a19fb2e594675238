package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/service"
)

// MomentHandler 处理纪念日相关的 HTTP 请求
type MomentHandler struct {
	moments *service.MomentService
	log     *zap.Logger
}

// NewMomentHandler 创建纪念日处理器
func NewMomentHandler(moments *service.MomentService, log *zap.Logger) *MomentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MomentHandler{moments: moments, log: log}
}

type momentRequest struct {
	Title       string    `json:"title" binding:"required"`
	Date        time.Time `json:"date" binding:"required"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	Icon        string    `json:"icon"`
	IsRecurring bool      `json:"isRecurring"`
	IsShared    bool      `json:"isShared"`
}

type momentListResponse struct {
	Items []service.MomentView `json:"items"`
	Count int                  `json:"count"`
}

func (r momentRequest) toInput() service.MomentInput {
	return service.MomentInput{
		Title:       r.Title,
		Date:        r.Date,
		Category:    domain.MomentCategory(r.Category),
		Description: r.Description,
		ImageURL:    r.ImageURL,
		Icon:        domain.MomentIcon(r.Icon),
		IsRecurring: r.IsRecurring,
		IsShared:    r.IsShared,
	}
}

func (h *MomentHandler) handleError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrTitleTooLong),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidIcon),
		errors.Is(err, service.ErrInvalidDate):
		BadRequest(c, GetErrorMessage(err))
	case errors.Is(err, service.ErrMomentNotFound):
		NotFound(c, MsgMomentNotFound)
	default:
		h.log.Error("moment operation failed", zap.Error(err))
		InternalError(c, fallback)
	}
}

// Create godoc
// @Summary 创建纪念日
// @Description 记录一个纪念日或重要时刻，可设置每年重复和与伴侣共享
// @Tags 纪念日
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body momentRequest true "纪念日信息"
// @Success 201 {object} service.MomentView
// @Failure 400 {object} Response "请求参数错误"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/moments [post]
func (h *MomentHandler) Create(c *gin.Context) {
	userID := c.GetString("userID")

	var req momentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	view, err := h.moments.Create(c.Request.Context(), userID, req.toInput())
	if err != nil {
		h.handleError(c, err, MsgMomentCreateFailed)
		return
	}

	Created(c, view)
}

// List godoc
// @Summary 获取纪念日列表
// @Description 返回本人全部纪念日及伴侣共享的纪念日，每条带 D-day 标注
// @Tags 纪念日
// @Produce json
// @Security BearerAuth
// @Success 200 {object} momentListResponse
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/moments [get]
func (h *MomentHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	views, err := h.moments.List(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("failed to list moments", zap.Error(err))
		InternalError(c, MsgMomentListFailed)
		return
	}

	Success(c, momentListResponse{
		Items: views,
		Count: len(views),
	})
}

// Upcoming godoc
// @Summary 下一个纪念日
// @Description 返回最近的即将到来的纪念日（含今天），没有时 data 为空
// @Tags 纪念日
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.MomentView
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/moments/upcoming [get]
func (h *MomentHandler) Upcoming(c *gin.Context) {
	userID := c.GetString("userID")

	view, err := h.moments.Upcoming(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("failed to get upcoming moment", zap.Error(err))
		InternalError(c, MsgMomentListFailed)
		return
	}

	Success(c, view)
}

// Update godoc
// @Summary 更新纪念日
// @Description 更新纪念日信息，仅创建者可操作
// @Tags 纪念日
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "纪念日ID"
// @Param request body momentRequest true "纪念日信息"
// @Success 200 {object} service.MomentView
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "纪念日不存在"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/moments/{id} [put]
func (h *MomentHandler) Update(c *gin.Context) {
	userID := c.GetString("userID")

	var req momentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	view, err := h.moments.Update(c.Request.Context(), userID, c.Param("id"), req.toInput())
	if err != nil {
		h.handleError(c, err, MsgMomentUpdateFailed)
		return
	}

	Success(c, view)
}

// Delete godoc
// @Summary 删除纪念日
// @Description 删除纪念日，仅创建者可操作
// @Tags 纪念日
// @Security BearerAuth
// @Param id path string true "纪念日ID"
// @Success 204
// @Failure 404 {object} Response "纪念日不存在"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/moments/{id} [delete]
func (h *MomentHandler) Delete(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.moments.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleError(c, err, MsgMomentDeleteFailed)
		return
	}

	NoContent(c)
}
