package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"loveletter/backend/internal/service"
)

// CoupleHandler 处理配对相关的 HTTP 请求
type CoupleHandler struct {
	couples *service.CoupleService
	log     *zap.Logger
}

// NewCoupleHandler 创建配对处理器
func NewCoupleHandler(couples *service.CoupleService, log *zap.Logger) *CoupleHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CoupleHandler{couples: couples, log: log}
}

type connectRequest struct {
	InviteCode string `json:"inviteCode" binding:"required"`
}

// Connect godoc
// @Summary 用邀请码配对
// @Description 输入伴侣的邀请码建立配对关系，双方各只能有一个伴侣
// @Tags 配对
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body connectRequest true "伴侣的邀请码"
// @Success 200 {object} service.ConnectResult
// @Failure 400 {object} Response "不能和自己配对"
// @Failure 404 {object} Response "邀请码不存在"
// @Failure 409 {object} Response "一方已有伴侣"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/couples/connect [post]
func (h *CoupleHandler) Connect(c *gin.Context) {
	userID := c.GetString("userID")

	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.couples.Connect(c.Request.Context(), userID, req.InviteCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			NotFound(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrSelfPairing):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, service.ErrAlreadyPaired):
			Conflict(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to connect couple", zap.Error(err))
			InternalError(c, MsgConnectFailed)
		}
		return
	}

	Success(c, result)
}

// Status godoc
// @Summary 获取配对状态
// @Description 返回当前用户是否已配对以及伴侣信息
// @Tags 配对
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.CoupleStatus
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/couples/status [get]
func (h *CoupleHandler) Status(c *gin.Context) {
	userID := c.GetString("userID")

	status, err := h.couples.Status(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("failed to get couple status", zap.Error(err))
		InternalError(c, MsgStatusFailed)
		return
	}

	Success(c, status)
}

// InviteCode godoc
// @Summary 获取自己的邀请码
// @Description 返回当前用户的邀请码及其过期时间
// @Tags 配对
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.InviteCodeInfo
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/couples/invite-code [get]
func (h *CoupleHandler) InviteCode(c *gin.Context) {
	userID := c.GetString("userID")

	info, err := h.couples.InviteCode(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("failed to get invite code", zap.Error(err))
		InternalError(c, MsgInviteCodeFailed)
		return
	}

	Success(c, info)
}

// RegenerateInviteCode godoc
// @Summary 更换邀请码
// @Description 生成新的邀请码，旧码立即失效；已配对用户不可更换
// @Tags 配对
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.InviteCodeInfo
// @Failure 409 {object} Response "已配对不能更换"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/couples/invite-code/regenerate [post]
func (h *CoupleHandler) RegenerateInviteCode(c *gin.Context) {
	userID := c.GetString("userID")

	info, err := h.couples.RegenerateInviteCode(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyPaired) {
			Conflict(c, GetErrorMessage(err))
			return
		}
		h.log.Error("failed to regenerate invite code", zap.Error(err))
		InternalError(c, MsgRegenerateFailed)
		return
	}

	Success(c, info)
}
