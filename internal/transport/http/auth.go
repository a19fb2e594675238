package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"loveletter/backend/internal/auth"
	jwtpkg "loveletter/backend/internal/auth/jwt"
	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/monitoring"
)

// AuthHandler 处理认证相关的 HTTP 请求
type AuthHandler struct {
	authService *auth.Service       // 认证业务服务
	tokens      *auth.TokenService  // 令牌签发与刷新
	metrics     *monitoring.Metrics // 指标采集
	log         *zap.Logger         // 结构化日志记录器
}

// NewAuthHandler 创建新的认证处理器实例
func NewAuthHandler(authService *auth.Service, tokens *auth.TokenService, metrics *monitoring.Metrics, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		authService: authService,
		tokens:      tokens,
		metrics:     metrics,
		log:         log,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type updateProfileRequest struct {
	Nickname     *string `json:"nickname"`
	ReminderTime *string `json:"reminderTime"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type authResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
}

type userResponse struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Nickname            string     `json:"nickname"`
	InviteCode          string     `json:"inviteCode"`
	InviteCodeExpiresAt time.Time  `json:"inviteCodeExpiresAt"`
	PartnerID           *string    `json:"partnerId,omitempty"`
	ConnectedAt         *time.Time `json:"connectedAt,omitempty"`
	ReminderTime        string     `json:"reminderTime"`
	CreatedAt           time.Time  `json:"createdAt"`
}

func toUserResponse(user *domain.User) userResponse {
	return userResponse{
		ID:                  user.ID,
		Email:               user.Email,
		Nickname:            user.Nickname,
		InviteCode:          user.InviteCode,
		InviteCodeExpiresAt: user.InviteCodeExpiresAt,
		PartnerID:           user.PartnerID,
		ConnectedAt:         user.ConnectedAt,
		ReminderTime:        user.ReminderTime,
		CreatedAt:           user.CreatedAt,
	}
}

// Register 处理用户注册请求
// @Summary 用户注册
// @Description 创建新用户账户并分配邀请码，返回用户信息和认证令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body registerRequest true "注册信息"
// @Success 201 {object} authResponse "注册成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "邮箱已存在"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Nickname: req.Nickname,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, domain.ErrInvalidNickname):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, auth.ErrEmailExists):
			Conflict(c, GetErrorMessage(err))
		case errors.Is(err, auth.ErrInvalidPassword):
			BadRequest(c, err.Error())
		default:
			h.log.Error("failed to register user", zap.Error(err))
			InternalError(c, "注册失败，请稍后重试")
		}
		return
	}

	tokens, err := h.tokens.Issue(c.Request.Context(), user)
	if err != nil {
		h.log.Error("failed to issue tokens", zap.Error(err))
		InternalError(c, "生成令牌失败")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordUserRegistered()
	}
	h.log.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
	)

	Created(c, authResponse{
		User:         toUserResponse(user),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// Login 处理用户登录请求
// @Summary 用户登录
// @Description 使用邮箱和密码进行身份验证，成功后返回认证令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录凭证"
// @Success 200 {object} authResponse "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "邮箱或密码错误"
// @Failure 403 {object} Response "账户已被禁用"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.authService.Login(c.Request.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			Unauthorized(c, MsgInvalidCredentials)
		case errors.Is(err, auth.ErrUserInactive):
			Forbidden(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to login", zap.Error(err))
			InternalError(c, "登录失败，请稍后重试")
		}
		return
	}

	tokens, err := h.tokens.Issue(c.Request.Context(), user)
	if err != nil {
		h.log.Error("failed to issue tokens", zap.Error(err))
		InternalError(c, "生成令牌失败")
		return
	}

	h.log.Info("user logged in",
		zap.String("user_id", user.ID),
	)

	Success(c, authResponse{
		User:         toUserResponse(user),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// Refresh 刷新访问令牌
// @Summary 刷新访问令牌
// @Description 使用刷新令牌轮换出新的令牌对，旧刷新令牌随即失效
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body refreshRequest true "包含刷新令牌的请求"
// @Success 200 {object} auth.TokenResponse "新的令牌对"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "刷新令牌无效或已过期"
// @Failure 500 {object} Response "服务器内部错误"
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	tokens, err := h.tokens.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, jwtpkg.ErrExpiredToken):
			Unauthorized(c, MsgTokenExpired)
		case errors.Is(err, jwtpkg.ErrInvalidToken):
			Unauthorized(c, "刷新令牌无效")
		default:
			h.log.Error("failed to refresh token", zap.Error(err))
			InternalError(c, "刷新令牌失败")
		}
		return
	}

	Success(c, tokens)
}

// Logout 注销刷新令牌
// @Summary 退出登录
// @Description 注销刷新令牌，使其不能再换取新的访问令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body refreshRequest true "包含刷新令牌的请求"
// @Success 200 {object} Response "已退出登录"
// @Failure 400 {object} Response "请求参数错误"
// @Router /v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	// 令牌本身无效时也视为已退出
	_ = h.tokens.Revoke(c.Request.Context(), req.RefreshToken)

	SuccessWithMsg(c, "已退出登录", nil)
}

// Me 获取当前用户信息
// @Summary 获取当前用户信息
// @Description 获取已认证用户的详细信息，需要有效的访问令牌
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} userResponse "用户信息"
// @Failure 401 {object} Response "未认证或令牌无效"
// @Failure 404 {object} Response "用户不存在"
// @Router /v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), userID.(string))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		h.log.Error("failed to get user", zap.Error(err))
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, toUserResponse(user))
}

// UpdateProfile 更新个人资料
// @Summary 更新个人资料
// @Description 更新昵称或每日提醒时间，未提供的字段保持不变
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body updateProfileRequest true "资料字段"
// @Success 200 {object} userResponse "更新后的用户信息"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未认证或令牌无效"
// @Router /v1/auth/profile [patch]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetString("userID")

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, auth.UpdateProfileInput{
		Nickname:     req.Nickname,
		ReminderTime: req.ReminderTime,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidNickname), errors.Is(err, domain.ErrInvalidReminder):
			BadRequest(c, GetErrorMessage(err))
		case errors.Is(err, auth.ErrUserNotFound):
			NotFound(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to update profile", zap.Error(err))
			InternalError(c, MsgInternalError)
		}
		return
	}

	Success(c, toUserResponse(user))
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Description 校验旧密码后设置新密码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body changePasswordRequest true "新旧密码"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "请求参数错误或旧密码不正确"
// @Failure 401 {object} Response "未认证或令牌无效"
// @Router /v1/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := c.GetString("userID")

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			NotFound(c, GetErrorMessage(err))
			return
		}
		BadRequest(c, err.Error())
		return
	}

	SuccessWithMsg(c, "密码修改成功", nil)
}
