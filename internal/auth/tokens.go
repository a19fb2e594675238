package auth

import (
	"context"
	"time"

	"loveletter/backend/internal/auth/jwt"
	"loveletter/backend/internal/config"
	"loveletter/backend/internal/domain"
	"loveletter/backend/internal/storage"
)

// TokenResponse 令牌响应
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenService 组合 JWT 管理器与刷新令牌会话白名单
//
// 刷新令牌签发时登记 jti，刷新与注销都要求会话仍在册，
// 因此改密或登出后旧刷新令牌立即失效。sessions 为 nil 时退化为
// 纯无状态 JWT（内存部署模式）。
type TokenService struct {
	manager  *jwt.Manager
	sessions storage.SessionRepository
}

// NewTokenService 创建令牌服务
func NewTokenService(cfg *config.JWTConfig, sessions storage.SessionRepository) *TokenService {
	manager := jwt.NewManager(cfg.Secret, cfg.Issuer, cfg.AccessExpiry, cfg.RefreshExpiry)
	return &TokenService{manager: manager, sessions: sessions}
}

// Manager 暴露底层 JWT 管理器，供中间件与 WebSocket 握手校验访问令牌
func (t *TokenService) Manager() *jwt.Manager {
	return t.manager
}

// Issue 为用户签发令牌对并登记刷新会话
func (t *TokenService) Issue(ctx context.Context, user *domain.User) (*TokenResponse, error) {
	pair, err := t.manager.GenerateTokenPair(user.ID, user.Email, user.Nickname)
	if err != nil {
		return nil, err
	}

	if t.sessions != nil {
		expiresAt := time.Now().Add(t.manager.RefreshExpiry())
		if err := t.sessions.SaveSession(ctx, user.ID, pair.RefreshTokenID, expiresAt); err != nil {
			return nil, err
		}
	}

	return &TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Refresh 校验刷新令牌并轮换为新令牌对
//
// 旧会话删除、新会话登记，同一刷新令牌不能用第二次。
func (t *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	claims, err := t.manager.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}

	if t.sessions != nil {
		ok, err := t.sessions.SessionExists(ctx, claims.UserID, claims.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, jwt.ErrInvalidToken
		}
		if err := t.sessions.DeleteSession(ctx, claims.UserID, claims.ID); err != nil {
			return nil, err
		}
	}

	return t.Issue(ctx, &domain.User{
		ID:       claims.UserID,
		Email:    claims.Email,
		Nickname: claims.Nickname,
	})
}

// Revoke 注销刷新令牌
func (t *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := t.manager.ValidateToken(refreshToken)
	if err != nil {
		return err
	}
	if t.sessions == nil {
		return nil
	}
	return t.sessions.DeleteSession(ctx, claims.UserID, claims.ID)
}
