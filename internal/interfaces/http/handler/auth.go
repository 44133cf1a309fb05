// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ai-code-mother/internal/config"
	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/repository"
	"ai-code-mother/internal/interfaces/http/dto"
	"ai-code-mother/pkg/logger"
	"ai-code-mother/pkg/utils"
)

const refreshCookiePath = "/api/v1/auth/refresh"

// AuthHandler 认证处理器
type AuthHandler struct {
	jwtManager *utils.JWTManager
	accessTTL  time.Duration
	refreshTTL time.Duration
	userRepo   repository.UserRepository
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg config.JWTConfig, userRepo repository.UserRepository) *AuthHandler {
	h := &AuthHandler{
		jwtManager: utils.NewJWTManager(cfg.Secret, cfg.Issuer),
		accessTTL:  cfg.Expiration,
		refreshTTL: cfg.RefreshExpiration,
		userRepo:   userRepo,
	}
	if h.accessTTL <= 0 {
		h.accessTTL = 15 * time.Minute
	}
	if h.refreshTTL <= 0 {
		h.refreshTTL = 7 * 24 * time.Hour
	}
	return h
}

// Register 注册
// @Summary 用户注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "注册信息"
// @Success 201 {object} dto.Response[dto.AuthResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := h.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		logger.Error(ctx, "failed to check email existence", err)
		dto.InternalError(c, "registration failed")
		return
	}
	if exists {
		dto.Conflict(c, "email already registered")
		return
	}

	user := entity.NewUser(email, req.Name)
	if err := user.SetPassword(req.Password); err != nil {
		logger.Error(ctx, "failed to hash password", err)
		dto.InternalError(c, "registration failed")
		return
	}
	if err := h.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			dto.Conflict(c, "email already registered")
			return
		}
		logger.Error(ctx, "failed to create user", err)
		dto.InternalError(c, "registration failed")
		return
	}

	resp, ok := h.issue(c, user)
	if !ok {
		return
	}
	dto.Created(c, resp)
}

// Login 登录
// @Summary 用户登录
// @Description 验证邮箱密码并返回双 Token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.Response[dto.AuthResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	user, err := h.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		logger.Error(ctx, "failed to get user", err)
		dto.InternalError(c, "login failed")
		return
	}
	if user == nil || !user.CheckPassword(req.Password) {
		dto.Unauthorized(c, "invalid email or password")
		return
	}

	if err := h.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.Warn(ctx, "failed to update last login time", "error", err, "user_id", user.ID)
	}

	resp, ok := h.issue(c, user)
	if !ok {
		return
	}
	dto.Success(c, resp)
}

// RefreshToken 刷新 AccessToken
// @Summary 刷新 Token
// @Description 优先读取 refresh_token Cookie，其次读取请求体
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RefreshRequest false "刷新请求"
// @Success 200 {object} dto.Response[dto.AuthResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	refreshToken, err := c.Cookie("refresh_token")
	if err != nil || refreshToken == "" {
		var req dto.RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			dto.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
		refreshToken = req.RefreshToken
	}
	if refreshToken == "" {
		dto.Unauthorized(c, "missing refresh token")
		return
	}

	claims, err := h.jwtManager.ParseToken(refreshToken)
	if err != nil || claims.Type != utils.TokenTypeRefresh {
		dto.Unauthorized(c, "invalid refresh token")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		dto.Unauthorized(c, "invalid refresh token")
		return
	}

	accessToken, err := h.jwtManager.GenerateToken(userID, claims.Role, utils.TokenTypeAccess, h.accessTTL)
	if err != nil {
		dto.InternalError(c, "failed to generate access token")
		return
	}

	dto.Success(c, &dto.AuthResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(h.accessTTL.Seconds()),
	})
}

// Logout 登出
// @Summary 登出
// @Tags Auth
// @Success 200 {object} dto.Response[any]
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie("refresh_token", "", -1, refreshCookiePath, "", false, true)
	dto.Success(c, gin.H{"message": "logged out"})
}

// issue 签发双 Token，RefreshToken 同时写入 Cookie 与响应体
func (h *AuthHandler) issue(c *gin.Context, user *entity.User) (*dto.AuthResponse, bool) {
	tokens, err := h.jwtManager.GenerateTokenPair(user.ID, string(user.Role), h.accessTTL, h.refreshTTL)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to generate tokens", err, "user_id", user.ID)
		dto.InternalError(c, "failed to generate tokens")
		return nil, false
	}

	c.SetCookie("refresh_token", tokens.RefreshToken, int(h.refreshTTL.Seconds()), refreshCookiePath, "", false, true)
	return &dto.AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    int(h.accessTTL.Seconds()),
		User:         dto.ToUserResponse(user),
	}, true
}
