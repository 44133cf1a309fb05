package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"ai-code-mother/internal/domain/repository"
	"ai-code-mother/internal/interfaces/http/dto"
	"ai-code-mother/pkg/logger"
)

// UserHandler 当前用户的资料读取与修改
type UserHandler struct {
	users repository.UserRepository
}

func NewUserHandler(users repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// GetMe 获取当前用户信息
// @Summary 获取当前用户信息
// @Tags Users
// @Produce json
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/v1/users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToUserResponse(user))
}

// UpdateMe 修改昵称或头像
// @Summary 修改个人资料
// @Tags Users
// @Accept json
// @Produce json
// @Param body body dto.UpdateProfileRequest true "资料"
// @Success 200 {object} dto.Response[dto.UserResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/users/me [patch]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.IsEmpty() {
		dto.BadRequest(c, "nothing to update")
		return
	}

	name, avatar := strings.TrimSpace(req.Name), strings.TrimSpace(req.AvatarURL)
	if err := h.users.UpdateProfile(ctx, user.ID, name, avatar); err != nil {
		logger.Error(ctx, "failed to update profile", err, "user_id", user.ID)
		dto.InternalError(c, "update profile failed")
		return
	}

	updated := *user
	if name != "" {
		updated.Name = name
	}
	if avatar != "" {
		updated.AvatarURL = avatar
	}
	dto.Success(c, dto.ToUserResponse(&updated))
}
