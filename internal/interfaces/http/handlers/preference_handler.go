package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/easayliu/tg-file-renamer/internal/application/services/preference"
	apperrors "github.com/easayliu/tg-file-renamer/internal/shared/errors"
	httputil "github.com/easayliu/tg-file-renamer/pkg/utils/http"
)

// PreferenceHandler 用户偏好接口
type PreferenceHandler struct {
	prefs *preference.Service
}

// NewPreferenceHandler 创建偏好处理器
func NewPreferenceHandler(prefs *preference.Service) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

// GetPreferences 获取用户偏好
// @Summary 获取用户偏好
// @Tags 用户偏好
// @Produce json
// @Param user_id path int true "Telegram 用户ID"
// @Success 200 {object} httputil.Response{data=entities.UserPreferences}
// @Failure 400 {object} httputil.ErrorResponse
// @Router /users/{user_id}/preferences [get]
func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	prefs, err := h.prefs.Get(c.Request.Context(), userID)
	if err != nil {
		c.Error(apperrors.NewServiceErrorWithCause(apperrors.ErrorCodeInternalError, "failed to load preferences", err))
		return
	}
	httputil.Success(c, prefs)
}

// UpdatePreferences 更新用户偏好，未提供的字段保持不变
// @Summary 更新用户偏好
// @Tags 用户偏好
// @Accept json
// @Produce json
// @Param user_id path int true "Telegram 用户ID"
// @Param request body preference.Patch true "要修改的字段"
// @Success 200 {object} httputil.Response{data=entities.UserPreferences}
// @Failure 400 {object} httputil.ErrorResponse
// @Router /users/{user_id}/preferences [put]
func (h *PreferenceHandler) UpdatePreferences(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	var patch preference.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.Error(apperrors.NewServiceErrorWithCause(apperrors.ErrorCodeInvalidRequest, "invalid request body", err))
		return
	}

	prefs, err := h.prefs.Apply(c.Request.Context(), userID, patch)
	if err != nil {
		c.Error(err)
		return
	}
	httputil.Success(c, prefs)
}
