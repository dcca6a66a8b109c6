package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/easayliu/tg-file-renamer/internal/domain/rename"
	apperrors "github.com/easayliu/tg-file-renamer/internal/shared/errors"
	"github.com/easayliu/tg-file-renamer/pkg/logger"
	httputil "github.com/easayliu/tg-file-renamer/pkg/utils/http"
)

// PromptDeleter 删除会话提示消息
type PromptDeleter interface {
	DeleteMessage(ctx context.Context, ref rename.MessageRef) error
}

// SessionView 会话的 HTTP 表示
type SessionView struct {
	rename.Session
	RemainingSeconds int64 `json:"remaining_seconds"`
}

// SessionListResponse 会话列表
type SessionListResponse struct {
	Count    int           `json:"count"`
	Sessions []SessionView `json:"sessions"`
}

// SessionHandler 会话查询和取消 - 纯协议转换层
type SessionHandler struct {
	store   *rename.SessionStore
	deleter PromptDeleter
	now     func() time.Time
}

// NewSessionHandler deleter 可为 nil
func NewSessionHandler(store *rename.SessionStore, deleter PromptDeleter) *SessionHandler {
	return &SessionHandler{
		store:   store,
		deleter: deleter,
		now:     time.Now,
	}
}

// ListSessions 列出所有会话
// @Summary 列出重命名会话
// @Description 返回当前内存中所有等待文件名或处理中的会话
// @Tags 会话
// @Produce json
// @Success 200 {object} SessionListResponse
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	now := h.now()
	sessions := h.store.Snapshot()

	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		remaining := int64(0)
		if s.State == rename.StateAwaitingFilename && s.ExpiresAt.After(now) {
			remaining = int64(s.ExpiresAt.Sub(now).Seconds())
		}
		views = append(views, SessionView{Session: s, RemainingSeconds: remaining})
	}

	httputil.Success(c, SessionListResponse{Count: len(views), Sessions: views})
}

// DeleteSession 取消用户的等待中会话
// @Summary 取消重命名会话
// @Description 取消等待文件名的会话，处理中的会话不能取消
// @Tags 会话
// @Produce json
// @Param user_id path int true "Telegram 用户ID"
// @Success 200 {object} httputil.Response
// @Failure 400 {object} httputil.ErrorResponse
// @Failure 404 {object} httputil.ErrorResponse
// @Failure 409 {object} httputil.ErrorResponse
// @Router /sessions/{user_id} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		c.Error(err)
		return
	}

	session, err := h.store.CancelIfAwaiting(userID)
	switch {
	case errors.Is(err, rename.ErrSessionBusy):
		c.Error(apperrors.NewServiceError(apperrors.ErrorCodeSessionBusy, "session is being processed"))
		return
	case err != nil:
		c.Error(apperrors.NewServiceError(apperrors.ErrorCodeSessionNotFound, "no pending session for user"))
		return
	}

	if h.deleter != nil {
		if err := h.deleter.DeleteMessage(c.Request.Context(), session.Prompt); err != nil {
			logger.Debug("Failed to delete prompt message", "error", err)
		}
	}
	logger.Info("Rename session cancelled via API", "userID", userID, "sessionID", session.ID)

	httputil.Success(c, gin.H{
		"message":    "Session cancelled",
		"session_id": session.ID,
	})
}
