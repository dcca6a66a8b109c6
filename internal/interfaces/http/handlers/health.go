package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthFunc 返回各服务状态
type HealthFunc func() map[string]interface{}

// HealthHandler 健康检查
type HealthHandler struct {
	health HealthFunc
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(health HealthFunc) *HealthHandler {
	return &HealthHandler{health: health}
}

// HealthCheck 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 健康检查
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"message": "Telegram file renamer is running",
	}
	if h.health == nil {
		c.JSON(http.StatusOK, body)
		return
	}

	health := h.health()
	body["services"] = health
	if health["container"] != "healthy" {
		body["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
