package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/easayliu/tg-file-renamer/internal/application/container"
	"github.com/easayliu/tg-file-renamer/internal/interfaces/http/handlers"
	"github.com/easayliu/tg-file-renamer/internal/interfaces/http/middleware"
)

// SetupRoutes 设置路由
// webhook 为 nil 时不注册 Telegram Webhook 路由
func SetupRoutes(c *container.ServiceContainer, webhook gin.HandlerFunc) *gin.Engine {
	cfg := c.GetConfig()
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()

	// 全局中间件
	router.Use(middleware.RecoverMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.ErrorHandlerMiddleware())

	// Swagger文档路由
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(c.GetMetrics().Handler()))
	}

	// Telegram Webhook路由
	if webhook != nil {
		router.POST("/telegram/webhook", webhook)
	}

	healthHandler := handlers.NewHealthHandler(c.GetServiceHealth)
	router.GET("/health", healthHandler.HealthCheck)

	var deleter handlers.PromptDeleter
	if client := c.GetTelegramClient(); client != nil {
		deleter = client
	}
	sessionHandler := handlers.NewSessionHandler(c.GetSessionStore(), deleter)
	preferenceHandler := handlers.NewPreferenceHandler(c.GetPreferenceService())

	// API 路由组
	api := router.Group("/api/v1")
	{
		api.GET("/health", healthHandler.HealthCheck)

		sessions := api.Group("/sessions")
		{
			sessions.GET("", sessionHandler.ListSessions)
			sessions.DELETE("/:user_id", sessionHandler.DeleteSession)
		}

		users := api.Group("/users/:user_id")
		{
			users.GET("/preferences", preferenceHandler.GetPreferences)
			users.PUT("/preferences", preferenceHandler.UpdatePreferences)
		}
	}

	return router
}
