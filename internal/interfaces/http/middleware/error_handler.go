package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "github.com/easayliu/tg-file-renamer/internal/shared/errors"
	"github.com/easayliu/tg-file-renamer/pkg/logger"
	httputil "github.com/easayliu/tg-file-renamer/pkg/utils/http"
)

// ErrorHandlerMiddleware 统一错误处理中间件
// 捕获handler中设置的错误,自动转换为合适的HTTP响应
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var serviceErr *apperrors.ServiceError
		if errors.As(err, &serviceErr) {
			c.JSON(mapErrorCodeToHTTPStatus(serviceErr.Code), httputil.ErrorResponse{
				Error:   serviceErr.Message,
				Code:    string(serviceErr.Code),
				Details: serviceErr.Details,
			})
			return
		}

		// 未知错误,返回500
		logger.Error("Unhandled request error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, httputil.ErrorResponse{
			Error: err.Error(),
			Code:  string(apperrors.ErrorCodeInternalError),
		})
	}
}

// mapErrorCodeToHTTPStatus 将业务错误码映射到HTTP状态码
func mapErrorCodeToHTTPStatus(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrorCodeInvalidRequest, apperrors.ErrorCodeInvalidFilename:
		return http.StatusBadRequest
	case apperrors.ErrorCodeNotFound, apperrors.ErrorCodeSessionNotFound:
		return http.StatusNotFound
	case apperrors.ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrorCodeConflict, apperrors.ErrorCodeSessionBusy:
		return http.StatusConflict
	case apperrors.ErrorCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperrors.ErrorCodeDownloadFailed, apperrors.ErrorCodeUploadFailed:
		return http.StatusBadGateway
	case apperrors.ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrorCodeTimeout:
		return http.StatusRequestTimeout
	case apperrors.ErrorCodeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// RecoverMiddleware 恢复中间件 - 捕获panic并转换为500错误
func RecoverMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered in HTTP handler",
					"path", c.Request.URL.Path,
					"panic", err,
					"stack", string(debug.Stack()))
				httputil.ErrorWithStatus(c, http.StatusInternalServerError,
					string(apperrors.ErrorCodeInternalError), "Internal server error")
			}
		}()
		c.Next()
	}
}
