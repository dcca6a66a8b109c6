package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/easayliu/tg-file-renamer/internal/shared/errors"
)

// userIDParam 解析路径中的 user_id
func userIDParam(c *gin.Context) (int64, error) {
	raw := c.Param("user_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewServiceErrorWithDetails(apperrors.ErrorCodeInvalidRequest,
			"user_id must be a positive integer",
			map[string]interface{}{"user_id": raw})
	}
	return id, nil
}
