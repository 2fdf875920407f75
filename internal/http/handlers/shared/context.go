package shared

import (
	"github.com/dujiao-next/mall/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入的上下文键
const (
	ContextUserIDKey = "user_id"
	ContextAdminKey  = "is_admin"
)

// GetUserID 从上下文读取当前用户 ID，缺失时直接写入未登录响应。
func GetUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(ContextUserIDKey)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "未登录", nil)
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		if v == 0 {
			RespondError(c, response.CodeUnauthorized, "未登录", nil)
			return 0, false
		}
		return v, true
	case float64:
		if v <= 0 {
			RespondError(c, response.CodeUnauthorized, "未登录", nil)
			return 0, false
		}
		return uint(v), true
	default:
		RespondError(c, response.CodeInternal, "用户身份类型错误", nil)
		return 0, false
	}
}
