package shared

import (
	"errors"

	"github.com/dujiao-next/mall/internal/http/response"
	"github.com/dujiao-next/mall/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorRule 业务错误到接口响应的映射
type ErrorRule struct {
	Target  error
	Code    int
	Message string
}

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get(response.RequestIDKey); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，服务端错误记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil && appErr.IsServerError() {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondMapped 按规则表匹配错误，未命中时按内部错误处理。
func RespondMapped(c *gin.Context, err error, rules ...[]ErrorRule) {
	for _, group := range rules {
		for _, rule := range group {
			if errors.Is(err, rule.Target) {
				RespondError(c, rule.Code, rule.Message, err)
				return
			}
		}
	}
	RespondError(c, response.CodeInternal, "服务器内部错误", err)
}
