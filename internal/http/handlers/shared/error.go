package shared

import (
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if id := response.RequestID(c); id != "" {
		return logger.SW(response.RequestIDKey, id)
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	RespondFailure(c, response.Fail(code, msg, err))
}

// RespondFailure 输出网关错误；后端故障记 error，其余记 warn
func RespondFailure(c *gin.Context, f *response.Failure) {
	if f.Err != nil {
		log := RequestLog(c)
		if f.Internal() {
			log.Errorw("handler_error", "code", f.Code, "message", f.Message, "error", f.Err)
		} else {
			log.Warnw("handler_error", "code", f.Code, "message", f.Message, "error", f.Err)
		}
	}
	response.Error(c, f.Code, f.Message)
}
