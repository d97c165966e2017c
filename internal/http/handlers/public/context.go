package public

import (
	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func getProductID(c *gin.Context) (uint, bool) {
	return handlershared.ParseUintParam(c, "product_id")
}

func getItemID(c *gin.Context) (string, bool) {
	return handlershared.StringParam(c, "item_id")
}
