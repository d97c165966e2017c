package public

import (
	"errors"

	"github.com/dujiao-next/storefront/internal/apiclient"
	"github.com/dujiao-next/storefront/internal/cart"
	"github.com/dujiao-next/storefront/internal/cartquery"
	handlershared "github.com/dujiao-next/storefront/internal/http/handlers/shared"
	"github.com/dujiao-next/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误码的映射关系。
type mappedHandlerError struct {
	target error
	code   int
}

var cartErrorRules = []mappedHandlerError{
	{target: cart.ErrItemNotFound, code: response.CodeNotFound},
	{target: cart.ErrInvalidQuantity, code: response.CodeBadRequest},
	{target: cart.ErrNotAuthenticated, code: response.CodeUnauthorized},
}

// respondCartError 购物车错误：消息与提示文案一致，错误码按错误类型或后端状态映射
func respondCartError(c *gin.Context, err error, fallback string) {
	msg := cartquery.ErrorMessage(err, fallback)
	for _, rule := range cartErrorRules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, msg, nil)
			return
		}
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		handlershared.RespondFailure(c, response.FailFromUpstream(apiErr.Status, msg, err))
		return
	}
	respondError(c, response.CodeInternal, msg, err)
}
