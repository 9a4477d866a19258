package public

import (
	"errors"

	"github.com/tiffin-next/internal/http/response"
	"github.com/tiffin-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var cartMutationErrorRules = []mappedHandlerError{
	{target: service.ErrSessionInvalid, code: response.CodeBadRequest, key: "error.cart_session_invalid"},
	{target: service.ErrInvalidSelection, code: response.CodeBadRequest, key: "error.cart_selection_invalid"},
	{target: service.ErrMessExclusivityViolation, code: response.CodeConflict, key: "error.cart_mess_exclusive"},
	{target: service.ErrQuantityCapExceeded, code: response.CodeConflict, key: "error.cart_mess_quantity_cap"},
	{target: service.ErrLineNotFound, code: response.CodeNotFound, key: "error.cart_line_not_found"},
}

var checkoutExtraErrorRules = []mappedHandlerError{
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, key: "error.cart_empty"},
	{target: service.ErrCheckoutNotConfigured, code: response.CodeServiceUnavailable, key: "error.checkout_not_configured"},
	{target: service.ErrCheckoutRejected, code: response.CodeBadGateway, key: "error.checkout_rejected"},
}

func respondCartError(c *gin.Context, err error) {
	respondWithMappedError(c, err, cartMutationErrorRules, response.CodeInternal, "error.cart_operation_failed")
}

func respondCheckoutError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(cartMutationErrorRules, checkoutExtraErrorRules), response.CodeInternal, "error.checkout_failed")
}
