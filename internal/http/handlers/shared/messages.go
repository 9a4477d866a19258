package shared

var messages = map[string]string{
	"error.bad_request":             "invalid request",
	"error.cart_session_invalid":    "cart session is missing or invalid",
	"error.cart_selection_invalid":  "menu selection is missing an item, an outlet, or has a negative price",
	"error.cart_mess_exclusive":     "only one mess item can be in the cart",
	"error.cart_mess_quantity_cap":  "mess items are limited to one per cart",
	"error.cart_line_not_found":     "this item is no longer in your cart",
	"error.cart_empty":              "your cart is empty",
	"error.cart_operation_failed":   "cart operation failed",
	"error.checkout_not_configured": "checkout is not available right now",
	"error.checkout_rejected":       "checkout could not accept this cart",
	"error.checkout_failed":         "checkout handoff failed",
	"error.rate_limited":            "too many requests, please retry later",
	"error.rate_limit_unavailable":  "rate limiter unavailable",
	"error.handoff_list_failed":     "failed to load checkout handoffs",
}

// Message 按消息键获取提示文本，未知键原样返回
func Message(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}
