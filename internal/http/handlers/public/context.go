package public

import (
	handlershared "github.com/tiffin-next/internal/http/handlers/shared"
	"github.com/tiffin-next/internal/http/response"
	"github.com/tiffin-next/internal/service"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func getSessionID(c *gin.Context) (string, bool) {
	sessionID := handlershared.SessionID(c)
	if !service.ValidSessionID(sessionID) {
		respondError(c, response.CodeBadRequest, "error.cart_session_invalid", nil)
		return "", false
	}
	return sessionID, true
}
