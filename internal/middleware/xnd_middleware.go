package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/farellandr/payrecon/internal/helpers"
	"github.com/gin-gonic/gin"
)

const xenditCallbackHeader = "x-callback-token"

// XenditCallbackMiddleware admits only callbacks carrying the account's verification token.
func XenditCallbackMiddleware(callbackToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(xenditCallbackHeader)
		if callbackToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(callbackToken)) != 1 {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid callback token.")
			c.Abort()
			return
		}
		c.Next()
	}
}
