package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soaringjerry/psyscore/internal/middleware"
	"github.com/soaringjerry/psyscore/internal/services"
	"github.com/soaringjerry/psyscore/internal/utils"
)

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorBadGateway:
		return http.StatusBadGateway
	case services.ErrorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error","message","code"}. Service errors keep
// their message; anything else is logged and reported as internal.
func writeError(c *gin.Context, err error) {
	locale := middleware.LocaleFrom(c)
	if se, ok := services.AsServiceError(err); ok {
		c.AbortWithStatusJSON(statusFor(se.Code), gin.H{
			"code":    se.Code,
			"error":   utils.T(locale, "error."+string(se.Code)),
			"message": se.Message,
		})
		return
	}
	log.Printf("[api] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"code":  "internal",
		"error": utils.T(locale, "error.internal"),
	})
}

func badRequest(c *gin.Context, msg string) {
	writeError(c, services.NewInvalidError(msg))
}
