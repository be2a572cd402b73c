package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/soaringjerry/psyscore/internal/utils"
)

const localeKey = "psyscore.locale"

// Locale resolves the response language from ?lang= or Accept-Language.
func Locale() gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := utils.DetermineLocale(c.Query("lang"), c.GetHeader("Accept-Language"), utils.SupportedLocales, utils.SupportedLocales[0])
		c.Set(localeKey, locale)
		c.Header("Content-Language", locale)
		c.Next()
	}
}

// LocaleFrom returns the locale stored by Locale, defaulting to Italian.
func LocaleFrom(c *gin.Context) string {
	if v := c.GetString(localeKey); v != "" {
		return v
	}
	return utils.SupportedLocales[0]
}
