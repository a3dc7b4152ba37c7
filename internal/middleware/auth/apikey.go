package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// apikeyScheme is the Authorization scheme the bank gateway uses.
const apikeyScheme = "Apikey "

// APIKeyConfig holds the configuration for the webhook API key middleware.
type APIKeyConfig struct {
	// Key is the shared secret, injected from configuration.
	Key    string
	Logger *zap.Logger
}

// APIKeyMiddleware authenticates the bank gateway on the webhook route. The
// comparison is constant-time; repeated failures log at warn as a probing
// signal.
func APIKeyMiddleware(config APIKeyConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				config.Logger.Warn("Webhook request without authorization header",
					zap.String("remote_ip", c.RealIP()))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Authorization header required",
					"code":  "MISSING_AUTH_HEADER",
				})
			}

			if !strings.HasPrefix(authHeader, apikeyScheme) {
				config.Logger.Warn("Webhook request with malformed authorization header",
					zap.String("remote_ip", c.RealIP()))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid authorization format. Expected: Apikey <key>",
					"code":  "INVALID_AUTH_FORMAT",
				})
			}

			incoming := strings.TrimSpace(authHeader[len(apikeyScheme):])
			if subtle.ConstantTimeCompare([]byte(incoming), []byte(config.Key)) != 1 {
				config.Logger.Warn("Webhook request with invalid API key",
					zap.String("remote_ip", c.RealIP()))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid API key",
					"code":  "INVALID_API_KEY",
				})
			}

			return next(c)
		}
	}
}
