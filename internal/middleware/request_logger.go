package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// リクエストごとの構造化ログ。
func RequestLogger(logger *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := logrus.Fields{
				"method":   c.Request().Method,
				"path":     c.Request().URL.Path,
				"status":   c.Response().Status,
				"duration": time.Since(start).String(),
				"ip":       c.RealIP(),
			}
			if userID, ok := c.Get(CtxUserIDKey).(string); ok && userID != "" {
				fields["user_id"] = userID
			}

			logger.WithFields(fields).Info("request")
			return nil
		}
	}
}
