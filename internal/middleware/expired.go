package middleware

import (
    "errors"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/karimdhz/atelier-portal/internal/utils"
)

// StripExpiredToken removes an expired Authorization header before passing
// control onward, so a downstream optional-auth route treats the request as
// anonymous instead of erroring.  It only sanitizes; it never rejects.
func StripExpiredToken(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if strings.HasPrefix(auth, "Bearer ") {
                raw := strings.TrimPrefix(auth, "Bearer ")
                if _, err := utils.VerifyAccessToken(secret, raw); errors.Is(err, utils.ErrTokenExpired) {
                    c.Request().Header.Del("Authorization")
                }
            }
            return next(c)
        }
    }
}
