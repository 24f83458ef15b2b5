package middleware // middleware provides shared request processing for handlers

import (
    "fmt"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
)

// RequireRole returns a middleware that enforces that the authenticated
// identity holds one of the given roles.  Matching is case-insensitive; the
// stored role values come from the closed enum validated at write time, so
// normalization never masks an undeclared value.  It assumes Authenticate
// already ran and attached the Identity.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[strings.ToLower(strings.TrimSpace(r))] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, ok := CurrentIdentity(c)
            if !ok || !allowed[strings.ToLower(strings.TrimSpace(string(id.Role)))] {
                // The role list in the message is informational for the
                // client, not a security boundary.
                return c.JSON(http.StatusForbidden, echo.Map{
                    "code":    "FORBIDDEN",
                    "message": fmt.Sprintf("access denied; required roles: %s", strings.Join(roles, ", ")),
                })
            }
            return next(c)
        }
    }
}
