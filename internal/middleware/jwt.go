package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/karimdhz/atelier-portal/internal/repository"
    "github.com/karimdhz/atelier-portal/internal/utils"
)

// Outward machine-readable codes emitted by the auth chain.  Clients key
// their UX on these, so they are stable.
const (
    CodeAuthHeaderMissing = "AUTH_HEADER_MISSING"
    CodeTokenExpired      = "TOKEN_EXPIRED"
    CodeInvalidToken      = "INVALID_TOKEN"
    CodeUserNotFound      = "USER_NOT_FOUND"
    CodeAccountPending    = "ACCOUNT_PENDING"
    CodeAuthFailure       = "AUTH_FAILURE"
)

// Authenticate returns the middleware establishing identity for protected
// routes.  Each step is a hard gate: extract the bearer token, verify it,
// re-fetch the live user by the claims id, apply the approval gate, then
// attach the typed Identity.  The live re-fetch means an admin revoking
// approval takes effect on the next request, not at token expiry.
func Authenticate(secret string, store repository.UserStore) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "code":    CodeAuthHeaderMissing,
                    "message": "authorization header missing or invalid",
                })
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := utils.VerifyAccessToken(secret, raw)
            if err != nil {
                switch {
                case errors.Is(err, utils.ErrTokenExpired):
                    return c.JSON(http.StatusUnauthorized, echo.Map{
                        "code":    CodeTokenExpired,
                        "message": "token expired",
                    })
                default:
                    // Invalid signature or structure.
                    return c.JSON(http.StatusForbidden, echo.Map{
                        "code":    CodeInvalidToken,
                        "message": "invalid token",
                    })
                }
            }

            // Never trust role or approval state from the claims; they may
            // be stale relative to admin actions taken after issuance.
            ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
            defer cancel()
            u, err := store.GetByID(ctx, claims.UserID)
            if errors.Is(err, repository.ErrNotFound) {
                return c.JSON(http.StatusUnauthorized, echo.Map{
                    "code":    CodeUserNotFound,
                    "message": "user not found",
                })
            }
            if err != nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{
                    "code":    CodeAuthFailure,
                    "message": "authentication failed",
                })
            }

            if !u.CanAuthenticate() {
                return c.JSON(http.StatusForbidden, echo.Map{
                    "code":    CodeAccountPending,
                    "message": "account pending approval by an administrator",
                })
            }

            setIdentity(c, Identity{
                ID:       u.ID,
                Role:     u.Role,
                Name:     u.Name,
                Email:    u.Email,
                Approved: u.Approved(),
            })
            return next(c)
        }
    }
}
