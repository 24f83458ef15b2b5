package middleware

// identity.go defines the typed request identity attached by the Authenticate
// middleware.  Handlers read it back with CurrentIdentity instead of pulling
// loose claims out of the context.

import (
    "github.com/labstack/echo/v4"

    "github.com/karimdhz/atelier-portal/internal/model"
)

// identityKey is the context key under which the Identity is stored.
const identityKey = "identity"

// Identity is the normalized per-request identity.  It is constructed once
// by Authenticate from a freshly loaded user record and is read-only
// thereafter.
type Identity struct {
    ID       uint64
    Role     model.Role
    Name     string
    Email    string
    Approved bool
}

// IsAdmin reports whether the request is made by an admin.
func (id Identity) IsAdmin() bool {
    return id.Role == model.RoleAdmin
}

func setIdentity(c echo.Context, id Identity) { c.Set(identityKey, id) }

// CurrentIdentity returns the identity attached by Authenticate, if any.
func CurrentIdentity(c echo.Context) (Identity, bool) {
    id, ok := c.Get(identityKey).(Identity)
    return id, ok
}
