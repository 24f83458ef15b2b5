package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/karimdhz/atelier-portal/internal/config"
    "github.com/karimdhz/atelier-portal/internal/model"
)

// userPayload is the outward representation of a user.  The secret hash and
// reset fields are never part of it.
type userPayload struct {
    ID             uint64     `json:"id"`
    Name           string     `json:"name"`
    Email          string     `json:"email"`
    Role           string     `json:"role"`
    Approved       bool       `json:"approved"`
    ApprovalStatus string     `json:"approvalStatus"`
    LastLogin      *time.Time `json:"lastLogin,omitempty"`
    CreatedAt      time.Time  `json:"createdAt"`
}

func toUserPayload(u model.User) userPayload {
    return userPayload{
        ID:             u.ID,
        Name:           u.Name,
        Email:          u.Email,
        Role:           string(u.Role),
        Approved:       u.Approved(),
        ApprovalStatus: string(u.Status),
        LastLogin:      u.LastLogin,
        CreatedAt:      u.CreatedAt,
    }
}

func toUserPayloads(users []model.User) []userPayload {
    out := make([]userPayload, len(users))
    for i, u := range users {
        out[i] = toUserPayload(u)
    }
    return out
}

// fail writes the stable error envelope: a machine-readable code plus a
// human-readable message.
func fail(c echo.Context, status int, code, message string) error {
    return c.JSON(status, echo.Map{"code": code, "message": message})
}

// serverError maps an unexpected failure to a 500.  The underlying detail is
// only echoed in development mode.
func serverError(c echo.Context, cfg config.Config, err error) error {
    body := echo.Map{"code": "INTERNAL_ERROR", "message": "internal server error"}
    if cfg.Dev() && err != nil {
        body["detail"] = err.Error()
    }
    return c.JSON(http.StatusInternalServerError, body)
}
