package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "regexp"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/karimdhz/atelier-portal/internal/config"
    "github.com/karimdhz/atelier-portal/internal/email"
    "github.com/karimdhz/atelier-portal/internal/middleware"
    "github.com/karimdhz/atelier-portal/internal/model"
    "github.com/karimdhz/atelier-portal/internal/queue"
    "github.com/karimdhz/atelier-portal/internal/repository"
    "github.com/karimdhz/atelier-portal/internal/utils"
)

// emailPattern matches the address shape accepted at registration.
var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

const minPasswordLen = 6

// resetTokenTTL bounds how long a mailed reset token stays valid.
const resetTokenTTL = time.Hour

// AuthHandler bundles dependencies for registration, login and the
// password-recovery endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  repository.UserStore
    Mailer *email.Mailer
}

func NewAuthHandler(cfg config.Config, users repository.UserStore, mailer *email.Mailer) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: users, Mailer: mailer}
}

// ----- DTOs -----

type registerReq struct {
    Name     string `json:"name"`
    Email    string `json:"email"`
    Password string `json:"password"`
    Role     string `json:"role"`
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type emailReq struct {
    Email string `json:"email"`
}
type resetReq struct {
    Email       string `json:"email"`
    Token       string `json:"token"`
    NewPassword string `json:"newPassword"`
}

type loginResp struct {
    Token string      `json:"token"`
    User  userPayload `json:"user"`
}

// Register creates a new account in the pending state.  Every new account
// waits for an admin decision before it can log in.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if !emailPattern.MatchString(req.Email) {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "a valid email is required")
    }
    if len(req.Password) < minPasswordLen {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "password must be at least 6 characters")
    }
    role, ok := model.ParseRole(req.Role)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{
            "code":       "INVALID_ROLE",
            "message":    "invalid role",
            "validRoles": model.RoleNames(),
        })
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    id, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, role, model.StatusPending, h.Cfg.BcryptCost)
    if err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return fail(c, http.StatusConflict, "EMAIL_EXISTS", "email already in use")
        }
        return serverError(c, h.Cfg, err)
    }

    publishAccountEvent(queue.AccountEvent{
        Type:   queue.EventUserRegistered,
        UserID: id,
        Name:   strings.TrimSpace(req.Name),
        Email:  req.Email,
        Role:   string(role),
        Status: string(model.StatusPending),
    })

    return c.JSON(http.StatusCreated, echo.Map{
        "message": "registration successful; the account awaits admin approval",
        "data": echo.Map{
            "userId":           id,
            "name":             strings.TrimSpace(req.Name),
            "email":            req.Email,
            "role":             string(role),
            "requiresApproval": true,
            "approvalStatus":   string(model.StatusPending),
        },
    })
}

// Login validates credentials and issues a short-lived bearer token.  The
// approval gate runs before the password check; admins bypass the gate but
// still pay the bcrypt comparison.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "email and password are required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusUnauthorized, "USER_NOT_FOUND", "incorrect credentials")
    }
    if err != nil {
        return serverError(c, h.Cfg, err)
    }

    if !u.CanAuthenticate() {
        return fail(c, http.StatusForbidden, middleware.CodeAccountPending,
            "account pending approval by an administrator")
    }

    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return fail(c, http.StatusUnauthorized, "INVALID_PASSWORD", "incorrect credentials")
    }

    token, err := utils.NewAccessToken(h.Cfg.JWTSecret, u, time.Duration(h.Cfg.TokenTTLMin)*time.Minute)
    if err != nil {
        return serverError(c, h.Cfg, err)
    }

    now := time.Now().UTC()
    if err := h.Users.TouchLastLogin(ctx, u.ID, now); err != nil {
        return serverError(c, h.Cfg, err)
    }
    u.LastLogin = &now

    return c.JSON(http.StatusOK, loginResp{Token: token.Token, User: toUserPayload(u)})
}

// Profile returns the caller's own record, never including the secret.
func (h *AuthHandler) Profile(c echo.Context) error {
    id, _ := middleware.CurrentIdentity(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByID(ctx, id.ID)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
    }
    if err != nil {
        return serverError(c, h.Cfg, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"user": toUserPayload(u)})
}

// List returns every account.  Admin only; enforced by route middleware.
func (h *AuthHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    users, err := h.Users.List(ctx)
    if err != nil {
        return serverError(c, h.Cfg, err)
    }
    return c.JSON(http.StatusOK, toUserPayloads(users))
}

// RequestPasswordReset issues a reset token, persists only its hash and
// mails the raw value.  Delivery failures are logged, never surfaced.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
    var req emailReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "email is required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "no account with this email")
    }
    if err != nil {
        return serverError(c, h.Cfg, err)
    }

    raw, err := utils.NewResetToken()
    if err != nil {
        return serverError(c, h.Cfg, err)
    }
    if err := h.Users.SetResetToken(ctx, u.ID, utils.HashResetToken(raw), time.Now().UTC().Add(resetTokenTTL)); err != nil {
        return serverError(c, h.Cfg, err)
    }

    go func(to, token string) {
        if err := h.Mailer.SendResetToken(to, token); err != nil {
            log.Printf("mail: reset token delivery to %s failed: %v", to, err)
        }
    }(u.Email, raw)

    return c.JSON(http.StatusOK, echo.Map{"message": "a reset token has been sent"})
}

// VerifyAndResetPassword consumes a reset token and writes the new password
// through the bcrypt hasher.  This is the only way a password changes
// outside an authenticated PUT.
func (h *AuthHandler) VerifyAndResetPassword(c echo.Context) error {
    var req resetReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
    }
    if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Token) == "" {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "email and token are required")
    }
    if len(req.NewPassword) < minPasswordLen {
        return fail(c, http.StatusBadRequest, "PASSWORD_TOO_SHORT", "password must be at least 6 characters")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "no account with this email")
    }
    if err != nil {
        return serverError(c, h.Cfg, err)
    }

    if u.ResetTokenHash == nil || *u.ResetTokenHash != utils.HashResetToken(strings.TrimSpace(req.Token)) {
        return fail(c, http.StatusBadRequest, "INVALID_RESET_TOKEN", "reset token is invalid")
    }
    if u.ResetExpires == nil || u.ResetExpires.Before(time.Now().UTC()) {
        return fail(c, http.StatusBadRequest, "RESET_TOKEN_EXPIRED", "reset token has expired")
    }

    if err := h.Users.UpdatePassword(ctx, u.ID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
        return serverError(c, h.Cfg, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// VerifyEmail reports whether an account exists for the given address.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
    var req emailReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "email is required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if _, err := h.Users.GetByEmail(ctx, req.Email); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "no account with this email")
        }
        return serverError(c, h.Cfg, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}
