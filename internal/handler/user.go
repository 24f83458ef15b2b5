package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/karimdhz/atelier-portal/internal/config"
    "github.com/karimdhz/atelier-portal/internal/email"
    "github.com/karimdhz/atelier-portal/internal/middleware"
    "github.com/karimdhz/atelier-portal/internal/model"
    "github.com/karimdhz/atelier-portal/internal/queue"
    "github.com/karimdhz/atelier-portal/internal/repository"
)

// UserHandler implements account administration: provisioning, the approval
// state machine, listing, edits and deletion.
type UserHandler struct {
    Cfg    config.Config
    Users  repository.UserStore
    Mailer *email.Mailer
}

func NewUserHandler(cfg config.Config, users repository.UserStore, mailer *email.Mailer) *UserHandler {
    return &UserHandler{Cfg: cfg, Users: users, Mailer: mailer}
}

type updateReq struct {
    Name     string `json:"name"`
    Email    string `json:"email"`
    Password string `json:"password"`
    Role     string `json:"role"`
}

// Create is the provisioning variant of registration: an account created
// with the admin role starts approved, everyone else starts pending.
func (h *UserHandler) Create(c echo.Context) error {
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

    status := model.StatusPending
    if role == model.RoleAdmin {
        status = model.StatusApproved
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    id, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, role, status, h.Cfg.BcryptCost)
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
        Status: string(status),
    })

    msg := "user created, awaiting approval"
    if status == model.StatusApproved {
        msg = "admin user created"
    }
    u, err := h.Users.GetByID(ctx, id)
    if err != nil {
        return serverError(c, h.Cfg, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"message": msg, "user": toUserPayload(u)})
}

// Approve moves an account to the approved state.  Approving an already
// approved account is a no-op success.
func (h *UserHandler) Approve(c echo.Context) error {
    return h.decide(c, model.StatusApproved, queue.EventUserApproved, "user approved")
}

// Reject moves an account to the rejected state.
func (h *UserHandler) Reject(c echo.Context) error {
    return h.decide(c, model.StatusRejected, queue.EventUserRejected, "user rejected")
}

func (h *UserHandler) decide(c echo.Context, status model.ApprovalStatus, eventType, msg string) error {
    id, ok := paramID(c)
    if !ok {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.SetStatus(ctx, id, status)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
    }
    if err != nil {
        return serverError(c, h.Cfg, err)
    }

    publishAccountEvent(queue.AccountEvent{
        Type:   eventType,
        UserID: u.ID,
        Name:   u.Name,
        Email:  u.Email,
        Role:   string(u.Role),
        Status: string(u.Status),
    })

    return c.JSON(http.StatusOK, echo.Map{"message": msg, "user": toUserPayload(u)})
}

// Pending lists accounts still awaiting a decision.
func (h *UserHandler) Pending(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    users, err := h.Users.ListPending(ctx)
    if err != nil {
        return serverError(c, h.Cfg, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"count": len(users), "data": toUserPayloads(users)})
}

// List returns every account.
func (h *UserHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    users, err := h.Users.List(ctx)
    if err != nil {
        return serverError(c, h.Cfg, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"count": len(users), "data": toUserPayloads(users)})
}

// Get returns a single account by id.
func (h *UserHandler) Get(c echo.Context) error {
    id, ok := paramID(c)
    if !ok {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByID(ctx, id)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
    }
    if err != nil {
        return serverError(c, h.Cfg, err)
    }
    return c.JSON(http.StatusOK, toUserPayload(u))
}

// Update edits an account.  A user may edit their own name, email and
// password; only admins touch roles or other people's accounts.
func (h *UserHandler) Update(c echo.Context) error {
    targetID, ok := paramID(c)
    if !ok {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
    }
    caller, _ := middleware.CurrentIdentity(c)

    var req updateReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
    }

    isSelf := caller.ID == targetID
    if !caller.IsAdmin() && !isSelf {
        return fail(c, http.StatusForbidden, "UNAUTHORIZED_UPDATE_ATTEMPT", "action not allowed")
    }
    if req.Role != "" && !caller.IsAdmin() {
        return fail(c, http.StatusForbidden, "ROLE_MODIFICATION_FORBIDDEN", "only administrators can modify roles")
    }
    if req.Password != "" && len(req.Password) < minPasswordLen {
        return fail(c, http.StatusBadRequest, "PASSWORD_TOO_SHORT", "password must be at least 6 characters")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByID(ctx, targetID)
    if errors.Is(err, repository.ErrNotFound) {
        return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
    }
    if err != nil {
        return serverError(c, h.Cfg, err)
    }

    name := u.Name
    if strings.TrimSpace(req.Name) != "" {
        name = strings.TrimSpace(req.Name)
    }
    addr := u.Email
    if strings.TrimSpace(req.Email) != "" {
        addr = strings.ToLower(strings.TrimSpace(req.Email))
        if !emailPattern.MatchString(addr) {
            return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "a valid email is required")
        }
    }
    role := u.Role
    if req.Role != "" {
        newRole, ok := model.ParseRole(req.Role)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{
                "code":       "INVALID_ROLE",
                "message":    "invalid role",
                "validRoles": model.RoleNames(),
            })
        }
        role = newRole
    }

    if err := h.Users.UpdateProfile(ctx, targetID, name, addr, role); err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return fail(c, http.StatusConflict, "DUPLICATE_EMAIL", "email already in use")
        }
        return serverError(c, h.Cfg, err)
    }
    if req.Password != "" {
        if err := h.Users.UpdatePassword(ctx, targetID, req.Password, h.Cfg.BcryptCost); err != nil {
            return serverError(c, h.Cfg, err)
        }
    }

    updated, err := h.Users.GetByID(ctx, targetID)
    if err != nil {
        return serverError(c, h.Cfg, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"data": toUserPayload(updated)})
}

// Delete removes an account.  Self-deletion is allowed; otherwise admin
// only.  Deletion is immediate and unrecoverable.
func (h *UserHandler) Delete(c echo.Context) error {
    targetID, ok := paramID(c)
    if !ok {
        return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user id")
    }
    caller, _ := middleware.CurrentIdentity(c)
    if !caller.IsAdmin() && caller.ID != targetID {
        return fail(c, http.StatusForbidden, "UNAUTHORIZED", "deletion not allowed")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Users.Delete(ctx, targetID); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
        }
        return serverError(c, h.Cfg, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "user deleted", "userId": targetID})
}

func paramID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    return id, err == nil && id > 0
}
