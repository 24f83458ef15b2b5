package model

import (
    "strings"
    "time"
)

// Role is the closed set of account roles.  Values are stored lowercase in
// the `users` table and compared case-insensitively everywhere else.
type Role string

const (
    RoleAdmin      Role = "admin"
    RoleUser       Role = "user"
    RoleTechnicien Role = "technicien"
)

// ValidRoles lists every declared role value.  Registration, admin
// provisioning and admin role edits all validate against this same list so
// no entry point can persist a value the schema does not declare.
var ValidRoles = []Role{RoleAdmin, RoleUser, RoleTechnicien}

// ParseRole normalizes a role string and reports whether it names a declared
// role.  An empty string maps to the default RoleUser.
func ParseRole(s string) (Role, bool) {
    s = strings.ToLower(strings.TrimSpace(s))
    if s == "" {
        return RoleUser, true
    }
    for _, r := range ValidRoles {
        if string(r) == s {
            return r, true
        }
    }
    return "", false
}

// RoleNames returns the declared role values as plain strings, used by
// handlers when rejecting an unrecognized role.
func RoleNames() []string {
    out := make([]string, len(ValidRoles))
    for i, r := range ValidRoles {
        out[i] = string(r)
    }
    return out
}

// ApprovalStatus is the tri-state account approval machine.  Accounts start
// pending; an admin moves them to approved or rejected.  Approved and
// rejected are terminal in the supported flow; only a direct admin action
// touches a decided account again.
type ApprovalStatus string

const (
    StatusPending  ApprovalStatus = "pending"
    StatusApproved ApprovalStatus = "approved"
    StatusRejected ApprovalStatus = "rejected"
)

// User mirrors the `users` table.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – display name, trimmed.
//  Email          – unique lowercase email, the login key.
//  PasswordHash   – bcrypt hash; never serialized outward.
//  Role           – declared role value.
//  Status         – approval state (pending/approved/rejected).
//  LastLogin      – set on every successful login (nullable).
//  ResetTokenHash – SHA-256 of the active password-reset token (nullable).
//  ResetExpires   – expiry of the reset token (nullable).
type User struct {
    ID             uint64
    Name           string
    Email          string
    PasswordHash   string
    Role           Role
    Status         ApprovalStatus
    LastLogin      *time.Time
    ResetTokenHash *string
    ResetExpires   *time.Time
    CreatedAt      time.Time
    UpdatedAt      time.Time
}

// IsAdmin reports whether the user carries the admin role, compared
// case-insensitively against the stored value.
func (u User) IsAdmin() bool {
    return strings.EqualFold(string(u.Role), string(RoleAdmin))
}

// Approved reports whether the account has been approved.
func (u User) Approved() bool { return u.Status == StatusApproved }

// Pending reports whether the account still awaits an admin decision.
func (u User) Pending() bool { return u.Status == StatusPending }

// CanAuthenticate is the approval gate: admins always pass, everyone else
// must be approved.  It is evaluated at login and again on every
// authenticated request against a freshly loaded record, so an admin
// revoking approval takes effect before the token expires.
func (u User) CanAuthenticate() bool {
    return u.Approved() || u.IsAdmin()
}
