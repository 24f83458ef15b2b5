// Package repository persists and loads user accounts.  Sentinel errors
// defined here let handlers distinguish failure scenarios without inspecting
// driver-specific error strings at the boundary.
package repository

import "errors"

// ErrEmailExists is returned when an insert or update collides with the
// unique email index.  Handlers translate this into EMAIL_EXISTS or
// DUPLICATE_EMAIL responses.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when no user matches the given id or email.
var ErrNotFound = errors.New("user not found")
