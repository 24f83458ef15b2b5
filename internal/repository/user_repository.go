package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/karimdhz/atelier-portal/internal/model"
	"github.com/karimdhz/atelier-portal/internal/utils"
)

// UserStore is the credential store consulted by handlers and by the auth
// middleware on every request.  All password writes flow through the bcrypt
// hasher inside the implementations; no caller ever persists a plaintext
// secret.
type UserStore interface {
	Create(ctx context.Context, name, email, password string, role model.Role, status model.ApprovalStatus, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	ListPending(ctx context.Context) ([]model.User, error)
	SetStatus(ctx context.Context, id uint64, status model.ApprovalStatus) (model.User, error)
	UpdateProfile(ctx context.Context, id uint64, name, email string, role model.Role) error
	UpdatePassword(ctx context.Context, id uint64, password string, cost int) error
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error
	SetResetToken(ctx context.Context, id uint64, tokenHash string, expires time.Time) error
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, id uint64) error
}

const userColumns = "id,name,email,password_hash,role,approval_status,last_login,reset_token_hash,reset_expires,created_at,updated_at"

// UserRepo is the MySQL implementation of UserStore over the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the password and inserts the user, returning its id.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, role model.Role, status model.ApprovalStatus, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, approval_status) VALUES (?,?,?,?,?)",
		strings.TrimSpace(name), email, hash, string(role), string(status))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns every registered user ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	return r.queryMany(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at")
}

// ListPending returns users still awaiting an admin decision.
func (r *UserRepo) ListPending(ctx context.Context) ([]model.User, error) {
	return r.queryMany(ctx,
		"SELECT "+userColumns+" FROM users WHERE approval_status=? ORDER BY created_at",
		string(model.StatusPending))
}

// SetStatus drives the approval machine and returns the updated record.
// Setting an account to its current status is a no-op success, so
// re-approving an approved account is idempotent.
func (r *UserRepo) SetStatus(ctx context.Context, id uint64, status model.ApprovalStatus) (model.User, error) {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET approval_status=? WHERE id=?", string(status), id); err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// UpdateProfile writes name, email and role.  Concurrent edits to the same
// account race with last-write-wins semantics; there is no version column.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, email string, role model.Role) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, role=? WHERE id=?",
		strings.TrimSpace(name), email, string(role), id)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return requireRow(res)
}

// UpdatePassword hashes the new password and clears any outstanding reset
// token in the same statement.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, reset_token_hash=NULL, reset_expires=NULL WHERE id=?",
		hash, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// TouchLastLogin records a successful authentication.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login=? WHERE id=?", at.UTC(), id)
	return err
}

// SetResetToken stores the hash and expiry of a freshly issued reset token,
// replacing any previous one.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, tokenHash string, expires time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token_hash=?, reset_expires=? WHERE id=?",
		tokenHash, expires.UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// PurgeExpiredResetTokens clears reset tokens whose expiry has passed and
// returns how many rows were touched.
func (r *UserRepo) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token_hash=NULL, reset_expires=NULL WHERE reset_expires IS NOT NULL AND reset_expires < ?",
		now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes the user immediately; there is no soft delete.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	var role, status string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &status,
		&u.LastLogin, &u.ResetTokenHash, &u.ResetExpires, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	u.Status = model.ApprovalStatus(status)
	return u, nil
}

func (r *UserRepo) queryMany(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		var role, status string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &status,
			&u.LastLogin, &u.ResetTokenHash, &u.ResetExpires, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role = model.Role(role)
		u.Status = model.ApprovalStatus(status)
		out = append(out, u)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicate detects MySQL error 1062 (duplicate entry on a unique index).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
