package handler_test

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/karimdhz/atelier-portal/internal/model"
	"github.com/karimdhz/atelier-portal/internal/utils"
)

func itoa(id uint64) string { return strconv.FormatUint(id, 10) }

func TestCreateUserAdminStartsApproved(t *testing.T) {
	e, store := newApp(t)

	rec := do(e, http.MethodPost, "/users/", "", map[string]string{
		"name": "Root", "email": "root@b.com", "password": "secret1", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "approved", user["approvalStatus"])

	rec = do(e, http.MethodPost, "/users/", "", map[string]string{
		"name": "Tech", "email": "tech@b.com", "password": "secret1", "role": "technicien",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	user = decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, "pending", user["approvalStatus"])
	assert.Equal(t, "technicien", user["role"])

	u, err := store.GetByEmail(context.Background(), "root@b.com")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, u.Status)
}

func TestApproveIsIdempotent(t *testing.T) {
	e, store := newApp(t)
	seed(t, store, "root@b.com", "secret1", model.RoleAdmin, model.StatusApproved)
	u := seed(t, store, "a@b.com", "secret1", model.RoleUser, model.StatusPending)
	adminToken := loginToken(t, e, "root@b.com", "secret1")

	for i := 0; i < 2; i++ {
		rec := do(e, http.MethodPatch, "/users/"+itoa(u.ID)+"/approve", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, "pass %d: %s", i, rec.Body.String())
		user := decode(t, rec)["user"].(map[string]any)
		assert.Equal(t, "approved", user["approvalStatus"])
	}
}

func TestApproveUnknownUser(t *testing.T) {
	e, store := newApp(t)
	seed(t, store, "root@b.com", "secret1", model.RoleAdmin, model.StatusApproved)
	adminToken := loginToken(t, e, "root@b.com", "secret1")

	rec := do(e, http.MethodPatch, "/users/9999/approve", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "USER_NOT_FOUND", decode(t, rec)["code"])
}

func TestApprovalMachineIsAdminOnly(t *testing.T) {
	e, store := newApp(t)
	seed(t, store, "a@b.com", "secret1", model.RoleUser, model.StatusApproved)
	target := seed(t, store, "b@b.com", "secret1", model.RoleUser, model.StatusPending)
	userToken := loginToken(t, e, "a@b.com", "secret1")

	for _, path := range []string{
		"/users/" + itoa(target.ID) + "/approve",
		"/users/" + itoa(target.ID) + "/reject",
	} {
		rec := do(e, http.MethodPatch, path, userToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Equal(t, "FORBIDDEN", decode(t, rec)["code"], path)
	}

	after, err := store.GetByID(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, after.Status)
}

func TestPendingList(t *testing.T) {
	e, store := newApp(t)
	seed(t, store, "root@b.com", "secret1", model.RoleAdmin, model.StatusApproved)
	seed(t, store, "a@b.com", "secret1", model.RoleUser, model.StatusPending)
	seed(t, store, "b@b.com", "secret1", model.RoleUser, model.StatusApproved)
	seed(t, store, "c@b.com", "secret1", model.RoleUser, model.StatusRejected)
	adminToken := loginToken(t, e, "root@b.com", "secret1")

	rec := do(e, http.MethodGet, "/users/pending", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["count"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "a@b.com", data[0].(map[string]any)["email"])
}

func TestUpdateOwnProfile(t *testing.T) {
	e, store := newApp(t)
	u := seed(t, store, "a@b.com", "secret1", model.RoleUser, model.StatusApproved)
	token := loginToken(t, e, "a@b.com", "secret1")

	rec := do(e, http.MethodPut, "/users/"+itoa(u.ID), token, map[string]string{
		"name": "Renamed", "email": "renamed@b.com", "password": "newsecret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "Renamed", data["name"])
	assert.Equal(t, "renamed@b.com", data["email"])

	after, err := store.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(after.PasswordHash), []byte("newsecret")))
}

func TestUpdateRoleByNonAdminForbidden(t *testing.T) {
	e, store := newApp(t)
	u := seed(t, store, "a@b.com", "secret1", model.RoleUser, model.StatusApproved)
	token := loginToken(t, e, "a@b.com", "secret1")

	rec := do(e, http.MethodPut, "/users/"+itoa(u.ID), token, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ROLE_MODIFICATION_FORBIDDEN", decode(t, rec)["code"])

	after, err := store.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, after.Role, "role must stay unchanged after the refusal")
}

func TestUpdateSomeoneElseForbidden(t *testing.T) {
	e, store := newApp(t)
	seed(t, store, "a@b.com", "secret1", model.RoleUser, model.StatusApproved)
	other := seed(t, store, "b@b.com", "secret1", model.RoleUser, model.StatusApproved)
	token := loginToken(t, e, "a@b.com", "secret1")

	rec := do(e, http.MethodPut, "/users/"+itoa(other.ID), token, map[string]string{"name": "Hacked"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "UNAUTHORIZED_UPDATE_ATTEMPT", decode(t, rec)["code"])
}

func TestAdminChangesRoleAndEmailConflict(t *testing.T) {
	e, store := newApp(t)
	seed(t, store, "root@b.com", "secret1", model.RoleAdmin, model.StatusApproved)
	u := seed(t, store, "a@b.com", "secret1", model.RoleUser, model.StatusApproved)
	seed(t, store, "taken@b.com", "secret1", model.RoleUser, model.StatusApproved)
	adminToken := loginToken(t, e, "root@b.com", "secret1")

	rec := do(e, http.MethodPut, "/users/"+itoa(u.ID), adminToken, map[string]string{"role": "technicien"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "technicien", decode(t, rec)["data"].(map[string]any)["role"])

	rec = do(e, http.MethodPut, "/users/"+itoa(u.ID), adminToken, map[string]string{"email": "taken@b.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_EMAIL", decode(t, rec)["code"])
}

func TestUpdateShortPassword(t *testing.T) {
	e, store := newApp(t)
	u := seed(t, store, "a@b.com", "secret1", model.RoleUser, model.StatusApproved)
	token := loginToken(t, e, "a@b.com", "secret1")

	rec := do(e, http.MethodPut, "/users/"+itoa(u.ID), token, map[string]string{"password": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PASSWORD_TOO_SHORT", decode(t, rec)["code"])
}

func TestDeletePermissions(t *testing.T) {
	e, store := newApp(t)
	seed(t, store, "root@b.com", "secret1", model.RoleAdmin, model.StatusApproved)
	a := seed(t, store, "a@b.com", "secret1", model.RoleUser, model.StatusApproved)
	b := seed(t, store, "b@b.com", "secret1", model.RoleUser, model.StatusApproved)

	aToken := loginToken(t, e, "a@b.com", "secret1")

	// not yours
	rec := do(e, http.MethodDelete, "/users/"+itoa(b.ID), aToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// admin may delete anyone
	adminToken := loginToken(t, e, "root@b.com", "secret1")
	rec = do(e, http.MethodDelete, "/users/"+itoa(b.ID), adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// self-deletion is allowed
	rec = do(e, http.MethodDelete, "/users/"+itoa(a.ID), aToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := store.GetByID(context.Background(), a.ID)
	assert.Error(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	e, store := newApp(t)
	u := seed(t, store, "a@b.com", "secret1", model.RoleUser, model.StatusApproved)

	rec := do(e, http.MethodPost, "/auth/reset-password", "", map[string]string{"email": "a@b.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The raw token leaves only by mail, so seed a known one for the
	// verification step.
	require.NoError(t, store.SetResetToken(context.Background(), u.ID,
		utils.HashResetToken("known-token"), time.Now().UTC().Add(time.Hour)))

	rec = do(e, http.MethodPost, "/auth/verify-and-reset-password", "", map[string]string{
		"email": "a@b.com", "token": "wrong-token", "newPassword": "newsecret",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_RESET_TOKEN", decode(t, rec)["code"])

	rec = do(e, http.MethodPost, "/auth/verify-and-reset-password", "", map[string]string{
		"email": "a@b.com", "token": "known-token", "newPassword": "newsecret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// old credential dead, new one works, reset token consumed
	rec = do(e, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@b.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	loginToken(t, e, "a@b.com", "newsecret")

	after, err := store.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Nil(t, after.ResetTokenHash)

	rec = do(e, http.MethodPost, "/auth/verify-and-reset-password", "", map[string]string{
		"email": "a@b.com", "token": "known-token", "newPassword": "another-one",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPasswordResetExpiredToken(t *testing.T) {
	e, store := newApp(t)
	u := seed(t, store, "a@b.com", "secret1", model.RoleUser, model.StatusApproved)
	require.NoError(t, store.SetResetToken(context.Background(), u.ID,
		utils.HashResetToken("stale-token"), time.Now().UTC().Add(-time.Minute)))

	rec := do(e, http.MethodPost, "/auth/verify-and-reset-password", "", map[string]string{
		"email": "a@b.com", "token": "stale-token", "newPassword": "newsecret",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "RESET_TOKEN_EXPIRED", decode(t, rec)["code"])
}
