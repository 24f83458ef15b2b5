package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/karimdhz/atelier-portal/internal/model"
	"github.com/karimdhz/atelier-portal/internal/repository"
	"github.com/karimdhz/atelier-portal/internal/utils"
)

const testSecret = "test-secret"

func seedUser(t *testing.T, store *repository.MemoryStore, email string, role model.Role, status model.ApprovalStatus) model.User {
	t.Helper()
	id, err := store.Create(context.Background(), "Test User", email, "secret1", role, status, bcrypt.MinCost)
	require.NoError(t, err)
	u, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func tokenFor(t *testing.T, u model.User, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, u, ttl)
	require.NoError(t, err)
	return tok.Token
}

// invoke runs the Authenticate chain against a request carrying the given
// Authorization header and returns the recorder plus the identity the inner
// handler observed (if it ran).
func invoke(t *testing.T, store repository.UserStore, authHeader string) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *Identity
	h := Authenticate(testSecret, store)(func(c echo.Context) error {
		id, ok := CurrentIdentity(c)
		require.True(t, ok)
		seen = &id
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, seen
}

func bodyCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

func TestAuthenticateMissingHeader(t *testing.T) {
	store := repository.NewMemoryStore()

	for _, header := range []string{"", "Basic abc", "bearer lowercase", "Bearer"} {
		rec, _ := invoke(t, store, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header=%q", header)
		assert.Equal(t, CodeAuthHeaderMissing, bodyCode(t, rec), "header=%q", header)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	store := repository.NewMemoryStore()
	u := seedUser(t, store, "a@b.com", model.RoleUser, model.StatusApproved)

	rec, _ := invoke(t, store, "Bearer "+tokenFor(t, u, -time.Minute))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeTokenExpired, bodyCode(t, rec))
}

func TestAuthenticateInvalidToken(t *testing.T) {
	store := repository.NewMemoryStore()

	rec, _ := invoke(t, store, "Bearer abc.def.ghi")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, CodeInvalidToken, bodyCode(t, rec))
}

func TestAuthenticateUserVanished(t *testing.T) {
	store := repository.NewMemoryStore()
	u := seedUser(t, store, "a@b.com", model.RoleUser, model.StatusApproved)
	token := tokenFor(t, u, time.Hour)
	require.NoError(t, store.Delete(context.Background(), u.ID))

	rec, _ := invoke(t, store, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUserNotFound, bodyCode(t, rec))
}

func TestAuthenticatePendingAccount(t *testing.T) {
	store := repository.NewMemoryStore()
	u := seedUser(t, store, "a@b.com", model.RoleUser, model.StatusPending)

	rec, _ := invoke(t, store, "Bearer "+tokenFor(t, u, time.Hour))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, CodeAccountPending, bodyCode(t, rec))
}

// A valid, unexpired token stops working the moment an admin revokes
// approval: the gate runs against the live record, not the claims.
func TestAuthenticateRevocationPropagates(t *testing.T) {
	store := repository.NewMemoryStore()
	u := seedUser(t, store, "a@b.com", model.RoleUser, model.StatusApproved)
	token := tokenFor(t, u, time.Hour)

	rec, _ := invoke(t, store, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := store.SetStatus(context.Background(), u.ID, model.StatusPending)
	require.NoError(t, err)

	rec, _ = invoke(t, store, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, CodeAccountPending, bodyCode(t, rec))
}

func TestAuthenticateAdminBypassesGate(t *testing.T) {
	store := repository.NewMemoryStore()
	u := seedUser(t, store, "root@b.com", model.RoleAdmin, model.StatusPending)

	rec, id := invoke(t, store, "Bearer "+tokenFor(t, u, time.Hour))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, id)
	assert.True(t, id.IsAdmin())
	assert.False(t, id.Approved)
}

func TestAuthenticateAttachesIdentity(t *testing.T) {
	store := repository.NewMemoryStore()
	u := seedUser(t, store, "a@b.com", model.RoleUser, model.StatusApproved)

	rec, id := invoke(t, store, "Bearer "+tokenFor(t, u, time.Hour))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, id)
	assert.Equal(t, u.ID, id.ID)
	assert.Equal(t, model.RoleUser, id.Role)
	assert.Equal(t, "Test User", id.Name)
	assert.Equal(t, "a@b.com", id.Email)
	assert.True(t, id.Approved)
}

func TestAuthenticateStoreFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	u := seedUser(t, store, "a@b.com", model.RoleUser, model.StatusApproved)
	token := tokenFor(t, u, time.Hour)
	store.FailAll = errors.New("connection refused")

	rec, _ := invoke(t, store, "Bearer "+token)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeAuthFailure, bodyCode(t, rec))
}
