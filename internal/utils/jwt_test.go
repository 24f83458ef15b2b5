package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karimdhz/atelier-portal/internal/model"
)

const testSecret = "test-secret"

func testUser() model.User {
	return model.User{
		ID:     42,
		Name:   "Sami",
		Email:  "sami@example.com",
		Role:   model.RoleUser,
		Status: model.StatusApproved,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(testSecret, testUser(), 2*time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(2*time.Hour), tok.Exp, 5*time.Second)

	claims, err := VerifyAccessToken(testSecret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "Sami", claims.Name)
	assert.Equal(t, "sami@example.com", claims.Email)
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	tok, err := NewAccessToken(testSecret, testUser(), -time.Minute)
	require.NoError(t, err)

	_, err = VerifyAccessToken(testSecret, tok.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyAccessTokenTampered(t *testing.T) {
	tok, err := NewAccessToken(testSecret, testUser(), time.Hour)
	require.NoError(t, err)

	// Flip the last signature byte.
	raw := []byte(tok.Token)
	if raw[len(raw)-1] == 'A' {
		raw[len(raw)-1] = 'B'
	} else {
		raw[len(raw)-1] = 'A'
	}
	_, err = VerifyAccessToken(testSecret, string(raw))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken(testSecret, testUser(), time.Hour)
	require.NoError(t, err)

	_, err = VerifyAccessToken("other-secret", tok.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyAccessTokenMalformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-a-jwt"} {
		_, err := VerifyAccessToken(testSecret, raw)
		assert.ErrorIs(t, err, ErrTokenMalformed, "raw=%q", raw)
	}
}

func TestResetTokenHash(t *testing.T) {
	raw, err := NewResetToken()
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	other, err := NewResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw, other)

	assert.Equal(t, HashResetToken(raw), HashResetToken(raw))
	assert.NotEqual(t, raw, HashResetToken(raw))
}
