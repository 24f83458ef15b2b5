package utils // package utils provides helper functions for token creation and hashing

import (
    "errors"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens

    "github.com/karimdhz/atelier-portal/internal/model"
)

// Verification failures are collapsed into three kinds so callers can map
// them to distinct, stable outward codes.  Client UX depends on telling
// "log in again" (expired) apart from "session still invalid".
var (
    // ErrTokenExpired means the signature checked out but the expiry passed.
    ErrTokenExpired = errors.New("token expired")
    // ErrTokenInvalid means the signature or structure did not verify.
    ErrTokenInvalid = errors.New("invalid token")
    // ErrTokenMalformed means the credential is not a bearer token at all
    // (missing, empty, or not a JWT).
    ErrTokenMalformed = errors.New("malformed token")
)

// Claims carries the identity embedded in an access token.  Role and the
// profile fields are informational only: middleware always re-fetches the
// live user record before trusting role or approval state.
type Claims struct {
    UserID uint64 `json:"user_id"`
    Role   string `json:"role"`
    Name   string `json:"name"`
    Email  string `json:"email"`
    jwt.RegisteredClaims
}

// AccessToken is a signed JWT together with its absolute expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The signing
// secret is process-wide configuration loaded once at startup; it is never
// rotated at runtime.
func NewAccessToken(secret string, u model.User, ttl time.Duration) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := Claims{
        UserID: u.ID,
        Role:   string(u.Role),
        Name:   u.Name,
        Email:  u.Email,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   u.Email,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccessToken parses and validates a serialized token.  It returns the
// embedded claims on success, or one of ErrTokenExpired, ErrTokenInvalid or
// ErrTokenMalformed.
func VerifyAccessToken(secret, raw string) (*Claims, error) {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return nil, ErrTokenMalformed
    }
    claims := &Claims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        // Reject any signing method other than HMAC so an attacker cannot
        // downgrade to "none" or swap in an asymmetric key.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrTokenInvalid
        }
        return []byte(secret), nil
    })
    if err != nil {
        switch {
        case errors.Is(err, jwt.ErrTokenExpired):
            return nil, ErrTokenExpired
        case errors.Is(err, jwt.ErrTokenMalformed):
            return nil, ErrTokenMalformed
        default:
            return nil, ErrTokenInvalid
        }
    }
    if !tok.Valid {
        return nil, ErrTokenInvalid
    }
    return claims, nil
}
