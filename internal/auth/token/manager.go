package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rancho/rancho-backend/pkg/errors"
)

// Claims are the session token claims
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	NII    string `json:"nii"`
	Role   string `json:"role"`
	Year   int    `json:"year"`
}

// Identity is the authenticated subject encoded into a token
type Identity struct {
	UserID string
	NII    string
	Role   string
	Year   int
}

// Manager issues and validates signed session tokens. Tokens are
// stateless; logout is a client-side discard.
type Manager struct {
	secret []byte
	expiry time.Duration
}

// NewManager creates a new token manager
func NewManager(secret string, expiry time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Generate signs a session token for the identity
func (m *Manager) Generate(identity Identity) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.expiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "rancho",
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID: identity.UserID,
		NII:    identity.NII,
		Role:   identity.Role,
		Year:   identity.Year,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate parses a session token and returns its claims
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.TokenInvalid()
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.TokenInvalid()
	}
	return claims, nil
}

// Expiry returns the configured session lifetime
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}
