// Package identity verifies bearer tokens and maps their claims onto the
// registry's Actor model. Tokens are issued by the identity platform, not
// by this service; only verification happens here.
package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/certflow/certportal-backend/pkg/actor"
	"github.com/certflow/certportal-backend/pkg/config"
	"github.com/certflow/certportal-backend/pkg/errors"
	"github.com/certflow/certportal-backend/pkg/permissions"
)

// Claims represents the JWT claims carried by portal access tokens
type Claims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
}

// Manager handles JWT operations
type Manager struct {
	config *config.JWTConfig
}

// NewManager creates a new JWT manager
func NewManager(cfg *config.JWTConfig) *Manager {
	return &Manager{config: cfg}
}

// Verify validates a token string and returns its claims.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.TokenInvalid()
		}
		return []byte(m.config.Secret), nil
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
	if !actor.IsValidRole(claims.Role) {
		return nil, errors.TokenInvalid()
	}

	return claims, nil
}

// Actor converts verified claims into an Actor. Tokens that carry no
// explicit capability list fall back to the role's default set.
func (c *Claims) Actor() *actor.Actor {
	perms := c.Permissions
	if len(perms) == 0 {
		perms = permissions.ForRole(c.Role)
	}
	return &actor.Actor{
		ID:          c.UserID,
		FullName:    c.Name,
		Email:       c.Email,
		Role:        c.Role,
		Permissions: perms,
	}
}

// Generate mints a signed token for the given actor. Used by local tooling
// and tests; production tokens come from the identity platform.
func (m *Manager) Generate(a *actor.Actor) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   a.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID:      a.ID,
		Email:       a.Email,
		Name:        a.FullName,
		Role:        a.Role,
		Permissions: a.Permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.Secret))
}
