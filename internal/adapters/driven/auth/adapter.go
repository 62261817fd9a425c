package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
)

// Ensure Adapter implements TokenParser
var _ driven.TokenParser = (*Adapter)(nil)

// jwtClaims wraps domain.TokenClaims for JWT compatibility
type jwtClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Adapter verifies HS256 bearer tokens
type Adapter struct {
	jwtSecret []byte
	leeway    time.Duration
}

// NewAdapter creates a new auth adapter with the given JWT secret
func NewAdapter(jwtSecret string) *Adapter {
	return &Adapter{jwtSecret: []byte(jwtSecret)}
}

// NewAdapterWithLeeway creates an adapter tolerating clock skew of leeway
func NewAdapterWithLeeway(jwtSecret string, leeway time.Duration) *Adapter {
	return &Adapter{jwtSecret: []byte(jwtSecret), leeway: leeway}
}

// ParseToken validates a JWT and extracts domain claims. Expired tokens
// fail with domain.ErrTokenExpired, anything else with domain.ErrTokenInvalid.
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithExpirationRequired(), jwt.WithLeeway(a.leeway))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token claims", domain.ErrTokenInvalid)
	}

	out := &domain.TokenClaims{
		Subject: claims.Subject,
		Role:    claims.Role,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return out, nil
}
