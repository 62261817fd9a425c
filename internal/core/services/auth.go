package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// authService implements the AuthService interface
type authService struct {
	parser driven.TokenParser
}

// NewAuthService creates a new AuthService
func NewAuthService(parser driven.TokenParser) driving.AuthService {
	return &authService{parser: parser}
}

// ValidateToken validates a JWT token and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	// Expiry, including clock-skew leeway, is enforced by the parser
	claims, err := s.parser.ParseToken(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	role := claims.Role
	if role == "" {
		role = domain.RoleMember
	}

	return &domain.AuthContext{
		Subject: claims.Subject,
		Role:    role,
	}, nil
}
