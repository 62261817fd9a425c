package driving

import (
	"context"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
)

// AuthService validates bearer tokens presented to the API
type AuthService interface {
	// ValidateToken validates a JWT token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
}
