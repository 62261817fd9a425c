package driven

import "github.com/custodia-labs/sercha-search/internal/core/domain"

// TokenParser verifies bearer tokens. Token issuance is owned by the
// identity provider, so only parsing is needed here.
type TokenParser interface {
	// ParseToken verifies the signature and expiry of token
	ParseToken(token string) (*domain.TokenClaims, error)
}
