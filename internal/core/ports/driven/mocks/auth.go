package mocks

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-search/internal/core/domain"
	"github.com/custodia-labs/sercha-search/internal/core/ports/driven"
)

// Ensure MockTokenParser implements TokenParser
var _ driven.TokenParser = (*MockTokenParser)(nil)

// MockTokenParser is a mock implementation of TokenParser for testing.
// Tokens are base64-encoded JSON claims. NOT secure - only for testing.
type MockTokenParser struct{}

// NewMockTokenParser creates a new MockTokenParser
func NewMockTokenParser() *MockTokenParser {
	return &MockTokenParser{}
}

// GenerateToken creates a base64-encoded JSON token from claims
func (m *MockTokenParser) GenerateToken(claims *domain.TokenClaims) (string, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ParseToken decodes a base64-encoded JSON token and returns claims
func (m *MockTokenParser) ParseToken(token string) (*domain.TokenClaims, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	var claims domain.TokenClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	if claims.ExpiresAt != 0 && time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}

	return &claims, nil
}
