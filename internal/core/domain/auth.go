package domain

// Role is the caller's role as asserted by a validated token
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// AuthContext contains authenticated caller info for request context
type AuthContext struct {
	Subject string `json:"sub"`
	Role    Role   `json:"role"`
}

// IsAdmin checks if the authenticated caller is an admin
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	Subject   string `json:"sub"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
