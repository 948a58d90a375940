package domain

// Role controls access to the administrative API surface.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// AuthContext carries the identity attached to an authenticated request.
type AuthContext struct {
	Subject string `json:"subject"`
	Role    Role   `json:"role"`
}

// IsAdmin reports whether the caller may hit admin endpoints.
func (a *AuthContext) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// ValidRole reports whether r belongs to the closed role vocabulary.
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleClient
}

// TokenClaims is the identity payload carried inside an access token.
type TokenClaims struct {
	Subject   string `json:"subject"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}
