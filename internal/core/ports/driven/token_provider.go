package driven

import "github.com/taskgenie-labs/recall-core/internal/core/domain"

// TokenProvider signs and verifies access tokens.
type TokenProvider interface {
	// GenerateToken creates a signed token from domain claims
	GenerateToken(claims *domain.TokenClaims) (string, error)

	// ParseToken validates a token and extracts its claims.
	// Returns domain.ErrTokenExpired or domain.ErrTokenInvalid on failure.
	ParseToken(token string) (*domain.TokenClaims, error)
}
