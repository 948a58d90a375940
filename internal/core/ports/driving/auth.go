package driving

import (
	"context"
	"time"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
)

// AuthService validates and issues access tokens for the API surface.
type AuthService interface {
	// ValidateToken checks a bearer token and returns the caller identity.
	// Returns domain.ErrTokenExpired or domain.ErrTokenInvalid on failure.
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// IssueToken mints a token for the given subject and role
	IssueToken(ctx context.Context, subject string, role domain.Role, ttl time.Duration) (string, error)
}
