package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taskgenie-labs/recall-core/internal/core/domain"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driven"
	"github.com/taskgenie-labs/recall-core/internal/core/ports/driving"
)

// DefaultTokenTTL bounds the lifetime of issued tokens when the caller
// doesn't specify one.
const DefaultTokenTTL = 24 * time.Hour

// authService implements the AuthService interface
type authService struct {
	tokens driven.TokenProvider
	logger *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(tokens driven.TokenProvider, logger *slog.Logger) driving.AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		tokens: tokens,
		logger: logger,
	}
}

// ValidateToken checks a bearer token and returns the caller identity.
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, err
	}

	if !domain.ValidRole(claims.Role) {
		return nil, domain.ErrTokenInvalid
	}

	return &domain.AuthContext{
		Subject: claims.Subject,
		Role:    claims.Role,
	}, nil
}

// IssueToken mints a signed token for the given subject and role.
func (s *authService) IssueToken(ctx context.Context, subject string, role domain.Role, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("subject is required: %w", domain.ErrInvalidInput)
	}
	if !domain.ValidRole(role) {
		return "", fmt.Errorf("unknown role %q: %w", role, domain.ErrInvalidInput)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	token, err := s.tokens.GenerateToken(&domain.TokenClaims{
		Subject:   subject,
		Role:      role,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("token issued", "subject", subject, "role", role, "ttl", ttl)
	return token, nil
}
