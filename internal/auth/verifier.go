package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/skillbadge/assessment-service/internal/config"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Identity is the signed-in user as asserted by the auth provider
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// TokenVerifier turns a bearer token into an Identity
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// NewVerifier picks the verifier for the configured provider
func NewVerifier(cfg *config.Config) (TokenVerifier, error) {
	switch cfg.Auth.Provider {
	case "", "jwt":
		return NewJWTVerifier(cfg.JWTSecret), nil
	case "casdoor":
		return NewCasdoorVerifier(cfg.Auth), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}
