package auth

import (
	"context"
	"fmt"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/skillbadge/assessment-service/internal/config"
)

// CasdoorVerifier validates tokens issued by a hosted Casdoor instance
type CasdoorVerifier struct {
	client *casdoorsdk.Client
}

func NewCasdoorVerifier(cfg config.AuthConfig) *CasdoorVerifier {
	client := casdoorsdk.NewClient(
		cfg.CasdoorEndpoint,
		cfg.CasdoorClientID,
		cfg.CasdoorSecret,
		cfg.CasdoorCertificate,
		cfg.CasdoorOrg,
		cfg.CasdoorApp,
	)
	return &CasdoorVerifier{client: client}
}

func (v *CasdoorVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := v.client.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID := claims.User.Id
	if userID == "" {
		userID = claims.Subject
	}
	name := claims.User.DisplayName
	if name == "" {
		name = claims.User.Name
	}

	return &Identity{
		UserID: userID,
		Email:  claims.User.Email,
		Name:   name,
	}, nil
}
