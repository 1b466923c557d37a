package auth

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	apperrors "carmarket/pkg/errors"
)

// FirebaseProvider verifies Firebase ID tokens.
type FirebaseProvider struct {
	client   *auth.Client
	userRepo repository.UserRepository
}

func NewFirebaseProvider(client *auth.Client, userRepo repository.UserRepository) *FirebaseProvider {
	return &FirebaseProvider{
		client:   client,
		userRepo: userRepo,
	}
}

func (p *FirebaseProvider) Authenticate(ctx context.Context, token string) (*entity.Actor, error) {
	result, err := p.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid or expired token", err)
	}

	actor := &entity.Actor{ID: result.UID}
	if name, ok := result.Claims["name"].(string); ok {
		actor.DisplayName = name
	}
	if actor.DisplayName == "" {
		actor.DisplayName = lookupName(ctx, p.userRepo, actor.ID)
	}
	return actor, nil
}

// IssueToken returns a custom token that the client exchanges for an ID token.
func (p *FirebaseProvider) IssueToken(ctx context.Context, userID, name string) (string, error) {
	var claims map[string]interface{}
	if name != "" {
		claims = map[string]interface{}{"name": name}
	}
	return p.client.CustomTokenWithClaims(ctx, userID, claims)
}
