//go:generate go run go.uber.org/mock/mockgen -source=identity_provider.go -destination=mocks/mock_identity_provider.go -package=mocks
package service

import (
	"context"

	"carmarket/internal/domain/entity"
)

// IdentityProvider turns a bearer credential into the calling actor.
type IdentityProvider interface {
	Authenticate(ctx context.Context, token string) (*entity.Actor, error)
}
