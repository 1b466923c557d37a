//go:generate go run go.uber.org/mock/mockgen -source=user_repository.go -destination=mocks/mock_user_repository.go -package=mocks
package repository

import (
	"context"

	"carmarket/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.User, error)
}
