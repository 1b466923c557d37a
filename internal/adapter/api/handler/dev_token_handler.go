package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
	"carmarket/pkg/response"
)

// TokenIssuer mints credentials accepted by the configured identity provider.
type TokenIssuer interface {
	IssueToken(ctx context.Context, userID, name string) (string, error)
}

type DevTokenHandler struct {
	issuer   TokenIssuer
	userRepo repository.UserRepository
}

func NewDevTokenHandler(issuer TokenIssuer, userRepo repository.UserRepository) *DevTokenHandler {
	return &DevTokenHandler{
		issuer:   issuer,
		userRepo: userRepo,
	}
}

// GenerateUserToken issues a token for an existing user. Development only.
func (h *DevTokenHandler) GenerateUserToken(c echo.Context) error {
	userID := c.Param("userId")
	if userID == "" {
		return response.Error(c, errors.Validation("userId is required"))
	}

	user, err := h.userRepo.GetByID(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	token, err := h.issuer.IssueToken(c.Request().Context(), user.ID, user.Name)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to issue token", err))
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user":  user.Participant(),
	})
}
