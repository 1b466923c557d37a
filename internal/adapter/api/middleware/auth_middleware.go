package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/service"
	"carmarket/pkg/errors"
	"carmarket/pkg/response"
)

const (
	ContextUserID = "uid"
	ContextActor  = "actor"
)

type AuthMiddleware struct {
	identity service.IdentityProvider
}

func NewAuthMiddleware(identity service.IdentityProvider) *AuthMiddleware {
	return &AuthMiddleware{
		identity: identity,
	}
}

// Authenticate resolves the bearer credential and stores the caller under
// "uid" and "actor".
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		token, ok := bearer(authHeader)
		if !ok {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		actor, err := m.identity.Authenticate(c.Request().Context(), token)
		if err != nil {
			return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
		}

		c.Set(ContextUserID, actor.ID)
		c.Set(ContextActor, *actor)
		return next(c)
	}
}

// Resolve authenticates a raw credential outside of the middleware chain,
// as the live transport does before upgrading.
func (m *AuthMiddleware) Resolve(c echo.Context) (*entity.Actor, error) {
	token := TokenFromRequest(c.Request())
	if token == "" {
		return nil, errors.Unauthorized("Authentication required", nil)
	}
	actor, err := m.identity.Authenticate(c.Request().Context(), token)
	if err != nil {
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}
	return actor, nil
}

// TokenFromRequest reads the bearer credential from the Authorization header
// or, for browsers that cannot set headers on a websocket, the token query
// parameter.
func TokenFromRequest(r *http.Request) string {
	if token, ok := bearer(r.Header.Get("Authorization")); ok {
		return token
	}
	return r.URL.Query().Get("token")
}

func bearer(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
