package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	apperrors "carmarket/pkg/errors"
)

const tokenIssuer = "carmarket"

type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider verifies HS256 tokens whose subject is the user id.
type JWTProvider struct {
	secret   []byte
	ttl      time.Duration
	userRepo repository.UserRepository
}

// NewJWTProvider builds a provider. userRepo is optional and used to resolve
// the display name when the token does not carry one.
func NewJWTProvider(secret string, ttl time.Duration, userRepo repository.UserRepository) *JWTProvider {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &JWTProvider{
		secret:   []byte(secret),
		ttl:      ttl,
		userRepo: userRepo,
	}
}

func (p *JWTProvider) Authenticate(ctx context.Context, token string) (*entity.Actor, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil || !parsed.Valid {
		return nil, apperrors.Unauthorized("Invalid or expired token", err)
	}
	if claims.Subject == "" {
		return nil, apperrors.Unauthorized("Token has no subject", nil)
	}

	actor := &entity.Actor{ID: claims.Subject, DisplayName: claims.Name}
	if actor.DisplayName == "" {
		actor.DisplayName = lookupName(ctx, p.userRepo, actor.ID)
	}
	return actor, nil
}

// IssueToken signs a token for userID. It backs the development token route.
func (p *JWTProvider) IssueToken(_ context.Context, userID, name string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func lookupName(ctx context.Context, userRepo repository.UserRepository, userID string) string {
	if userRepo == nil {
		return ""
	}
	user, err := userRepo.GetByID(ctx, userID)
	if err != nil || user == nil {
		return ""
	}
	return user.Name
}
