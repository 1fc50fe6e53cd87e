package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"

	"study-chat/internal/apperr"
	"study-chat/internal/models"
	"study-chat/internal/repositories"
)

// Authenticator resolves a bearer credential to a verified identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Identity, error)
}

// Claims is the access token payload issued by the account service.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuthenticator verifies HS256 tokens and loads the profile behind the subject.
type JWTAuthenticator struct {
	secret   []byte
	users    repositories.UserRepository
	profiles *cache.Cache
}

func NewJWTAuthenticator(secret string, users repositories.UserRepository, profileTTL time.Duration) *JWTAuthenticator {
	return &JWTAuthenticator{
		secret:   []byte(secret),
		users:    users,
		profiles: cache.New(profileTTL, 2*profileTTL),
	}
}

func (a *JWTAuthenticator) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, apperr.Unauthenticated("missing token")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || claims.Subject == "" {
		return models.Identity{}, apperr.Unauthenticated("invalid token")
	}

	user, err := a.profile(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Identity{}, apperr.Unauthenticated("unknown user")
		}
		return models.Identity{}, apperr.Internal("load profile", err)
	}

	role := claims.Role
	if role == "" {
		role = user.Role
	}
	return models.Identity{UserID: user.ID, Name: user.Name, Avatar: user.Avatar, Role: role}, nil
}

func (a *JWTAuthenticator) profile(ctx context.Context, userID string) (models.User, error) {
	if cached, ok := a.profiles.Get(userID); ok {
		return cached.(models.User), nil
	}
	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	a.profiles.Set(userID, user, cache.DefaultExpiration)
	return user, nil
}

// IssueToken signs an access token for userID. Used by tooling and tests.
func IssueToken(secret, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
