package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rocketscienceinc/dotsandboxes-backend/internal/apperror"
)

type AuthService interface {
	GenerateToken(username string, ttl time.Duration) (string, error)
	Subject(token string) (string, error)
}

type authServiceImpl struct {
	secretKey string
}

func NewAuthService(secretKey string) AuthService {
	return &authServiceImpl{
		secretKey: secretKey,
	}
}

// GenerateToken signs an HS256 token whose subject is the username.
func (that *authServiceImpl) GenerateToken(username string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(that.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Subject validates the token and returns the username it was issued for.
func (that *authServiceImpl) Subject(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("%w: token is missing", apperror.ErrUnauthorized)
	}

	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(that.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperror.ErrUnauthorized, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", apperror.ErrUnauthorized)
	}

	return claims.Subject, nil
}

// IsUnauthorized - reports whether err came from a rejected token.
func IsUnauthorized(err error) bool {
	return errors.Is(err, apperror.ErrUnauthorized)
}
