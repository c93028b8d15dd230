package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("token is expired")
	// ErrTokenInvalid covers malformed or incorrectly signed tokens.
	ErrTokenInvalid = errors.New("token is invalid")
)

const tokenIssuer = "kampus-admin"

// TokenService issues and validates HS256 access tokens. The subject claim
// carries the account email.
type TokenService struct {
	signingKey []byte
	expiry     time.Duration
}

func NewTokenService(secret string, expireMinutes int) *TokenService {
	if expireMinutes <= 0 {
		expireMinutes = 30
	}
	return &TokenService{
		signingKey: []byte(secret),
		expiry:     time.Duration(expireMinutes) * time.Minute,
	}
}

// Generate signs a token for the given account email.
func (s *TokenService) Generate(email string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// Validate parses a token string and returns the subject email.
func (s *TokenService) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
