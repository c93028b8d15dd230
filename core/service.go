package core

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryAuthService verifies credentials against the user repository.
type RepositoryAuthService struct {
	users UserRepository
}

func NewRepositoryAuthService(users UserRepository) *RepositoryAuthService {
	return &RepositoryAuthService{users: users}
}

// Authenticate looks the account up by email and compares the bcrypt hash.
// A missing account and a wrong password are indistinguishable to callers;
// an existing but deactivated account is reported separately.
func (s *RepositoryAuthService) Authenticate(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	rec, err := s.users.FindByEmail(ctx, email)
	if err != nil || rec == nil {
		return User{}, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}

	if !rec.IsActive {
		return User{}, ErrUserInactive
	}
	return rec.User(), nil
}
