package core

import (
	"context"
	"errors"
	"time"
)

// Permission names one of the dashboard's access flags.
type Permission string

const (
	PermManageCustomers        Permission = "can_manage_customers"
	PermViewFinancials         Permission = "can_view_financials"
	PermManagePartnershipCodes Permission = "can_manage_partnership_codes"
	PermViewPartnershipStats   Permission = "can_view_partnership_stats"
	PermManageAccess           Permission = "can_manage_access"
)

// User represents an authenticated principal returned to handlers. The JSON
// shape is what login and /me hand back to dashboard clients.
type User struct {
	ID                        int64     `json:"id"`
	Email                     string    `json:"email"`
	IsActive                  bool      `json:"is_active"`
	CanManageCustomers        bool      `json:"can_manage_customers"`
	CanViewFinancials         bool      `json:"can_view_financials"`
	CanManagePartnershipCodes bool      `json:"can_manage_partnership_codes"`
	CanViewPartnershipStats   bool      `json:"can_view_partnership_stats"`
	CanManageAccess           bool      `json:"can_manage_access"`
	CreatedAt                 time.Time `json:"created_at"`
}

// Has reports whether the user carries the given permission flag.
func (u User) Has(p Permission) bool {
	switch p {
	case PermManageCustomers:
		return u.CanManageCustomers
	case PermViewFinancials:
		return u.CanViewFinancials
	case PermManagePartnershipCodes:
		return u.CanManagePartnershipCodes
	case PermViewPartnershipStats:
		return u.CanViewPartnershipStats
	case PermManageAccess:
		return u.CanManageAccess
	default:
		return false
	}
}

// protectedEmails cannot be modified or deleted through the access endpoints.
var protectedEmails = []string{"gokhan@kampus.com", "emre@kampus.com"}

// IsProtectedEmail reports whether the account is one of the seeded owners.
func IsProtectedEmail(email string) bool {
	for _, e := range protectedEmails {
		if e == email {
			return true
		}
	}
	return false
}

var (
	// ErrInvalidCredentials is returned when email/password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserInactive is returned when the account exists but is deactivated.
	ErrUserInactive = errors.New("user account is inactive")
)

// AuthService defines authentication behaviour.
type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (User, error)
}
