package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBootstrapAccountsSeedsOwners(t *testing.T) {
	repo := newMemUserRepo()
	passwordPath := filepath.Join(t.TempDir(), "initial_passwords.secret")
	cfg := Config{BootstrapAccounts: true, InitialPasswordPath: passwordPath}

	if err := BootstrapAccounts(context.Background(), repo, cfg); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	for _, email := range []string{"gokhan@kampus.com", "emre@kampus.com"} {
		rec, err := repo.FindByEmail(context.Background(), email)
		if err != nil {
			t.Fatalf("find %s: %v", email, err)
		}
		if !rec.IsActive || !rec.CanManageAccess || !rec.CanManageCustomers {
			t.Fatalf("seeded account %s lacks flags: %+v", email, rec)
		}
	}

	data, err := os.ReadFile(passwordPath)
	if err != nil {
		t.Fatalf("read password file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("password file has %d lines, want 2", len(lines))
	}
	for _, line := range lines {
		parts := strings.Fields(line)
		if len(parts) != 2 {
			t.Fatalf("bad password line %q", line)
		}
		rec, err := repo.FindByEmail(context.Background(), parts[0])
		if err != nil {
			t.Fatalf("find %s: %v", parts[0], err)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(parts[1])); err != nil {
			t.Fatalf("written password does not match hash for %s", parts[0])
		}
	}
}

func TestBootstrapAccountsIdempotent(t *testing.T) {
	repo := newMemUserRepo()
	repo.add(UserRecord{Email: "owner@kampus.com", IsActive: true, CanManageAccess: true})
	cfg := Config{BootstrapAccounts: true}

	if err := BootstrapAccounts(context.Background(), repo, cfg); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	count, _ := repo.Count(context.Background())
	if count != 1 {
		t.Fatalf("count = %d, want 1 (no accounts seeded)", count)
	}
}

func TestBootstrapAccountsDisabled(t *testing.T) {
	repo := newMemUserRepo()
	if err := BootstrapAccounts(context.Background(), repo, Config{BootstrapAccounts: false}); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	count, _ := repo.Count(context.Background())
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}

func TestBootstrapAccountsSeedFile(t *testing.T) {
	seedPath := filepath.Join(t.TempDir(), "accounts.yaml")
	seed := `accounts:
  - email: staff@kampus.com
    password: "staff-password-1"
    permissions: [can_manage_customers, can_view_financials]
`
	if err := os.WriteFile(seedPath, []byte(seed), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	repo := newMemUserRepo()
	cfg := Config{
		BootstrapAccounts:   true,
		SeedAccountsPath:    seedPath,
		InitialPasswordPath: filepath.Join(t.TempDir(), "pw.secret"),
	}
	if err := BootstrapAccounts(context.Background(), repo, cfg); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	rec, err := repo.FindByEmail(context.Background(), "staff@kampus.com")
	if err != nil {
		t.Fatalf("find staff: %v", err)
	}
	if !rec.CanManageCustomers || !rec.CanViewFinancials {
		t.Fatalf("granted flags missing: %+v", rec)
	}
	if rec.CanManageAccess || rec.CanManagePartnershipCodes || rec.CanViewPartnershipStats {
		t.Fatalf("unexpected flags granted: %+v", rec)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte("staff-password-1")); err != nil {
		t.Fatalf("configured password does not match hash")
	}
}
