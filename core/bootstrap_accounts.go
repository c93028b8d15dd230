package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// SeedAccount is one entry in the optional YAML seed file. Accounts with no
// password get a generated one; accounts with no permissions get all flags.
type SeedAccount struct {
	Email       string   `yaml:"email"`
	Password    string   `yaml:"password"`
	Permissions []string `yaml:"permissions"`
}

// BootstrapAccounts creates the default owner accounts when no account can
// manage access yet. It is idempotent: once an access manager exists, it does
// nothing. Generated passwords are written to cfg.InitialPasswordPath, or
// logged when that path is empty.
func BootstrapAccounts(ctx context.Context, repo UserRepository, cfg Config) error {
	if !cfg.BootstrapAccounts {
		return nil
	}

	has, err := repo.HasAccessManager(ctx)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	seeds := make([]SeedAccount, 0, 2)
	for _, email := range protectedEmails {
		seeds = append(seeds, SeedAccount{Email: email})
	}
	if cfg.SeedAccountsPath != "" {
		extra, err := LoadSeedAccounts(cfg.SeedAccountsPath)
		if err != nil {
			return err
		}
		seeds = append(seeds, extra...)
	}

	var generated []string
	for _, seed := range seeds {
		email := strings.ToLower(strings.TrimSpace(seed.Email))
		if email == "" {
			continue
		}

		if _, err := repo.FindByEmail(ctx, email); err == nil {
			continue
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}

		password := seed.Password
		if password == "" {
			password, err = generatePassword(32)
			if err != nil {
				return err
			}
			generated = append(generated, fmt.Sprintf("%s %s", email, password))
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		rec := UserRecord{Email: email, PasswordHash: string(hash), IsActive: true}
		applyPermissions(&rec, seed.Permissions)
		if _, err := repo.Create(ctx, rec); err != nil {
			return err
		}
		log.Printf("seeded account %s", email)
	}

	if len(generated) == 0 {
		return nil
	}
	if cfg.InitialPasswordPath != "" {
		content := strings.Join(generated, "\n") + "\n"
		if err := os.WriteFile(cfg.InitialPasswordPath, []byte(content), 0o600); err != nil {
			return err
		}
		log.Printf("initial account credentials written to %s", cfg.InitialPasswordPath)
	} else {
		for _, line := range generated {
			log.Printf("initial account created: %s", line)
		}
	}

	return nil
}

// LoadSeedAccounts parses the YAML seed file.
func LoadSeedAccounts(path string) ([]SeedAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Accounts []SeedAccount `yaml:"accounts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid seed file %s: %w", path, err)
	}
	return doc.Accounts, nil
}

// applyPermissions sets the named flags; an empty list grants everything.
func applyPermissions(rec *UserRecord, perms []string) {
	if len(perms) == 0 {
		rec.CanManageCustomers = true
		rec.CanViewFinancials = true
		rec.CanManagePartnershipCodes = true
		rec.CanViewPartnershipStats = true
		rec.CanManageAccess = true
		return
	}
	for _, p := range perms {
		switch Permission(strings.TrimSpace(p)) {
		case PermManageCustomers:
			rec.CanManageCustomers = true
		case PermViewFinancials:
			rec.CanViewFinancials = true
		case PermManagePartnershipCodes:
			rec.CanManagePartnershipCodes = true
		case PermViewPartnershipStats:
			rec.CanViewPartnershipStats = true
		case PermManageAccess:
			rec.CanManageAccess = true
		default:
			log.Printf("seed file: unknown permission %q ignored", p)
		}
	}
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
