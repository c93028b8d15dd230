package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRecord is the persistence projection of an account, hash included.
type UserRecord struct {
	ID                        int64
	Email                     string
	PasswordHash              string
	IsActive                  bool
	CanManageCustomers        bool
	CanViewFinancials         bool
	CanManagePartnershipCodes bool
	CanViewPartnershipStats   bool
	CanManageAccess           bool
	CreatedAt                 time.Time
}

// User strips the hash for handler responses.
func (r UserRecord) User() User {
	return User{
		ID:                        r.ID,
		Email:                     r.Email,
		IsActive:                  r.IsActive,
		CanManageCustomers:        r.CanManageCustomers,
		CanViewFinancials:         r.CanViewFinancials,
		CanManagePartnershipCodes: r.CanManagePartnershipCodes,
		CanViewPartnershipStats:   r.CanViewPartnershipStats,
		CanManageAccess:           r.CanManageAccess,
		CreatedAt:                 r.CreatedAt,
	}
}

// UserUpdate carries optional access changes; nil fields are left untouched.
type UserUpdate struct {
	CanManageCustomers        *bool `json:"can_manage_customers"`
	CanViewFinancials         *bool `json:"can_view_financials"`
	CanManagePartnershipCodes *bool `json:"can_manage_partnership_codes"`
	CanViewPartnershipStats   *bool `json:"can_view_partnership_stats"`
	CanManageAccess           *bool `json:"can_manage_access"`
	IsActive                  *bool `json:"is_active"`
}

// ErrUserNotFound is returned when an account lookup comes back empty.
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	FindByID(ctx context.Context, id int64) (*UserRecord, error)
	Create(ctx context.Context, rec UserRecord) (int64, error)
	List(ctx context.Context) ([]User, error)
	UpdateAccess(ctx context.Context, id int64, upd UserUpdate) (*UserRecord, error)
	Deactivate(ctx context.Context, id int64) error
	HasAccessManager(ctx context.Context) (bool, error)
	Count(ctx context.Context) (int64, error)
}

const userColumns = `id, email, password_hash, is_active, can_manage_customers, can_view_financials,
can_manage_partnership_codes, can_view_partnership_stats, can_manage_access, created_at`

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

func scanUser(row pgx.Row) (*UserRecord, error) {
	var u UserRecord
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CanManageCustomers,
		&u.CanViewFinancials, &u.CanManagePartnershipCodes, &u.CanViewPartnershipStats,
		&u.CanManageAccess, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.db.QueryRow(ctx, q, strings.ToLower(strings.TrimSpace(email))))
}

func (r *PgUserRepository) FindByID(ctx context.Context, id int64) (*UserRecord, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.QueryRow(ctx, q, id))
}

func (r *PgUserRepository) Create(ctx context.Context, rec UserRecord) (int64, error) {
	const q = `INSERT INTO users (email, password_hash, is_active, can_manage_customers, can_view_financials,
can_manage_partnership_codes, can_view_partnership_stats, can_manage_access)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, q,
		strings.ToLower(strings.TrimSpace(rec.Email)), rec.PasswordHash, rec.IsActive,
		rec.CanManageCustomers, rec.CanViewFinancials, rec.CanManagePartnershipCodes,
		rec.CanViewPartnershipStats, rec.CanManageAccess,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PgUserRepository) List(ctx context.Context) ([]User, error) {
	q := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u.User())
	}
	return items, rows.Err()
}

func (r *PgUserRepository) UpdateAccess(ctx context.Context, id int64, upd UserUpdate) (*UserRecord, error) {
	const q = `UPDATE users SET
can_manage_customers = COALESCE($2, can_manage_customers),
can_view_financials = COALESCE($3, can_view_financials),
can_manage_partnership_codes = COALESCE($4, can_manage_partnership_codes),
can_view_partnership_stats = COALESCE($5, can_view_partnership_stats),
can_manage_access = COALESCE($6, can_manage_access),
is_active = COALESCE($7, is_active)
WHERE id=$1
RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, q, id,
		upd.CanManageCustomers, upd.CanViewFinancials, upd.CanManagePartnershipCodes,
		upd.CanViewPartnershipStats, upd.CanManageAccess, upd.IsActive))
}

func (r *PgUserRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET is_active=FALSE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgUserRepository) HasAccessManager(ctx context.Context) (bool, error) {
	const q = `SELECT 1 FROM users WHERE can_manage_access LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PgUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
