package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PartnershipCode is a referral code partners hand out to customers.
type PartnershipCode struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// PartnershipStats aggregates enrollments attributed to one code.
type PartnershipStats struct {
	Code          string  `json:"code"`
	CustomerCount int     `json:"customer_count"`
	TotalAmount   float64 `json:"total_amount"`
}

var (
	// ErrCodeExists is returned when creating a duplicate partnership code.
	ErrCodeExists = errors.New("partnership code already exists")
	// ErrCodeNotFound is returned for lookups of missing codes.
	ErrCodeNotFound = errors.New("partnership code not found")
)

// PartnershipRepository defines persistence operations for codes.
type PartnershipRepository interface {
	Create(ctx context.Context, code string) (*PartnershipCode, error)
	List(ctx context.Context) ([]PartnershipCode, error)
	FindActive(ctx context.Context, code string) (*PartnershipCode, error)
	Deactivate(ctx context.Context, id int64) error
}

// PgPartnershipRepository implements PartnershipRepository using pgxpool.
type PgPartnershipRepository struct {
	db *pgxpool.Pool
}

func NewPgPartnershipRepository(db *pgxpool.Pool) *PgPartnershipRepository {
	return &PgPartnershipRepository{db: db}
}

func (r *PgPartnershipRepository) Create(ctx context.Context, code string) (*PartnershipCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("empty partnership code")
	}

	var exists int
	err := r.db.QueryRow(ctx, `SELECT 1 FROM partnership_codes WHERE code=$1`, code).Scan(&exists)
	if err == nil {
		return nil, ErrCodeExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	const q = `INSERT INTO partnership_codes (code) VALUES ($1) RETURNING id, code, is_active, created_at`
	var p PartnershipCode
	if err := r.db.QueryRow(ctx, q, code).Scan(&p.ID, &p.Code, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PgPartnershipRepository) List(ctx context.Context) ([]PartnershipCode, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, code, is_active, created_at
FROM partnership_codes
ORDER BY created_at DESC, id DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []PartnershipCode{}
	for rows.Next() {
		var p PartnershipCode
		if err := rows.Scan(&p.ID, &p.Code, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *PgPartnershipRepository) FindActive(ctx context.Context, code string) (*PartnershipCode, error) {
	const q = `SELECT id, code, is_active, created_at FROM partnership_codes WHERE code=$1 AND is_active`
	var p PartnershipCode
	if err := r.db.QueryRow(ctx, q, code).Scan(&p.ID, &p.Code, &p.IsActive, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgPartnershipRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE partnership_codes SET is_active=FALSE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCodeNotFound
	}
	return nil
}

// BuildPartnershipStats sums booked prices of non-deleted customers per code,
// sorted by total amount descending.
func BuildPartnershipStats(codes []PartnershipCode, customersByCode map[string][]Customer) []PartnershipStats {
	stats := make([]PartnershipStats, 0, len(codes))
	for _, code := range codes {
		customers := customersByCode[code.Code]
		var total float64
		for _, c := range customers {
			for _, p := range c.Prices {
				total += p
			}
		}
		stats = append(stats, PartnershipStats{
			Code:          code.Code,
			CustomerCount: len(customers),
			TotalAmount:   total,
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalAmount > stats[j].TotalAmount
	})
	return stats
}
