package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Customer is an enrolled student record. Camps and prices are parallel
// lists: one price per booked camp.
type Customer struct {
	ID              int64      `json:"id"`
	FullName        string     `json:"full_name"`
	Phone           string     `json:"phone"`
	Email           string     `json:"email"`
	ClassLevel      string     `json:"class_level"`
	Camps           []string   `json:"camps"`
	Prices          []float64  `json:"prices"`
	PartnershipCode *string    `json:"partnership_code"`
	PreviousYKSRank *int       `json:"previous_yks_rank"`
	City            string     `json:"city"`
	IsPaid          bool       `json:"is_paid"`
	IsDeleted       bool       `json:"is_deleted"`
	DeletedAt       *time.Time `json:"deleted_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CustomerCreate is the POST /customers payload.
type CustomerCreate struct {
	FullName        string    `json:"full_name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	ClassLevel      string    `json:"class_level"`
	Camps           []string  `json:"camps"`
	Prices          []float64 `json:"prices"`
	PartnershipCode string    `json:"partnership_code"`
	PreviousYKSRank *int      `json:"previous_yks_rank"`
	City            string    `json:"city"`
}

func (p CustomerCreate) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FullName, validation.Required),
		validation.Field(&p.Email, is.Email),
	)
}

// Total sums the booked camp prices. A positive total marks the customer paid
// and produces a financial transaction.
func (p CustomerCreate) Total() float64 {
	var total float64
	for _, v := range p.Prices {
		total += v
	}
	return total
}

// ErrCustomerNotFound is returned for lookups of missing customers.
var ErrCustomerNotFound = errors.New("customer not found")

// CustomerRepository defines persistence operations for customers.
type CustomerRepository interface {
	Create(ctx context.Context, p CustomerCreate, isPaid bool) (*Customer, error)
	List(ctx context.Context, includeDeleted bool) ([]Customer, error)
	FindByID(ctx context.Context, id int64) (*Customer, error)
	// SoftDelete marks the customer and its financial transactions deleted.
	SoftDelete(ctx context.Context, id int64) error
	ListActiveByPartnershipCode(ctx context.Context, code string) ([]Customer, error)
}

// PgCustomerRepository implements CustomerRepository using pgxpool.
type PgCustomerRepository struct {
	db *pgxpool.Pool
}

func NewPgCustomerRepository(db *pgxpool.Pool) *PgCustomerRepository {
	return &PgCustomerRepository{db: db}
}

const customerColumns = `id, full_name, phone, email, class_level, camps, prices,
partnership_code, previous_yks_rank, city, is_paid, is_deleted, deleted_at, created_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	var camps, prices []byte
	err := row.Scan(&c.ID, &c.FullName, &c.Phone, &c.Email, &c.ClassLevel, &camps, &prices,
		&c.PartnershipCode, &c.PreviousYKSRank, &c.City, &c.IsPaid, &c.IsDeleted, &c.DeletedAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	c.Camps = []string{}
	c.Prices = []float64{}
	if len(camps) > 0 {
		_ = json.Unmarshal(camps, &c.Camps)
	}
	if len(prices) > 0 {
		_ = json.Unmarshal(prices, &c.Prices)
	}
	return &c, nil
}

func (r *PgCustomerRepository) Create(ctx context.Context, p CustomerCreate, isPaid bool) (*Customer, error) {
	camps, err := json.Marshal(orEmpty(p.Camps))
	if err != nil {
		return nil, err
	}
	prices, err := json.Marshal(orEmptyFloat(p.Prices))
	if err != nil {
		return nil, err
	}

	var code *string
	if p.PartnershipCode != "" {
		code = &p.PartnershipCode
	}

	q := `INSERT INTO customers (full_name, phone, email, class_level, camps, prices,
partnership_code, previous_yks_rank, city, is_paid)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING ` + customerColumns
	return scanCustomer(r.db.QueryRow(ctx, q,
		p.FullName, p.Phone, p.Email, p.ClassLevel, camps, prices,
		code, p.PreviousYKSRank, p.City, isPaid))
}

func (r *PgCustomerRepository) List(ctx context.Context, includeDeleted bool) ([]Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers`
	if !includeDeleted {
		q += ` WHERE NOT is_deleted`
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func (r *PgCustomerRepository) FindByID(ctx context.Context, id int64) (*Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE id=$1`
	return scanCustomer(r.db.QueryRow(ctx, q, id))
}

func (r *PgCustomerRepository) SoftDelete(ctx context.Context, id int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE customers SET is_deleted=TRUE, deleted_at=now() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	if _, err := tx.Exec(ctx, `UPDATE financial_transactions SET is_deleted=TRUE WHERE customer_id=$1 AND NOT is_deleted`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PgCustomerRepository) ListActiveByPartnershipCode(ctx context.Context, code string) ([]Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE partnership_code=$1 AND NOT is_deleted`
	rows, err := r.db.Query(ctx, q, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func orEmptyFloat(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
