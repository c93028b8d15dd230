package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FinancialTransaction is one payment tied to a customer.
type FinancialTransaction struct {
	ID              int64     `json:"id"`
	CustomerID      int64     `json:"customer_id"`
	Amount          float64   `json:"amount"`
	TransactionDate time.Time `json:"transaction_date"`
}

// FinancialDetail is a transaction joined with its (non-deleted) customer.
type FinancialDetail struct {
	CustomerID      int64     `json:"customer_id"`
	CustomerName    string    `json:"customer_name"`
	Amount          float64   `json:"amount"`
	TransactionDate time.Time `json:"transaction_date"`
}

// FinancialPeriod aggregates revenue per rolling window.
type FinancialPeriod struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
	Yearly  float64 `json:"yearly"`
}

// FinancialReport is the GET /financials response.
type FinancialReport struct {
	Period  FinancialPeriod   `json:"period"`
	Details []FinancialDetail `json:"details"`
	Total   float64           `json:"total"`
}

// FinancialRepository defines persistence operations for transactions.
type FinancialRepository interface {
	Record(ctx context.Context, customerID int64, amount float64) error
	ListActive(ctx context.Context) ([]FinancialTransaction, error)
	// ListActiveDetails joins active transactions with non-deleted customers.
	ListActiveDetails(ctx context.Context) ([]FinancialDetail, error)
}

// PgFinancialRepository implements FinancialRepository using pgxpool.
type PgFinancialRepository struct {
	db *pgxpool.Pool
}

func NewPgFinancialRepository(db *pgxpool.Pool) *PgFinancialRepository {
	return &PgFinancialRepository{db: db}
}

func (r *PgFinancialRepository) Record(ctx context.Context, customerID int64, amount float64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO financial_transactions (customer_id, amount) VALUES ($1,$2)`, customerID, amount)
	return err
}

func (r *PgFinancialRepository) ListActive(ctx context.Context) ([]FinancialTransaction, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, customer_id, amount, transaction_date
FROM financial_transactions
WHERE NOT is_deleted
ORDER BY transaction_date DESC, id DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []FinancialTransaction{}
	for rows.Next() {
		var t FinancialTransaction
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.Amount, &t.TransactionDate); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *PgFinancialRepository) ListActiveDetails(ctx context.Context) ([]FinancialDetail, error) {
	rows, err := r.db.Query(ctx, `
SELECT c.id, c.full_name, t.amount, t.transaction_date
FROM financial_transactions t
JOIN customers c ON c.id = t.customer_id
WHERE NOT t.is_deleted AND NOT c.is_deleted
ORDER BY t.transaction_date DESC, t.id DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []FinancialDetail{}
	for rows.Next() {
		var d FinancialDetail
		if err := rows.Scan(&d.CustomerID, &d.CustomerName, &d.Amount, &d.TransactionDate); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// BuildFinancialReport folds active transactions into period totals. Weeks
// start on Monday; the daily window starts at local midnight.
func BuildFinancialReport(transactions []FinancialTransaction, details []FinancialDetail, now time.Time) FinancialReport {
	day := dayStart(now)
	week := weekStart(now)
	month := monthStart(now)
	year := yearStart(now)

	var report FinancialReport
	for _, t := range transactions {
		report.Total += t.Amount
		if !t.TransactionDate.Before(day) {
			report.Period.Daily += t.Amount
		}
		if !t.TransactionDate.Before(week) {
			report.Period.Weekly += t.Amount
		}
		if !t.TransactionDate.Before(month) {
			report.Period.Monthly += t.Amount
		}
		if !t.TransactionDate.Before(year) {
			report.Period.Yearly += t.Amount
		}
	}
	if details == nil {
		details = []FinancialDetail{}
	}
	report.Details = details
	return report
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func weekStart(t time.Time) time.Time {
	d := dayStart(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -offset)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func yearStart(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}
