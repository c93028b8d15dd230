package core

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memUserRepo is an in-memory UserRepository for handler and bootstrap tests.
type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*UserRecord
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[int64]*UserRecord{}}
}

func (r *memUserRepo) add(rec UserRecord) *UserRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.ID = r.nextID
	rec.Email = strings.ToLower(strings.TrimSpace(rec.Email))
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	cp := rec
	r.users[rec.ID] = &cp
	return &cp
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memUserRepo) FindByID(ctx context.Context, id int64) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Create(ctx context.Context, rec UserRecord) (int64, error) {
	return r.add(rec).ID, nil
}

func (r *memUserRepo) List(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := []User{}
	for i := int64(1); i <= r.nextID; i++ {
		if u, ok := r.users[i]; ok {
			items = append(items, u.User())
		}
	}
	return items, nil
}

func (r *memUserRepo) UpdateAccess(ctx context.Context, id int64, upd UserUpdate) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.CanManageCustomers, upd.CanManageCustomers)
	set(&u.CanViewFinancials, upd.CanViewFinancials)
	set(&u.CanManagePartnershipCodes, upd.CanManagePartnershipCodes)
	set(&u.CanViewPartnershipStats, upd.CanViewPartnershipStats)
	set(&u.CanManageAccess, upd.CanManageAccess)
	set(&u.IsActive, upd.IsActive)
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Deactivate(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.IsActive = false
	return nil
}

func (r *memUserRepo) HasAccessManager(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.CanManageAccess {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

// memCustomerRepo is an in-memory CustomerRepository.
type memCustomerRepo struct {
	mu        sync.Mutex
	nextID    int64
	customers map[int64]*Customer
}

func newMemCustomerRepo() *memCustomerRepo {
	return &memCustomerRepo{customers: map[int64]*Customer{}}
}

func (r *memCustomerRepo) Create(ctx context.Context, p CustomerCreate, isPaid bool) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := &Customer{
		ID:              r.nextID,
		FullName:        p.FullName,
		Phone:           p.Phone,
		Email:           p.Email,
		ClassLevel:      p.ClassLevel,
		Camps:           p.Camps,
		Prices:          p.Prices,
		PreviousYKSRank: p.PreviousYKSRank,
		City:            p.City,
		IsPaid:          isPaid,
		CreatedAt:       time.Now(),
	}
	if p.PartnershipCode != "" {
		code := p.PartnershipCode
		c.PartnershipCode = &code
	}
	r.customers[c.ID] = c
	cp := *c
	return &cp, nil
}

func (r *memCustomerRepo) List(ctx context.Context, includeDeleted bool) ([]Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := []Customer{}
	for i := int64(1); i <= r.nextID; i++ {
		c, ok := r.customers[i]
		if !ok || (c.IsDeleted && !includeDeleted) {
			continue
		}
		items = append(items, *c)
	}
	return items, nil
}

func (r *memCustomerRepo) FindByID(ctx context.Context, id int64) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCustomerRepo) SoftDelete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return ErrCustomerNotFound
	}
	now := time.Now()
	c.IsDeleted = true
	c.DeletedAt = &now
	return nil
}

func (r *memCustomerRepo) ListActiveByPartnershipCode(ctx context.Context, code string) ([]Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := []Customer{}
	for i := int64(1); i <= r.nextID; i++ {
		c, ok := r.customers[i]
		if !ok || c.IsDeleted || c.PartnershipCode == nil || *c.PartnershipCode != code {
			continue
		}
		items = append(items, *c)
	}
	return items, nil
}

// memPartnershipRepo is an in-memory PartnershipRepository.
type memPartnershipRepo struct {
	mu     sync.Mutex
	nextID int64
	codes  map[int64]*PartnershipCode
}

func newMemPartnershipRepo() *memPartnershipRepo {
	return &memPartnershipRepo{codes: map[int64]*PartnershipCode{}}
}

func (r *memPartnershipRepo) Create(ctx context.Context, code string) (*PartnershipCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.codes {
		if p.Code == code {
			return nil, ErrCodeExists
		}
	}
	r.nextID++
	p := &PartnershipCode{ID: r.nextID, Code: code, IsActive: true, CreatedAt: time.Now()}
	r.codes[p.ID] = p
	cp := *p
	return &cp, nil
}

func (r *memPartnershipRepo) List(ctx context.Context) ([]PartnershipCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := []PartnershipCode{}
	for i := int64(1); i <= r.nextID; i++ {
		if p, ok := r.codes[i]; ok {
			items = append(items, *p)
		}
	}
	return items, nil
}

func (r *memPartnershipRepo) FindActive(ctx context.Context, code string) (*PartnershipCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.codes {
		if p.Code == code && p.IsActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrCodeNotFound
}

func (r *memPartnershipRepo) Deactivate(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.codes[id]
	if !ok {
		return ErrCodeNotFound
	}
	p.IsActive = false
	return nil
}

// memFinancialRepo is an in-memory FinancialRepository.
type memFinancialRepo struct {
	mu           sync.Mutex
	transactions []FinancialTransaction
}

func (r *memFinancialRepo) Record(ctx context.Context, customerID int64, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, FinancialTransaction{
		ID:              int64(len(r.transactions) + 1),
		CustomerID:      customerID,
		Amount:          amount,
		TransactionDate: time.Now(),
	})
	return nil
}

func (r *memFinancialRepo) ListActive(ctx context.Context) ([]FinancialTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FinancialTransaction{}, r.transactions...), nil
}

func (r *memFinancialRepo) ListActiveDetails(ctx context.Context) ([]FinancialDetail, error) {
	return []FinancialDetail{}, nil
}

// memActivityRepo is an in-memory ActivityRepository.
type memActivityRepo struct {
	mu        sync.Mutex
	entries   []ActivityEntry
	insertErr error
}

func (r *memActivityRepo) Insert(ctx context.Context, ev ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.entries = append(r.entries, ActivityEntry{
		ID:         int64(len(r.entries) + 1),
		Event:      ev.Event,
		Actor:      ev.Actor,
		Subject:    ev.Subject,
		Detail:     ev.Detail,
		OccurredAt: ev.OccurredAt,
		RecordedAt: time.Now(),
	})
	return nil
}

func (r *memActivityRepo) ListRecent(ctx context.Context, limit int) ([]ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	items := []ActivityEntry{}
	for i := len(r.entries) - 1; i >= 0 && len(items) < limit; i-- {
		items = append(items, r.entries[i])
	}
	return items, nil
}
