package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/otienodev/kodi/internal/month"
	"github.com/otienodev/kodi/internal/tenant"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTenantColumns = `
	id, name, phone, unit, lease_start, lease_end, monthly_rent,
	balance, current_month, payment_status, status, created_at, updated_at
`

// scanTenant reads a tenant row from the scanner and returns a populated Tenant.
// Expected column order matches selectTenantColumns.
func scanTenant(s scanner) (*tenant.Tenant, error) {
	var t tenant.Tenant

	var statusStr, paymentStatusStr string

	var currentMonth sql.NullString

	if err := s.Scan(
		&t.ID, &t.Name, &t.Phone, &t.Unit, &t.LeaseStart, &t.LeaseEnd, &t.MonthlyRent,
		&t.Balance, &currentMonth, &paymentStatusStr, &statusStr,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	t.Status = tenant.Status(statusStr)
	t.PaymentStatus = tenant.PaymentStatus(paymentStatusStr)

	if currentMonth.Valid {
		m, err := month.Parse(currentMonth.String)
		if err != nil {
			return nil, fmt.Errorf("stored current_month: %w", err)
		}

		t.CurrentMonth = &m
	}

	return &t, nil
}

func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	query := `SELECT ` + selectTenantColumns + ` FROM tenants WHERE id = $1`

	t, err := scanTenant(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, tenant.ErrNotFound
		}

		return nil, fmt.Errorf("getting tenant: %w", err)
	}

	return t, nil
}

func (s *Store) ListTenants(ctx context.Context, filter tenant.ListFilter) ([]*tenant.Tenant, error) {
	query := `SELECT ` + selectTenantColumns + ` FROM tenants`

	var args []any

	if filter.Status != nil {
		query += ` WHERE status = $1`

		args = append(args, *filter.Status)
	}

	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant

	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}

		tenants = append(tenants, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tenant rows: %w", err)
	}

	return tenants, nil
}

// ListActive returns the tenants that participate in rent generation.
func (s *Store) ListActive(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.ListTenants(ctx, tenant.ListFilter{Status: new(tenant.StatusActive)})
}

func (s *Store) FindByPhoneSuffix(ctx context.Context, suffix string) (*tenant.Tenant, error) {
	query := `SELECT ` + selectTenantColumns + `
		FROM tenants
		WHERE regexp_replace(phone, '\D', '', 'g') LIKE '%' || $1
		ORDER BY created_at DESC
		LIMIT 1`

	t, err := scanTenant(s.db.QueryRowContext(ctx, query, suffix))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, tenant.ErrNotFound
		}

		return nil, fmt.Errorf("finding tenant by phone suffix: %w", err)
	}

	return t, nil
}

func (s *Store) UpdateLeaseEnd(ctx context.Context, id uuid.UUID, end time.Time) error {
	query := `
		UPDATE tenants
		SET lease_end = $1, updated_at = NOW()
		WHERE id = $2
	`

	res, err := s.db.ExecContext(ctx, query, end, id)
	if err != nil {
		return fmt.Errorf("updating lease end: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tenant.ErrNotFound
	}

	return nil
}

// MarkOverdue mirrors overdue rent records onto their tenants: any tenant
// whose current-month record has gone overdue and who still shows pending or
// partial is flipped to overdue.
func (s *Store) MarkOverdue(ctx context.Context) (int64, error) {
	query := `
		UPDATE tenants t
		SET payment_status = $1, updated_at = NOW()
		FROM rent_records r
		WHERE r.tenant_id = t.id
			AND r.month = t.current_month
			AND r.status = 'overdue'
			AND t.payment_status IN ($2, $3)
	`

	res, err := s.db.ExecContext(ctx, query,
		tenant.PaymentStatusOverdue, tenant.PaymentStatusPending, tenant.PaymentStatusPartial)
	if err != nil {
		return 0, fmt.Errorf("marking overdue tenants: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting overdue tenants: %w", err)
	}

	return n, nil
}

// UpdateBilling writes the billing slice of a tenant. The ledger engine is
// the only caller; it never touches identity or lease fields.
func (s *Store) UpdateBilling(ctx context.Context, id uuid.UUID, up tenant.BillingUpdate) error {
	query := `
		UPDATE tenants
		SET balance = $1, current_month = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $4
	`

	var currentMonth sql.NullString
	if up.CurrentMonth != nil {
		currentMonth = sql.NullString{String: up.CurrentMonth.String(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, query, up.Balance, currentMonth, up.PaymentStatus, id)
	if err != nil {
		return fmt.Errorf("updating tenant billing: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tenant.ErrNotFound
	}

	return nil
}
