package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/otienodev/kodi/internal/ledger"
	"github.com/otienodev/kodi/internal/month"
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

const selectRecordColumns = `
	id, tenant_id, month, amount, water, electricity, garbage, security,
	previous_balance, credit_balance, carried_forward, amount_paid,
	status, due_date, created_at, updated_at
`

// scanRecord reads a rent record row from the scanner.
// Expected column order matches selectRecordColumns.
func scanRecord(s scanner) (*ledger.RentRecord, error) {
	var rec ledger.RentRecord

	var monthStr, statusStr string

	if err := s.Scan(
		&rec.ID, &rec.TenantID, &monthStr, &rec.Amount,
		&rec.Water, &rec.Electricity, &rec.Garbage, &rec.Security,
		&rec.PreviousBalance, &rec.CreditBalance, &rec.CarriedForward, &rec.AmountPaid,
		&statusStr, &rec.DueDate, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	m, err := month.Parse(monthStr)
	if err != nil {
		return nil, fmt.Errorf("stored month: %w", err)
	}

	rec.Month = m
	rec.Status = ledger.Status(statusStr)

	return &rec, nil
}

// CreateRecord inserts a record for (tenant, month). The unique constraint
// on the pair makes a racing duplicate insert a no-op, which surfaces here
// as ErrDuplicateRecord.
func (s *Store) CreateRecord(ctx context.Context, rec *ledger.RentRecord) error {
	query := `
		INSERT INTO rent_records (
			tenant_id, month, amount, water, electricity, garbage, security,
			previous_balance, credit_balance, carried_forward, amount_paid,
			status, due_date, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		ON CONFLICT (tenant_id, month) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		rec.TenantID,
		rec.Month.String(),
		rec.Amount,
		rec.Water,
		rec.Electricity,
		rec.Garbage,
		rec.Security,
		rec.PreviousBalance,
		rec.CreditBalance,
		rec.CarriedForward,
		rec.AmountPaid,
		rec.Status,
		rec.DueDate,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ledger.ErrDuplicateRecord
		}

		return fmt.Errorf("creating rent record: %w", err)
	}

	return nil
}

func (s *Store) GetRecord(ctx context.Context, id uuid.UUID) (*ledger.RentRecord, error) {
	query := `SELECT ` + selectRecordColumns + ` FROM rent_records WHERE id = $1`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting rent record: %w", err)
	}

	return rec, nil
}

func (s *Store) GetRecordForMonth(ctx context.Context, tenantID uuid.UUID, m month.Month) (*ledger.RentRecord, error) {
	query := `SELECT ` + selectRecordColumns + ` FROM rent_records WHERE tenant_id = $1 AND month = $2`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, tenantID, m.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("getting rent record for month: %w", err)
	}

	return rec, nil
}

// AddPayment increments amount_paid in place so concurrent payments
// accumulate instead of overwriting each other, and returns the updated row.
func (s *Store) AddPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*ledger.RentRecord, error) {
	query := `
		UPDATE rent_records
		SET amount_paid = amount_paid + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + selectRecordColumns

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, amount, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ledger.ErrNotFound
		}

		return nil, fmt.Errorf("adding payment: %w", err)
	}

	return rec, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status ledger.Status) error {
	query := `
		UPDATE rent_records
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	res, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("updating record status: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}

	return nil
}

// UpdateCharges writes the utility line items and the recomputed subtotal,
// carried-forward amount and status. amount_paid and the inherited
// arrears/credit columns are deliberately not in the SET list.
func (s *Store) UpdateCharges(ctx context.Context, rec *ledger.RentRecord) error {
	query := `
		UPDATE rent_records
		SET water = $1, electricity = $2, garbage = $3, security = $4,
			amount = $5, carried_forward = $6, status = $7, updated_at = NOW()
		WHERE id = $8
	`

	res, err := s.db.ExecContext(ctx, query,
		rec.Water,
		rec.Electricity,
		rec.Garbage,
		rec.Security,
		rec.Amount,
		rec.CarriedForward,
		rec.Status,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating charges: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}

	return nil
}

// MarkOverdue flips every unpaid record whose due day has fully passed as of
// asOf to overdue. Records dated the due day itself are not yet overdue.
func (s *Store) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE rent_records
		SET status = $1, updated_at = NOW()
		WHERE status IN ($2, $3) AND due_date + INTERVAL '1 day' <= $4
	`

	res, err := s.db.ExecContext(ctx, query,
		ledger.StatusOverdue, ledger.StatusPending, ledger.StatusPartial, asOf)
	if err != nil {
		return 0, fmt.Errorf("marking overdue records: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting overdue records: %w", err)
	}

	return n, nil
}

func (s *Store) ListRecords(ctx context.Context, tenantID uuid.UUID) ([]*ledger.RentRecord, error) {
	query := `SELECT ` + selectRecordColumns + `
		FROM rent_records
		WHERE tenant_id = $1
		ORDER BY month DESC`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing rent records: %w", err)
	}
	defer rows.Close()

	var recs []*ledger.RentRecord

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rent record: %w", err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rent record rows: %w", err)
	}

	return recs, nil
}
