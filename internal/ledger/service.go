package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/otienodev/kodi/internal/month"
	"github.com/otienodev/kodi/internal/tenant"
)

//go:generate mockgen -source=service.go -destination=service_mock.go -package=ledger
type Repository interface {
	CreateRecord(ctx context.Context, rec *RentRecord) error
	GetRecord(ctx context.Context, id uuid.UUID) (*RentRecord, error)
	GetRecordForMonth(ctx context.Context, tenantID uuid.UUID, m month.Month) (*RentRecord, error)
	AddPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*RentRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdateCharges(ctx context.Context, rec *RentRecord) error
	ListRecords(ctx context.Context, tenantID uuid.UUID) ([]*RentRecord, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// TenantDirectory is the slice of the tenant directory the engine needs:
// enumerate tenants eligible for billing and write back billing state.
type TenantDirectory interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
	ListActive(ctx context.Context) ([]*tenant.Tenant, error)
	UpdateBilling(ctx context.Context, id uuid.UUID, up tenant.BillingUpdate) error
	MarkOverdue(ctx context.Context) (int64, error)
}

// Recorder receives ledger activity counts. Implemented by internal/metrics.
type Recorder interface {
	RecordGenerated()
	GenerationFailed()
	PaymentApplied()
}

type nopRecorder struct{}

func (nopRecorder) RecordGenerated()  {}
func (nopRecorder) GenerationFailed() {}
func (nopRecorder) PaymentApplied()   {}

// Config carries the billing parameters the engine depends on. Timezone is
// the billing timezone the calendar month is evaluated in; DueDay is the day
// of the month rent falls due. Now is overridable for tests.
type Config struct {
	Timezone *time.Location
	DueDay   int
	Now      func() time.Time
}

const defaultDueDay = 5

type Service struct {
	repo    Repository
	tenants TenantDirectory
	rec     Recorder

	tz     *time.Location
	dueDay int
	now    func() time.Time

	locks *tenantLocks
}

func NewService(repo Repository, tenants TenantDirectory, cfg Config, rec Recorder) *Service {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}

	if cfg.DueDay <= 0 {
		cfg.DueDay = defaultDueDay
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if rec == nil {
		rec = nopRecorder{}
	}

	return &Service{
		repo:    repo,
		tenants: tenants,
		rec:     rec,
		tz:      cfg.Timezone,
		dueDay:  cfg.DueDay,
		now:     cfg.Now,
		locks:   newTenantLocks(),
	}
}

// GenerationResult summarizes one run of the monthly generation job.
type GenerationResult struct {
	Month     month.Month
	Generated int
	Skipped   int
	Failed    int
	Overdue   int
}

// GenerateMonthly ensures every active tenant has a rent record for the
// current billing month, carrying the prior month's unsettled balance
// forward. Safe to run any number of times per day: tenants whose record
// already exists are skipped. One tenant's failure never aborts the batch;
// the job only returns an error when the tenant list itself cannot be read
// or the context is cancelled.
func (s *Service) GenerateMonthly(ctx context.Context) (GenerationResult, error) {
	now := s.now()
	cur := month.FromTime(now, s.tz)
	res := GenerationResult{Month: cur}

	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return res, fmt.Errorf("listing active tenants: %w", err)
	}

	for _, t := range tenants {
		// Each tenant's unit of work is self-contained and idempotent,
		// so cancellation between tenants is safe.
		if err := ctx.Err(); err != nil {
			return res, err
		}

		created, err := s.generateFor(ctx, t, cur, now)
		if err != nil {
			res.Failed++
			s.rec.GenerationFailed()
			slog.Error("rent generation failed for tenant",
				"tenant_id", t.ID, "month", cur.String(), "error", err)

			continue
		}

		if created {
			res.Generated++
			s.rec.RecordGenerated()
		} else {
			res.Skipped++
		}
	}

	res.Overdue = s.sweepOverdue(ctx, now)

	slog.Info("rent generation complete", "month", cur.String(),
		"generated", res.Generated, "skipped", res.Skipped,
		"failed", res.Failed, "overdue", res.Overdue)

	return res, nil
}

// sweepOverdue flips unpaid records whose due date has passed to overdue and
// mirrors the state onto the affected tenants. Runs with the daily job; a
// failure here is logged, not propagated, so it cannot block generation.
func (s *Service) sweepOverdue(ctx context.Context, now time.Time) int {
	marked, err := s.repo.MarkOverdue(ctx, now)
	if err != nil {
		slog.Error("overdue sweep failed", "error", err)
		return 0
	}

	if marked > 0 {
		if _, err := s.tenants.MarkOverdue(ctx); err != nil {
			slog.Error("tenant overdue sweep failed", "error", err)
		}
	}

	return int(marked)
}

func (s *Service) generateFor(ctx context.Context, t *tenant.Tenant, m month.Month, now time.Time) (bool, error) {
	unlock := s.locks.lock(t.ID)
	defer unlock()

	_, err := s.repo.GetRecordForMonth(ctx, t.ID, m)
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("checking existing record: %w", err)
	}

	// The ListActive snapshot was taken outside the lock; a payment may have
	// moved the balance since. Re-read so the increment starts from the
	// current row.
	t, err = s.tenants.GetTenant(ctx, t.ID)
	if err != nil {
		return false, fmt.Errorf("reloading tenant: %w", err)
	}

	rec, err := s.buildRecord(ctx, t, m, now)
	if err != nil {
		return false, err
	}

	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		// A concurrent writer got there first; the unique constraint
		// makes that a no-op rather than a double bill.
		if errors.Is(err, ErrDuplicateRecord) {
			return false, nil
		}

		return false, fmt.Errorf("creating record: %w", err)
	}

	up := tenant.BillingUpdate{
		Balance:       t.Balance.Add(t.MonthlyRent),
		CurrentMonth:  &m,
		PaymentStatus: tenant.PaymentStatusPending,
	}
	if err := s.tenants.UpdateBilling(ctx, t.ID, up); err != nil {
		return true, fmt.Errorf("updating tenant billing: %w", err)
	}

	return true, nil
}

// buildRecord assembles a fresh record for m, inheriting arrears or credit
// from the immediately preceding month's record when one exists.
func (s *Service) buildRecord(ctx context.Context, t *tenant.Tenant, m month.Month, now time.Time) (*RentRecord, error) {
	var cf CarryForward

	prev, err := s.repo.GetRecordForMonth(ctx, t.ID, m.Prev())

	switch {
	case err == nil:
		cf = prev.RollOver()
	case errors.Is(err, ErrNotFound):
		// First month on the ledger; nothing carries forward.
	default:
		return nil, fmt.Errorf("loading prior record: %w", err)
	}

	return &RentRecord{
		TenantID:        t.ID,
		Month:           m,
		Amount:          t.MonthlyRent,
		PreviousBalance: cf.Arrears,
		CreditBalance:   cf.Credit,
		CarriedForward:  carriedForwardAmount(t.MonthlyRent, cf.Arrears, cf.Credit),
		Status:          StatusPending,
		DueDate:         dueDate(m, s.dueDay, now, s.tz),
	}, nil
}

// PaymentParams is a confirmed payment handed to the engine. Callers confirm
// the underlying payment before calling; the engine only applies it.
type PaymentParams struct {
	TenantID uuid.UUID
	Amount   decimal.Decimal
	Date     time.Time
}

// ApplyPayment credits a confirmed payment against the tenant's record for
// the month the payment date falls in, then recomputes record status and
// tenant balance/payment status.
func (s *Service) ApplyPayment(ctx context.Context, p PaymentParams) (*RentRecord, error) {
	if !p.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	// Lock before reading the tenant: a balance read taken outside the
	// critical section lets two racing payments deduct from the same
	// starting balance and the second write erase the first.
	unlock := s.locks.lock(p.TenantID)
	defer unlock()

	t, err := s.tenants.GetTenant(ctx, p.TenantID)
	if err != nil {
		return nil, err
	}

	m := month.FromTime(p.Date, s.tz)

	rec, err := s.repo.GetRecordForMonth(ctx, t.ID, m)
	if errors.Is(err, ErrNotFound) {
		// Generation has not produced this month's record yet. The prior
		// month's record is on the ledger, so the carry-forward is computable
		// rather than fabricated.
		slog.Warn("no rent record for payment month, creating",
			"tenant_id", t.ID, "month", m.String())

		rec, err = s.ensureRecord(ctx, t, m)
	}

	if err != nil {
		return nil, err
	}

	updated, err := s.repo.AddPayment(ctx, rec.ID, p.Amount)
	if err != nil {
		return nil, fmt.Errorf("applying payment: %w", err)
	}

	newStatus := statusForPayment(updated.AmountPaid, updated.CarriedForward)
	if newStatus != updated.Status {
		if err := s.repo.UpdateStatus(ctx, updated.ID, newStatus); err != nil {
			return nil, fmt.Errorf("updating record status: %w", err)
		}

		updated.Status = newStatus
	}

	balance := t.Balance.Sub(p.Amount)
	currentMonth := t.CurrentMonth

	if currentMonth == nil || *currentMonth != m {
		// Catching up on a month the tenant's balance no longer reflects:
		// reset to that month's obligation net of everything paid on it, so
		// repeat payments against the same record do not compound the reset.
		balance = updated.CarriedForward.Sub(updated.AmountPaid)

		if currentMonth == nil || currentMonth.Before(m) {
			currentMonth = &m
		}
	}

	up := tenant.BillingUpdate{
		Balance:       balance,
		CurrentMonth:  currentMonth,
		PaymentStatus: paymentStatusFor(balance, t.MonthlyRent),
	}
	if err := s.tenants.UpdateBilling(ctx, t.ID, up); err != nil {
		return nil, fmt.Errorf("updating tenant billing: %w", err)
	}

	s.rec.PaymentApplied()

	return updated, nil
}

func paymentStatusFor(balance, monthlyRent decimal.Decimal) tenant.PaymentStatus {
	switch {
	case balance.LessThanOrEqual(decimal.Zero):
		return tenant.PaymentStatusPaid
	case balance.LessThan(monthlyRent):
		return tenant.PaymentStatusPartial
	default:
		return tenant.PaymentStatusPending
	}
}

// ensureRecord creates the record for m through the same carry-forward path
// the generation job uses, absorbing a duplicate if a concurrent writer wins.
func (s *Service) ensureRecord(ctx context.Context, t *tenant.Tenant, m month.Month) (*RentRecord, error) {
	rec, err := s.buildRecord(ctx, t, m, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateRecord(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			return s.repo.GetRecordForMonth(ctx, t.ID, m)
		}

		return nil, fmt.Errorf("creating record: %w", err)
	}

	return rec, nil
}

// UtilityParams carries utility line items to set on the current month's
// record. Nil fields are left unchanged.
type UtilityParams struct {
	Water       *decimal.Decimal
	Electricity *decimal.Decimal
	Garbage     *decimal.Decimal
	Security    *decimal.Decimal
}

func (u UtilityParams) validate() error {
	for _, v := range []*decimal.Decimal{u.Water, u.Electricity, u.Garbage, u.Security} {
		if v != nil && v.IsNegative() {
			return ErrNegativeCharge
		}
	}

	return nil
}

// UpdateUtilities sets utility charges on the tenant's current-month record,
// recomputing the subtotal and the carried-forward amount. Payments and
// inherited arrears/credit are never touched.
func (s *Service) UpdateUtilities(ctx context.Context, tenantID uuid.UUID, u UtilityParams) (*RentRecord, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}

	t, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(t.ID)
	defer unlock()

	m := month.FromTime(s.now(), s.tz)

	rec, err := s.repo.GetRecordForMonth(ctx, t.ID, m)
	if errors.Is(err, ErrNotFound) {
		rec, err = s.ensureRecord(ctx, t, m)
	}

	if err != nil {
		return nil, err
	}

	if u.Water != nil {
		rec.Water = *u.Water
	}

	if u.Electricity != nil {
		rec.Electricity = *u.Electricity
	}

	if u.Garbage != nil {
		rec.Garbage = *u.Garbage
	}

	if u.Security != nil {
		rec.Security = *u.Security
	}

	rec.Amount = t.MonthlyRent.
		Add(rec.Water).
		Add(rec.Electricity).
		Add(rec.Garbage).
		Add(rec.Security)
	rec.CarriedForward = carriedForwardAmount(rec.Amount, rec.PreviousBalance, rec.CreditBalance)
	rec.Status = statusForPayment(rec.AmountPaid, rec.CarriedForward)

	if err := s.repo.UpdateCharges(ctx, rec); err != nil {
		return nil, fmt.Errorf("updating charges: %w", err)
	}

	return rec, nil
}

// History returns all rent records for a tenant, most recent month first.
func (s *Service) History(ctx context.Context, tenantID uuid.UUID) ([]*RentRecord, error) {
	return s.repo.ListRecords(ctx, tenantID)
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*RentRecord, error) {
	return s.repo.GetRecord(ctx, id)
}
