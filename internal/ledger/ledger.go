package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/otienodev/kodi/internal/month"
)

var (
	ErrNotFound        = errors.New("rent record not found")
	ErrDuplicateRecord = errors.New("rent record already exists for month")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrNegativeCharge  = errors.New("utility charges cannot be negative")
)

// Status represents where a rent record stands against its carried-forward
// amount.
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// RentRecord is one tenant's obligation for one billing month. Amount is the
// pre-carry subtotal (base rent plus utilities); CarriedForward is the actual
// amount due after applying arrears and credit inherited from the prior
// month. Exactly one record exists per (tenant, month).
type RentRecord struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Month           month.Month
	Amount          decimal.Decimal
	Water           decimal.Decimal
	Electricity     decimal.Decimal
	Garbage         decimal.Decimal
	Security        decimal.Decimal
	PreviousBalance decimal.Decimal
	CreditBalance   decimal.Decimal
	CarriedForward  decimal.Decimal
	AmountPaid      decimal.Decimal
	Status          Status
	DueDate         time.Time
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// CarryForward is what a settled-or-not month leaves behind for its
// successor: unpaid arrears, or unconsumed credit. At most one of the two is
// positive.
type CarryForward struct {
	Arrears decimal.Decimal
	Credit  decimal.Decimal
}

// RollOver computes the carry-forward this record leaves for the following
// month. Credit that exceeded this month's charges is not lost: the clamp in
// carriedForwardAmount never consumed it, so it rolls over until exhausted.
func (r *RentRecord) RollOver() CarryForward {
	arrears := r.CarriedForward.Sub(r.AmountPaid)
	if arrears.IsNegative() {
		arrears = decimal.Zero
	}

	credit := r.AmountPaid.Sub(r.CarriedForward)
	if credit.IsNegative() {
		credit = decimal.Zero
	}

	surplus := r.CreditBalance.Sub(r.Amount.Add(r.PreviousBalance))
	if surplus.IsPositive() {
		credit = credit.Add(surplus)
	}

	return CarryForward{Arrears: arrears, Credit: credit}
}

// carriedForwardAmount is the amount actually due for a month: subtotal plus
// arrears minus credit, clamped at zero so credit can never make the due
// amount negative.
func carriedForwardAmount(amount, previousBalance, creditBalance decimal.Decimal) decimal.Decimal {
	due := amount.Add(previousBalance).Sub(creditBalance)
	if due.IsNegative() {
		return decimal.Zero
	}

	return due
}

// statusForPayment derives a record's status from cumulative payments
// against the carried-forward amount.
func statusForPayment(paid, due decimal.Decimal) Status {
	switch {
	case paid.GreaterThanOrEqual(due):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusPending
	}
}

// dueDate is the configured day of the billing month, or the same day of the
// following month when that day has already passed. The due day itself has
// not passed: a record generated at noon on the 5th is still due that 5th.
func dueDate(m month.Month, day int, now time.Time, loc *time.Location) time.Time {
	d := m.Day(day, loc)
	if !now.Before(d.AddDate(0, 0, 1)) {
		d = m.Next().Day(day, loc)
	}

	return d
}
