package tenant

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/otienodev/kodi/internal/month"
)

var ErrNotFound = errors.New("tenant not found")

// Status represents the lifecycle state of a tenancy.
type Status string

const (
	StatusActive  Status = "active"
	StatusPending Status = "pending"
	StatusExpired Status = "expired"
)

// PaymentStatus summarizes where the tenant stands against the current
// billing month.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

// Tenant is one renter on a lease. Balance is signed: positive means the
// tenant owes, negative means they hold credit. CurrentMonth is the billing
// period Balance and PaymentStatus currently reflect; it is nil until the
// first rent record is generated.
type Tenant struct {
	ID            uuid.UUID
	Name          string
	Phone         string
	Unit          string
	LeaseStart    time.Time
	LeaseEnd      time.Time
	MonthlyRent   decimal.Decimal
	Balance       decimal.Decimal
	CurrentMonth  *month.Month
	PaymentStatus PaymentStatus
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// BillingUpdate is the slice of a tenant the ledger engine is allowed to
// mutate. Identity and lease fields never travel through it.
type BillingUpdate struct {
	Balance       decimal.Decimal
	CurrentMonth  *month.Month
	PaymentStatus PaymentStatus
}
