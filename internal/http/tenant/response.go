package tenant

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/otienodev/kodi/internal/tenant"
)

type tenantResponse struct {
	ID            uuid.UUID            `json:"id"`
	Name          string               `json:"name"`
	Phone         string               `json:"phone"`
	Unit          string               `json:"unit"`
	LeaseStart    time.Time            `json:"lease_start"`
	LeaseEnd      time.Time            `json:"lease_end"`
	MonthlyRent   decimal.Decimal      `json:"monthly_rent"`
	Balance       decimal.Decimal      `json:"balance"`
	CurrentMonth  string               `json:"current_month,omitempty"`
	PaymentStatus tenant.PaymentStatus `json:"payment_status"`
	Status        tenant.Status        `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     *time.Time           `json:"updated_at,omitempty"`
}

func toResponse(t *tenant.Tenant) tenantResponse {
	resp := tenantResponse{
		ID:            t.ID,
		Name:          t.Name,
		Phone:         t.Phone,
		Unit:          t.Unit,
		LeaseStart:    t.LeaseStart,
		LeaseEnd:      t.LeaseEnd,
		MonthlyRent:   t.MonthlyRent,
		Balance:       t.Balance,
		PaymentStatus: t.PaymentStatus,
		Status:        t.Status,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}

	if t.CurrentMonth != nil {
		resp.CurrentMonth = t.CurrentMonth.String()
	}

	return resp
}

func toResponseList(tenants []*tenant.Tenant) []tenantResponse {
	resp := make([]tenantResponse, len(tenants))
	for i, t := range tenants {
		resp[i] = toResponse(t)
	}

	return resp
}
