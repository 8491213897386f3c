package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/otienodev/kodi/internal/ledger"
)

type rentRecordResponse struct {
	ID              uuid.UUID       `json:"id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	Month           string          `json:"month"`
	Amount          decimal.Decimal `json:"amount"`
	Water           decimal.Decimal `json:"water"`
	Electricity     decimal.Decimal `json:"electricity"`
	Garbage         decimal.Decimal `json:"garbage"`
	Security        decimal.Decimal `json:"security"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	CreditBalance   decimal.Decimal `json:"credit_balance"`
	CarriedForward  decimal.Decimal `json:"carried_forward_amount"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	Status          ledger.Status   `json:"status"`
	DueDate         time.Time       `json:"due_date"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
}

func toResponse(rec *ledger.RentRecord) rentRecordResponse {
	return rentRecordResponse{
		ID:              rec.ID,
		TenantID:        rec.TenantID,
		Month:           rec.Month.String(),
		Amount:          rec.Amount,
		Water:           rec.Water,
		Electricity:     rec.Electricity,
		Garbage:         rec.Garbage,
		Security:        rec.Security,
		PreviousBalance: rec.PreviousBalance,
		CreditBalance:   rec.CreditBalance,
		CarriedForward:  rec.CarriedForward,
		AmountPaid:      rec.AmountPaid,
		Status:          rec.Status,
		DueDate:         rec.DueDate,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

func toResponseList(recs []*ledger.RentRecord) []rentRecordResponse {
	resp := make([]rentRecordResponse, len(recs))
	for i, rec := range recs {
		resp[i] = toResponse(rec)
	}

	return resp
}
