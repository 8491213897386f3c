package mpesa

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/otienodev/kodi/internal/ledger"
	"github.com/otienodev/kodi/internal/metrics"
	"github.com/otienodev/kodi/internal/tenant"
)

// Daraja renders TransactionDate as a numeric yyyymmddhhmmss in local time.
const transactionDateLayout = "20060102150405"

type Handler struct {
	ledgerSvc *ledger.Service
	tenantSvc *tenant.Service
	metrics   *metrics.Metrics
	loc       *time.Location
}

func NewHandler(ledgerSvc *ledger.Service, tenantSvc *tenant.Service, m *metrics.Metrics, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}

	return &Handler{ledgerSvc: ledgerSvc, tenantSvc: tenantSvc, metrics: m, loc: loc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/mpesa", h.confirm)
}

// stkCallbackEnvelope is the STK push result the gateway posts back.
type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string `json:"Name"`
					Value any    `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// confirm processes a payment-confirmation callback. The gateway interprets
// anything but a success acknowledgment as a retry signal, so every path out
// of here acknowledges; processing failures live in logs and metrics only.
func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	defer h.ack(w)

	var env stkCallbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		slog.Warn("mpesa callback: undecodable payload", "error", err)
		h.count("invalid")

		return
	}

	cb := env.Body.StkCallback
	if cb.ResultCode != 0 {
		slog.Info("mpesa callback: payment not completed",
			"result_code", cb.ResultCode, "result_desc", cb.ResultDesc,
			"checkout_request_id", cb.CheckoutRequestID)
		h.count("not_completed")

		return
	}

	amount, phone, paidAt, err := h.parseMetadata(cb.CallbackMetadata.Item)
	if err != nil {
		slog.Warn("mpesa callback: bad metadata", "error", err,
			"checkout_request_id", cb.CheckoutRequestID)
		h.count("invalid")

		return
	}

	t, err := h.tenantSvc.ResolveByPhone(r.Context(), phone)
	if err != nil {
		// Unknown payer: logged and dropped, never bounced to the gateway.
		slog.Warn("mpesa callback: no tenant matches phone",
			"phone", phone, "amount", amount.String())
		h.count("unmatched")

		return
	}

	if _, err := h.ledgerSvc.ApplyPayment(r.Context(), ledger.PaymentParams{
		TenantID: t.ID,
		Amount:   amount,
		Date:     paidAt,
	}); err != nil {
		slog.Error("mpesa callback: applying payment failed",
			"tenant_id", t.ID, "amount", amount.String(), "error", err)
		h.count("error")

		return
	}

	slog.Info("mpesa payment applied",
		"tenant_id", t.ID, "amount", amount.String(), "paid_at", paidAt)
	h.count("applied")
}

func (h *Handler) parseMetadata(items []struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}) (decimal.Decimal, string, time.Time, error) {
	var (
		amount decimal.Decimal
		phone  string
		paidAt = time.Now()
	)

	for _, item := range items {
		switch item.Name {
		case "Amount":
			v, err := toDecimal(item.Value)
			if err != nil {
				return decimal.Decimal{}, "", time.Time{}, fmt.Errorf("amount: %w", err)
			}

			amount = v
		case "PhoneNumber":
			phone = asString(item.Value)
		case "TransactionDate":
			if ts, err := time.ParseInLocation(transactionDateLayout, asString(item.Value), h.loc); err == nil {
				paidAt = ts
			}
		}
	}

	if !amount.IsPositive() {
		return decimal.Decimal{}, "", time.Time{}, fmt.Errorf("missing or non-positive amount")
	}

	if phone == "" {
		return decimal.Decimal{}, "", time.Time{}, fmt.Errorf("missing phone number")
	}

	return amount, phone, paidAt, nil
}

func (h *Handler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.MpesaCallback(outcome)
	}
}

func (h *Handler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(map[string]any{
		"ResultCode": 0,
		"ResultDesc": "Accepted",
	}); err != nil {
		slog.Error("failed to encode callback acknowledgment", "error", err)
	}
}

// toDecimal handles the gateway's habit of sending numbers as either JSON
// numbers or strings.
func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		return decimal.NewFromString(n)
	default:
		return decimal.Decimal{}, fmt.Errorf("unexpected value type %T", v)
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return decimal.NewFromFloat(s).String()
	default:
		return ""
	}
}
