package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/otienodev/kodi/internal/ledger"
	"github.com/otienodev/kodi/internal/tenant"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/generate", h.generate)
	r.Post("/payments", h.recordPayment)
	r.Patch("/tenants/{id}/utilities", h.updateUtilities)
	r.Get("/tenants/{id}/records", h.history)
	r.Get("/records/{id}", h.getRecord)
}

type generateResponse struct {
	Month     string `json:"month"`
	Generated int    `json:"generated"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Overdue   int    `json:"overdue"`
}

// generate is the on-demand administrative trigger for the monthly job. It
// shares the daily schedule's semantics: re-running is safe, and per-tenant
// failures are reported in the summary rather than as an error status.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GenerateMonthly(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(generateResponse{
		Month:     res.Month.String(),
		Generated: res.Generated,
		Skipped:   res.Skipped,
		Failed:    res.Failed,
		Overdue:   res.Overdue,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type recordPaymentRequest struct {
	TenantID    uuid.UUID       `json:"tenant_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date := req.PaymentDate
	if date.IsZero() {
		date = time.Now()
	}

	rec, err := h.svc.ApplyPayment(r.Context(), ledger.PaymentParams{
		TenantID: req.TenantID,
		Amount:   req.Amount,
		Date:     date,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, tenant.ErrNotFound):
			http.Error(w, "tenant not found", http.StatusNotFound)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(rec)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type updateUtilitiesRequest struct {
	Water       *decimal.Decimal `json:"water,omitempty"`
	Electricity *decimal.Decimal `json:"electricity,omitempty"`
	Garbage     *decimal.Decimal `json:"garbage,omitempty"`
	Security    *decimal.Decimal `json:"security,omitempty"`
}

func (h *Handler) updateUtilities(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateUtilitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.svc.UpdateUtilities(r.Context(), id, ledger.UtilityParams{
		Water:       req.Water,
		Electricity: req.Electricity,
		Garbage:     req.Garbage,
		Security:    req.Security,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNegativeCharge):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, tenant.ErrNotFound):
			http.Error(w, "tenant not found", http.StatusNotFound)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(rec)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	recs, err := h.svc.History(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(recs)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	rec, err := h.svc.GetRecord(r.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "rent record not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(rec)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
