package mpesa_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mpesaHandler "github.com/otienodev/kodi/internal/http/mpesa"
	"github.com/otienodev/kodi/internal/ledger"
	"github.com/otienodev/kodi/internal/month"
	"github.com/otienodev/kodi/internal/tenant"
)

var nairobi = func() *time.Location {
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		panic(err)
	}
	return loc
}()

// Mock tenant repository
type mockTenantRepo struct {
	byPhoneSuffix map[string]*tenant.Tenant
}

func (m *mockTenantRepo) GetTenant(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return nil, tenant.ErrNotFound
}

func (m *mockTenantRepo) ListTenants(ctx context.Context, filter tenant.ListFilter) ([]*tenant.Tenant, error) {
	return nil, nil
}

func (m *mockTenantRepo) FindByPhoneSuffix(ctx context.Context, suffix string) (*tenant.Tenant, error) {
	if t, ok := m.byPhoneSuffix[suffix]; ok {
		return t, nil
	}

	return nil, tenant.ErrNotFound
}

func (m *mockTenantRepo) UpdateLeaseEnd(ctx context.Context, id uuid.UUID, end time.Time) error {
	return nil
}

const successPayload = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 6000.00},
					{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
					{"Name": "TransactionDate", "Value": 20250310120000},
					{"Name": "PhoneNumber", "Value": 254712345678}
				]
			}
		}
	}
}`

func newRouter(t *testing.T, ledgerRepo ledger.Repository, dir ledger.TenantDirectory, tenantRepo tenant.Repository) http.Handler {
	t.Helper()

	ledgerSvc := ledger.NewService(ledgerRepo, dir, ledger.Config{Timezone: nairobi, DueDay: 5}, nil)
	tenantSvc := tenant.NewService(tenantRepo)

	h := mpesaHandler.NewHandler(ledgerSvc, tenantSvc, nil, nairobi)

	r := chi.NewRouter()
	r.Route("/callbacks", h.Routes)

	return r
}

func doCallback(t *testing.T, router http.Handler, payload string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/callbacks/mpesa", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	return rr
}

func assertAcknowledged(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()

	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.EqualValues(t, 0, body["ResultCode"])
}

func TestHandler_Confirm_AppliesPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledgerRepo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)

	march := month.New(2025, time.March)

	payer := &tenant.Tenant{
		ID:           uuid.New(),
		Name:         "Brian Otieno",
		Phone:        "254712345678",
		MonthlyRent:  decimal.NewFromInt(12000),
		Balance:      decimal.NewFromInt(12000),
		CurrentMonth: &march,
		Status:       tenant.StatusActive,
	}

	tenantRepo := &mockTenantRepo{byPhoneSuffix: map[string]*tenant.Tenant{
		"712345678": payer,
	}}

	recID := uuid.New()
	rec := &ledger.RentRecord{
		ID:             recID,
		TenantID:       payer.ID,
		Month:          march,
		Amount:         decimal.NewFromInt(12000),
		CarriedForward: decimal.NewFromInt(12000),
		Status:         ledger.StatusPending,
	}

	dir.EXPECT().GetTenant(gomock.Any(), payer.ID).Return(payer, nil)
	ledgerRepo.EXPECT().GetRecordForMonth(gomock.Any(), payer.ID, march).Return(rec, nil)
	ledgerRepo.EXPECT().
		AddPayment(gomock.Any(), recID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, amount decimal.Decimal) (*ledger.RentRecord, error) {
			assert.True(t, amount.Equal(decimal.NewFromInt(6000)))
			updated := *rec
			updated.AmountPaid = amount
			return &updated, nil
		})
	ledgerRepo.EXPECT().UpdateStatus(gomock.Any(), recID, ledger.StatusPartial).Return(nil)
	dir.EXPECT().UpdateBilling(gomock.Any(), payer.ID, gomock.Any()).Return(nil)

	router := newRouter(t, ledgerRepo, dir, tenantRepo)
	rr := doCallback(t, router, successPayload)

	assertAcknowledged(t, rr)
}

func TestHandler_Confirm_UnmatchedPhoneStillAcknowledges(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No ledger expectations: an unmatched payer must never reach the engine.
	router := newRouter(t,
		ledger.NewMockRepository(ctrl),
		ledger.NewMockTenantDirectory(ctrl),
		&mockTenantRepo{},
	)

	rr := doCallback(t, router, successPayload)
	assertAcknowledged(t, rr)
}

func TestHandler_Confirm_FailedPaymentAcknowledged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	payload := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user."
			}
		}
	}`

	router := newRouter(t,
		ledger.NewMockRepository(ctrl),
		ledger.NewMockTenantDirectory(ctrl),
		&mockTenantRepo{},
	)

	rr := doCallback(t, router, payload)
	assertAcknowledged(t, rr)
}

func TestHandler_Confirm_GarbageBodyAcknowledged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := newRouter(t,
		ledger.NewMockRepository(ctrl),
		ledger.NewMockTenantDirectory(ctrl),
		&mockTenantRepo{},
	)

	rr := doCallback(t, router, `not json at all`)
	assertAcknowledged(t, rr)
}
