package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/otienodev/kodi/internal/ledger"
	"github.com/otienodev/kodi/internal/month"
	"github.com/otienodev/kodi/internal/tenant"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

var nairobi = func() *time.Location {
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		panic(err)
	}
	return loc
}()

// testNow is fixed mid-March so the current billing month is 2025-03 and the
// 5th has already passed.
var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, nairobi)

var (
	marchBilling = month.New(2025, time.March)
	febBilling   = month.New(2025, time.February)
)

func newTestService(repo ledger.Repository, dir ledger.TenantDirectory) *ledger.Service {
	return ledger.NewService(repo, dir, ledger.Config{
		Timezone: nairobi,
		DueDay:   5,
		Now:      func() time.Time { return testNow },
	}, nil)
}

func activeTenant(rent int64) *tenant.Tenant {
	return &tenant.Tenant{
		ID:          uuid.New(),
		Name:        "Grace Wanjiku",
		Phone:       "254712345678",
		Unit:        "B4",
		MonthlyRent: d(rent),
		Balance:     decimal.Zero,
		Status:      tenant.StatusActive,
	}
}

func TestService_GenerateMonthly_FirstMonth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	ten := activeTenant(12000)

	dir.EXPECT().ListActive(gomock.Any()).Return([]*tenant.Tenant{ten}, nil)
	dir.EXPECT().GetTenant(gomock.Any(), ten.ID).Return(ten, nil)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, marchBilling).Return(nil, ledger.ErrNotFound)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, febBilling).Return(nil, ledger.ErrNotFound)
	repo.EXPECT().MarkOverdue(gomock.Any(), gomock.Any()).Return(int64(0), nil)

	var created *ledger.RentRecord

	repo.EXPECT().
		CreateRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *ledger.RentRecord) error {
			rec.ID = uuid.New()
			created = rec
			return nil
		})

	dir.EXPECT().
		UpdateBilling(gomock.Any(), ten.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, up tenant.BillingUpdate) error {
			assert.True(t, up.Balance.Equal(d(12000)))
			require.NotNil(t, up.CurrentMonth)
			assert.Equal(t, marchBilling, *up.CurrentMonth)
			assert.Equal(t, tenant.PaymentStatusPending, up.PaymentStatus)
			return nil
		})

	res, err := svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 0, res.Failed)

	require.NotNil(t, created)
	assert.Equal(t, marchBilling, created.Month)
	assert.True(t, created.Amount.Equal(d(12000)))
	assert.True(t, created.PreviousBalance.IsZero())
	assert.True(t, created.CreditBalance.IsZero())
	assert.True(t, created.CarriedForward.Equal(d(12000)))
	assert.True(t, created.AmountPaid.IsZero())
	assert.Equal(t, ledger.StatusPending, created.Status)
	// March 5th is already past on the 10th, so rent falls due April 5th.
	assert.Equal(t, month.New(2025, time.April).Day(5, nairobi), created.DueDate)
}

func TestService_GenerateMonthly_Idempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	ten := activeTenant(12000)
	existing := &ledger.RentRecord{ID: uuid.New(), TenantID: ten.ID, Month: marchBilling}

	// Two consecutive runs in the same month: no second record, no second
	// balance increment.
	dir.EXPECT().ListActive(gomock.Any()).Return([]*tenant.Tenant{ten}, nil).Times(2)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, marchBilling).Return(existing, nil).Times(2)
	repo.EXPECT().MarkOverdue(gomock.Any(), gomock.Any()).Return(int64(0), nil).Times(2)

	for range 2 {
		res, err := svc.GenerateMonthly(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, res.Generated)
		assert.Equal(t, 1, res.Skipped)
	}
}

func TestService_GenerateMonthly_ArrearsCarryForward(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	ten := activeTenant(10000)
	prior := &ledger.RentRecord{
		ID:             uuid.New(),
		TenantID:       ten.ID,
		Month:          febBilling,
		Amount:         d(10000),
		CarriedForward: d(10000),
		AmountPaid:     d(4000),
		Status:         ledger.StatusPartial,
	}

	dir.EXPECT().ListActive(gomock.Any()).Return([]*tenant.Tenant{ten}, nil)
	dir.EXPECT().GetTenant(gomock.Any(), ten.ID).Return(ten, nil)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, marchBilling).Return(nil, ledger.ErrNotFound)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, febBilling).Return(prior, nil)
	repo.EXPECT().MarkOverdue(gomock.Any(), gomock.Any()).Return(int64(0), nil)

	var created *ledger.RentRecord

	repo.EXPECT().
		CreateRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *ledger.RentRecord) error {
			rec.ID = uuid.New()
			created = rec
			return nil
		})
	dir.EXPECT().UpdateBilling(gomock.Any(), ten.ID, gomock.Any()).Return(nil)

	_, err := svc.GenerateMonthly(context.Background())
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.True(t, created.PreviousBalance.Equal(d(6000)), "got %s", created.PreviousBalance)
	assert.True(t, created.CreditBalance.IsZero())
	assert.True(t, created.CarriedForward.Equal(d(16000)), "got %s", created.CarriedForward)
}

func TestService_GenerateMonthly_CreditCarryForward(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	ten := activeTenant(10000)
	prior := &ledger.RentRecord{
		ID:             uuid.New(),
		TenantID:       ten.ID,
		Month:          febBilling,
		Amount:         d(10000),
		CarriedForward: d(10000),
		AmountPaid:     d(15000),
		Status:         ledger.StatusPaid,
	}

	dir.EXPECT().ListActive(gomock.Any()).Return([]*tenant.Tenant{ten}, nil)
	dir.EXPECT().GetTenant(gomock.Any(), ten.ID).Return(ten, nil)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, marchBilling).Return(nil, ledger.ErrNotFound)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, febBilling).Return(prior, nil)
	repo.EXPECT().MarkOverdue(gomock.Any(), gomock.Any()).Return(int64(0), nil)

	var created *ledger.RentRecord

	repo.EXPECT().
		CreateRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *ledger.RentRecord) error {
			rec.ID = uuid.New()
			created = rec
			return nil
		})
	dir.EXPECT().UpdateBilling(gomock.Any(), ten.ID, gomock.Any()).Return(nil)

	_, err := svc.GenerateMonthly(context.Background())
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.True(t, created.PreviousBalance.IsZero())
	assert.True(t, created.CreditBalance.Equal(d(5000)), "got %s", created.CreditBalance)
	assert.True(t, created.CarriedForward.Equal(d(5000)), "got %s", created.CarriedForward)
}

func TestService_GenerateMonthly_FailureIsolation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	broken := activeTenant(8000)
	healthy := activeTenant(9500)

	dir.EXPECT().ListActive(gomock.Any()).Return([]*tenant.Tenant{broken, healthy}, nil)

	// First tenant's store blows up; the batch must keep going.
	repo.EXPECT().GetRecordForMonth(gomock.Any(), broken.ID, marchBilling).Return(nil, errors.New("connection reset"))

	dir.EXPECT().GetTenant(gomock.Any(), healthy.ID).Return(healthy, nil)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), healthy.ID, marchBilling).Return(nil, ledger.ErrNotFound)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), healthy.ID, febBilling).Return(nil, ledger.ErrNotFound)
	repo.EXPECT().MarkOverdue(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	repo.EXPECT().
		CreateRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *ledger.RentRecord) error {
			rec.ID = uuid.New()
			return nil
		})
	dir.EXPECT().UpdateBilling(gomock.Any(), healthy.ID, gomock.Any()).Return(nil)

	res, err := svc.GenerateMonthly(context.Background())
	require.NoError(t, err, "a per-tenant failure must not abort the batch")
	assert.Equal(t, 1, res.Generated)
	assert.Equal(t, 1, res.Failed)
}

func TestService_GenerateMonthly_DuplicateAbsorbed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	ten := activeTenant(12000)

	dir.EXPECT().ListActive(gomock.Any()).Return([]*tenant.Tenant{ten}, nil)
	dir.EXPECT().GetTenant(gomock.Any(), ten.ID).Return(ten, nil)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, marchBilling).Return(nil, ledger.ErrNotFound)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, febBilling).Return(nil, ledger.ErrNotFound)
	repo.EXPECT().MarkOverdue(gomock.Any(), gomock.Any()).Return(int64(0), nil)
	// A concurrent writer created the record between our check and insert.
	repo.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(ledger.ErrDuplicateRecord)

	res, err := svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Generated)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Failed)
}

func TestService_GenerateMonthly_ListError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	dir.EXPECT().ListActive(gomock.Any()).Return(nil, errors.New("db down"))

	_, err := svc.GenerateMonthly(context.Background())
	assert.Error(t, err)
}

func TestService_GenerateMonthly_OverdueSweep(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	dir.EXPECT().ListActive(gomock.Any()).Return(nil, nil)
	// Three unpaid records are past due; their tenants get mirrored.
	repo.EXPECT().MarkOverdue(gomock.Any(), testNow).Return(int64(3), nil)
	dir.EXPECT().MarkOverdue(gomock.Any()).Return(int64(2), nil)

	res, err := svc.GenerateMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Overdue)
}

func TestService_GenerateMonthly_OverdueSweepFailureTolerated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	dir.EXPECT().ListActive(gomock.Any()).Return(nil, nil)
	repo.EXPECT().MarkOverdue(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("db down"))

	res, err := svc.GenerateMonthly(context.Background())
	require.NoError(t, err, "a sweep failure must not fail the job")
	assert.Equal(t, 0, res.Overdue)
}

func TestService_ApplyPayment_StatusTransitions(t *testing.T) {
	type args struct {
		paidBefore int64
		payment    int64
	}

	type testCase struct {
		name       string
		args       args
		wantStatus ledger.Status
	}

	// Record with a 15000 carried-forward amount walks pending → partial →
	// paid as payments accumulate.
	tests := []testCase{
		{name: "PartialAfterFirstPayment", args: args{paidBefore: 0, payment: 6000}, wantStatus: ledger.StatusPartial},
		{name: "PaidAfterSecondPayment", args: args{paidBefore: 6000, payment: 9000}, wantStatus: ledger.StatusPaid},
		{name: "PaidOnOverpayment", args: args{paidBefore: 0, payment: 20000}, wantStatus: ledger.StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := ledger.NewMockRepository(ctrl)
			dir := ledger.NewMockTenantDirectory(ctrl)
			svc := newTestService(repo, dir)

			ten := activeTenant(15000)
			ten.Balance = d(15000 - tt.args.paidBefore)
			ten.CurrentMonth = &marchBilling
			recID := uuid.New()

			rec := &ledger.RentRecord{
				ID:             recID,
				TenantID:       ten.ID,
				Month:          marchBilling,
				Amount:         d(15000),
				CarriedForward: d(15000),
				AmountPaid:     d(tt.args.paidBefore),
				Status:         ledger.StatusPending,
			}

			dir.EXPECT().GetTenant(gomock.Any(), ten.ID).Return(ten, nil)
			repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, marchBilling).Return(rec, nil)

			repo.EXPECT().
				AddPayment(gomock.Any(), recID, gomock.Any()).
				DoAndReturn(func(_ context.Context, _ uuid.UUID, amount decimal.Decimal) (*ledger.RentRecord, error) {
					// Payments accumulate; a second payment never overwrites
					// the first.
					updated := *rec
					updated.AmountPaid = rec.AmountPaid.Add(amount)
					return &updated, nil
				})
			repo.EXPECT().UpdateStatus(gomock.Any(), recID, tt.wantStatus).Return(nil)

			dir.EXPECT().
				UpdateBilling(gomock.Any(), ten.ID, gomock.Any()).
				DoAndReturn(func(_ context.Context, _ uuid.UUID, up tenant.BillingUpdate) error {
					wantBalance := ten.Balance.Sub(d(tt.args.payment))
					assert.True(t, up.Balance.Equal(wantBalance), "balance: got %s, want %s", up.Balance, wantBalance)
					return nil
				})

			got, err := svc.ApplyPayment(context.Background(), ledger.PaymentParams{
				TenantID: ten.ID,
				Amount:   d(tt.args.payment),
				Date:     testNow,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.True(t, got.AmountPaid.Equal(d(tt.args.paidBefore+tt.args.payment)))
		})
	}
}

func TestService_ApplyPayment_ConcurrentPaymentsSerialize(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	ten := activeTenant(12000)
	ten.Balance = d(12000)
	ten.CurrentMonth = &marchBilling
	recID := uuid.New()

	rec := &ledger.RentRecord{
		ID:             recID,
		TenantID:       ten.ID,
		Month:          marchBilling,
		Amount:         d(12000),
		CarriedForward: d(12000),
		Status:         ledger.StatusPending,
	}

	// Stateful directory: each read must observe the balance left by the
	// previous write, which only holds if the engine serializes per tenant.
	var mu sync.Mutex

	balance := ten.Balance
	paid := decimal.Zero

	dir.EXPECT().
		GetTenant(gomock.Any(), ten.ID).
		Times(2).
		DoAndReturn(func(context.Context, uuid.UUID) (*tenant.Tenant, error) {
			// Widen the race window: an engine reading outside its lock
			// hands both payments the same starting balance.
			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			defer mu.Unlock()

			cp := *ten
			cp.Balance = balance
			return &cp, nil
		})
	repo.EXPECT().
		GetRecordForMonth(gomock.Any(), ten.ID, marchBilling).
		Times(2).
		DoAndReturn(func(context.Context, uuid.UUID, month.Month) (*ledger.RentRecord, error) {
			cp := *rec
			return &cp, nil
		})
	repo.EXPECT().
		AddPayment(gomock.Any(), recID, gomock.Any()).
		Times(2).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, amount decimal.Decimal) (*ledger.RentRecord, error) {
			mu.Lock()
			defer mu.Unlock()

			paid = paid.Add(amount)
			updated := *rec
			updated.AmountPaid = paid
			return &updated, nil
		})
	repo.EXPECT().UpdateStatus(gomock.Any(), recID, gomock.Any()).AnyTimes().Return(nil)
	dir.EXPECT().
		UpdateBilling(gomock.Any(), ten.ID, gomock.Any()).
		Times(2).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, up tenant.BillingUpdate) error {
			mu.Lock()
			defer mu.Unlock()

			balance = up.Balance
			return nil
		})

	var wg sync.WaitGroup

	for _, amount := range []int64{3000, 4000} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.ApplyPayment(context.Background(), ledger.PaymentParams{
				TenantID: ten.ID,
				Amount:   d(amount),
				Date:     testNow,
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	assert.True(t, paid.Equal(d(7000)), "amount paid: got %s", paid)
	// 12000 - 3000 - 4000: neither deduction may be lost.
	assert.True(t, balance.Equal(d(5000)), "balance: got %s", balance)
}

func TestService_ApplyPayment_StaleBalanceReset(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	// Tenant's marker is already on March, but the payment settles February.
	ten := activeTenant(10000)
	ten.Balance = d(22000)
	ten.CurrentMonth = &marchBilling

	recID := uuid.New()
	febRec := &ledger.RentRecord{
		ID:             recID,
		TenantID:       ten.ID,
		Month:          febBilling,
		Amount:         d(10000),
		CarriedForward: d(10000),
		Status:         ledger.StatusPending,
	}

	paymentDate := time.Date(2025, time.February, 20, 9, 0, 0, 0, nairobi)

	dir.EXPECT().GetTenant(gomock.Any(), ten.ID).Return(ten, nil)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, febBilling).Return(febRec, nil)
	repo.EXPECT().
		AddPayment(gomock.Any(), recID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, amount decimal.Decimal) (*ledger.RentRecord, error) {
			updated := *febRec
			updated.AmountPaid = amount
			return &updated, nil
		})
	repo.EXPECT().UpdateStatus(gomock.Any(), recID, ledger.StatusPartial).Return(nil)

	dir.EXPECT().
		UpdateBilling(gomock.Any(), ten.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, up tenant.BillingUpdate) error {
			// Balance resets to February's obligation before the deduction
			// instead of subtracting from the stale 22000.
			assert.True(t, up.Balance.Equal(d(6000)), "got %s", up.Balance)
			// The marker never moves backwards.
			require.NotNil(t, up.CurrentMonth)
			assert.Equal(t, marchBilling, *up.CurrentMonth)
			return nil
		})

	_, err := svc.ApplyPayment(context.Background(), ledger.PaymentParams{
		TenantID: ten.ID,
		Amount:   d(4000),
		Date:     paymentDate,
	})
	require.NoError(t, err)
}

func TestService_ApplyPayment_LazyRecordCreation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	ten := activeTenant(10000)
	prior := &ledger.RentRecord{
		ID:             uuid.New(),
		TenantID:       ten.ID,
		Month:          febBilling,
		Amount:         d(10000),
		CarriedForward: d(10000),
		AmountPaid:     d(4000),
	}

	dir.EXPECT().GetTenant(gomock.Any(), ten.ID).Return(ten, nil)
	// Generation has not run for March yet.
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, marchBilling).Return(nil, ledger.ErrNotFound)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, febBilling).Return(prior, nil)

	repo.EXPECT().
		CreateRecord(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *ledger.RentRecord) error {
			// Arrears are computed from February, not fabricated as zero.
			assert.True(t, rec.PreviousBalance.Equal(d(6000)))
			assert.True(t, rec.CarriedForward.Equal(d(16000)))
			rec.ID = uuid.New()
			return nil
		})

	repo.EXPECT().
		AddPayment(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id uuid.UUID, amount decimal.Decimal) (*ledger.RentRecord, error) {
			return &ledger.RentRecord{
				ID:              id,
				TenantID:        ten.ID,
				Month:           marchBilling,
				Amount:          d(10000),
				PreviousBalance: d(6000),
				CarriedForward:  d(16000),
				AmountPaid:      amount,
				Status:          ledger.StatusPending,
			}, nil
		})
	repo.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), ledger.StatusPartial).Return(nil)
	dir.EXPECT().UpdateBilling(gomock.Any(), ten.ID, gomock.Any()).Return(nil)

	_, err := svc.ApplyPayment(context.Background(), ledger.PaymentParams{
		TenantID: ten.ID,
		Amount:   d(5000),
		Date:     testNow,
	})
	require.NoError(t, err)
}

func TestService_ApplyPayment_InvalidAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	for _, amount := range []decimal.Decimal{decimal.Zero, d(-500)} {
		_, err := svc.ApplyPayment(context.Background(), ledger.PaymentParams{
			TenantID: uuid.New(),
			Amount:   amount,
			Date:     testNow,
		})
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	}
}

func TestService_ApplyPayment_TenantNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	dir.EXPECT().GetTenant(gomock.Any(), gomock.Any()).Return(nil, tenant.ErrNotFound)

	_, err := svc.ApplyPayment(context.Background(), ledger.PaymentParams{
		TenantID: uuid.New(),
		Amount:   d(1000),
		Date:     testNow,
	})
	assert.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestService_UpdateUtilities(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	ten := activeTenant(12000)
	rec := &ledger.RentRecord{
		ID:             uuid.New(),
		TenantID:       ten.ID,
		Month:          marchBilling,
		Amount:         d(12000),
		CarriedForward: d(12000),
		AmountPaid:     d(3000),
		Status:         ledger.StatusPartial,
	}

	dir.EXPECT().GetTenant(gomock.Any(), ten.ID).Return(ten, nil)
	repo.EXPECT().GetRecordForMonth(gomock.Any(), ten.ID, marchBilling).Return(rec, nil)

	var saved *ledger.RentRecord

	repo.EXPECT().
		UpdateCharges(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *ledger.RentRecord) error {
			saved = r
			return nil
		})

	got, err := svc.UpdateUtilities(context.Background(), ten.ID, ledger.UtilityParams{
		Water:       new(d(500)),
		Electricity: new(d(1200)),
		Garbage:     new(d(300)),
		Security:    new(d(0)),
	})
	require.NoError(t, err)

	assert.True(t, got.Amount.Equal(d(14000)), "got %s", got.Amount)
	assert.True(t, got.CarriedForward.Equal(d(14000)), "got %s", got.CarriedForward)
	// Payments already on the record are untouched.
	assert.True(t, got.AmountPaid.Equal(d(3000)))
	assert.Equal(t, ledger.StatusPartial, got.Status)
	require.NotNil(t, saved)
	assert.Same(t, got, saved)
}

func TestService_UpdateUtilities_NegativeCharge(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	_, err := svc.UpdateUtilities(context.Background(), uuid.New(), ledger.UtilityParams{
		Water: new(d(-100)),
	})
	assert.ErrorIs(t, err, ledger.ErrNegativeCharge)
}

func TestService_History(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	dir := ledger.NewMockTenantDirectory(ctrl)
	svc := newTestService(repo, dir)

	tenantID := uuid.New()

	repo.EXPECT().
		ListRecords(gomock.Any(), tenantID).
		Return([]*ledger.RentRecord{
			{Month: marchBilling},
			{Month: febBilling},
		}, nil)

	got, err := svc.History(context.Background(), tenantID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, marchBilling, got[0].Month)
}
