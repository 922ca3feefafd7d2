package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"estate/internal/calendar"
	"estate/internal/models"
	"estate/internal/notify"
	"estate/internal/store"
)

type fakeStores struct {
	due      []store.DuePayment
	ending   []store.EndingContract
	stale    []store.StaleRequest
	err      error
	from, to models.Date
	cutoff   time.Time
}

func (f *fakeStores) ListDueBetween(_ context.Context, from, to models.Date) ([]store.DuePayment, error) {
	f.from, f.to = from, to
	return f.due, f.err
}

func (f *fakeStores) ListEndingBetween(_ context.Context, from, to models.Date) ([]store.EndingContract, error) {
	f.from, f.to = from, to
	return f.ending, f.err
}

func (f *fakeStores) ListStale(_ context.Context, cutoff time.Time) ([]store.StaleRequest, error) {
	f.cutoff = cutoff
	return f.stale, f.err
}

type fakeExpirer struct {
	calls int
}

func (f *fakeExpirer) ExpireLapsed(context.Context) (int, error) {
	f.calls++
	return 2, nil
}

type fakeDeliverer struct {
	batches [][]notify.Notification
}

func (f *fakeDeliverer) Deliver(_ context.Context, batch []notify.Notification) notify.Report {
	f.batches = append(f.batches, batch)
	return notify.Report{Sent: len(batch)}
}

var jobNow = time.Date(2024, 1, 29, 8, 0, 0, 0, time.UTC)

func newTestReminders(stores *fakeStores, expirer *fakeExpirer, deliverer *fakeDeliverer) *Reminders {
	clock := calendar.NewClock(time.UTC, func() time.Time { return jobNow })
	settings := Settings{PaymentReminderDays: 7, ContractRenewalNoticeDays: 30, MaintenanceEscalationHours: 24}
	return NewReminders(stores, stores, stores, expirer, deliverer, clock, settings, zap.NewNop())
}

func TestPaymentRemindersWindowCrossesMonthEnd(t *testing.T) {
	stores := &fakeStores{due: []store.DuePayment{
		{PaymentID: "p1", Amount: decimal.NewFromInt(900), Type: models.PaymentRent, DueDate: models.NewDate(2024, 2, 1), TenantID: "t1", PropertyTitle: "Loft"},
		{PaymentID: "p2", Amount: decimal.NewFromInt(60), Type: models.PaymentCharges, DueDate: models.NewDate(2024, 2, 3), TenantID: "t2", PropertyTitle: "Studio"},
	}}
	deliverer := &fakeDeliverer{}
	r := newTestReminders(stores, &fakeExpirer{}, deliverer)

	require.NoError(t, r.PaymentReminders(context.Background()))

	assert.Equal(t, "2024-01-29", stores.from.String())
	assert.Equal(t, "2024-02-05", stores.to.String())
	require.Len(t, deliverer.batches, 1)
	batch := deliverer.batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "t1", batch[0].UserID)
	assert.Equal(t, notify.KindPaymentReminder, batch[0].Kind)
	assert.Contains(t, batch[0].Body, "900.00")
	assert.Equal(t, jobNow, batch[0].CreatedAt)
}

func TestContractRenewalsNotifyBothParties(t *testing.T) {
	stores := &fakeStores{ending: []store.EndingContract{
		{ContractID: "c1", EndDate: models.NewDate(2024, 2, 20), TenantID: "t1", OwnerID: "o1", PropertyTitle: "Loft"},
	}}
	deliverer := &fakeDeliverer{}
	r := newTestReminders(stores, &fakeExpirer{}, deliverer)

	require.NoError(t, r.ContractRenewals(context.Background()))

	assert.Equal(t, "2024-02-28", stores.to.String())
	require.Len(t, deliverer.batches, 1)
	var users []string
	for _, n := range deliverer.batches[0] {
		users = append(users, n.UserID)
		assert.Equal(t, "c1", n.EntityID)
	}
	assert.Equal(t, []string{"t1", "o1"}, users)
}

func TestMaintenanceEscalationUsesCutoff(t *testing.T) {
	assignee := "agent-1"
	stores := &fakeStores{stale: []store.StaleRequest{
		{ID: "m1", Title: "Leak", Priority: 4, PropertyTitle: "Loft", OwnerID: "o1", AssignedToID: &assignee, CreatedAt: jobNow.Add(-48 * time.Hour)},
	}}
	deliverer := &fakeDeliverer{}
	r := newTestReminders(stores, &fakeExpirer{}, deliverer)

	require.NoError(t, r.MaintenanceEscalation(context.Background()))

	assert.Equal(t, jobNow.Add(-24*time.Hour), stores.cutoff)
	require.Len(t, deliverer.batches, 1)
	assert.Len(t, deliverer.batches[0], 2)
}

func TestJobsSkipDeliveryWhenNothingIsDue(t *testing.T) {
	deliverer := &fakeDeliverer{}
	r := newTestReminders(&fakeStores{}, &fakeExpirer{}, deliverer)

	require.NoError(t, r.PaymentReminders(context.Background()))
	require.NoError(t, r.ContractRenewals(context.Background()))
	require.NoError(t, r.MaintenanceEscalation(context.Background()))
	assert.Empty(t, deliverer.batches)
}

func TestJobsReportStoreErrors(t *testing.T) {
	r := newTestReminders(&fakeStores{err: errors.New("db down")}, &fakeExpirer{}, &fakeDeliverer{})
	assert.Error(t, r.PaymentReminders(context.Background()))
	assert.Error(t, r.ContractRenewals(context.Background()))
	assert.Error(t, r.MaintenanceEscalation(context.Background()))
}

func TestInstallRegistersConfiguredJobs(t *testing.T) {
	expirer := &fakeExpirer{}
	r := newTestReminders(&fakeStores{}, expirer, &fakeDeliverer{})
	s := NewScheduler(time.UTC, zap.NewNop(), nil)

	require.NoError(t, r.Install(s, map[string]string{
		PaymentReminders: "0 9 * * *",
		ContractExpiry:   "15 0 * * *",
	}))
	assert.Equal(t, []string{ContractExpiry, PaymentReminders}, s.Names())

	require.NoError(t, s.RunNow(context.Background(), ContractExpiry))
	assert.Equal(t, 1, expirer.calls)
}
