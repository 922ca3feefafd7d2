package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"estate/internal/calendar"
	"estate/internal/money"
	"estate/internal/models"
	"estate/internal/notify"
	"estate/internal/store"
)

const (
	PaymentReminders      = "payment-reminders"
	ContractRenewals      = "contract-renewals"
	MaintenanceEscalation = "maintenance-escalation"
	ContractExpiry        = "contract-expiry"
)

type DuePayments interface {
	ListDueBetween(ctx context.Context, from, to models.Date) ([]store.DuePayment, error)
}

type EndingContracts interface {
	ListEndingBetween(ctx context.Context, from, to models.Date) ([]store.EndingContract, error)
}

type StaleRequests interface {
	ListStale(ctx context.Context, cutoff time.Time) ([]store.StaleRequest, error)
}

type Expirer interface {
	ExpireLapsed(ctx context.Context) (int, error)
}

// Deliverer sends a batch now; jobs have no request to return to, so they
// deliver synchronously instead of queueing.
type Deliverer interface {
	Deliver(ctx context.Context, batch []notify.Notification) notify.Report
}

type Settings struct {
	PaymentReminderDays        int
	ContractRenewalNoticeDays  int
	MaintenanceEscalationHours int
}

type Reminders struct {
	payments    DuePayments
	contracts   EndingContracts
	maintenance StaleRequests
	expirer     Expirer
	deliverer   Deliverer
	clock       calendar.Clock
	settings    Settings
	logger      *zap.Logger
}

func NewReminders(payments DuePayments, contracts EndingContracts, maintenance StaleRequests, expirer Expirer, deliverer Deliverer, clock calendar.Clock, settings Settings, logger *zap.Logger) *Reminders {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reminders{
		payments:    payments,
		contracts:   contracts,
		maintenance: maintenance,
		expirer:     expirer,
		deliverer:   deliverer,
		clock:       clock,
		settings:    settings,
		logger:      logger,
	}
}

// Install registers every job with its schedule.
func (r *Reminders) Install(s *Scheduler, specs map[string]string) error {
	for name, fn := range map[string]Func{
		PaymentReminders:      r.PaymentReminders,
		ContractRenewals:      r.ContractRenewals,
		MaintenanceEscalation: r.MaintenanceEscalation,
		ContractExpiry:        r.ContractExpiry,
	} {
		spec, ok := specs[name]
		if !ok || spec == "" {
			continue
		}
		if err := s.Register(name, spec, fn); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}

// PaymentReminders tells tenants about pending payments due in the next few days.
func (r *Reminders) PaymentReminders(ctx context.Context) error {
	today := r.clock.Today()
	due, err := r.payments.ListDueBetween(ctx, today, today.AddDays(r.settings.PaymentReminderDays))
	if err != nil {
		return fmt.Errorf("list due payments: %w", err)
	}
	batch := make([]notify.Notification, 0, len(due))
	for _, p := range due {
		batch = append(batch, notify.Notification{
			UserID:  p.TenantID,
			Kind:    notify.KindPaymentReminder,
			Subject: "Payment reminder",
			Body: fmt.Sprintf("Your %s payment of %s for %s is due on %s.",
				p.Type, money.Format(p.Amount), p.PropertyTitle, p.DueDate),
			EntityType: "payment",
			EntityID:   p.PaymentID,
		})
	}
	r.deliver(ctx, PaymentReminders, batch)
	return nil
}

// ContractRenewals warns tenant and owner that a contract is ending.
func (r *Reminders) ContractRenewals(ctx context.Context) error {
	today := r.clock.Today()
	ending, err := r.contracts.ListEndingBetween(ctx, today, today.AddDays(r.settings.ContractRenewalNoticeDays))
	if err != nil {
		return fmt.Errorf("list ending contracts: %w", err)
	}
	batch := make([]notify.Notification, 0, 2*len(ending))
	for _, c := range ending {
		body := fmt.Sprintf("The contract for %s ends on %s. Contact your agent to renew it.", c.PropertyTitle, c.EndDate)
		for _, userID := range []string{c.TenantID, c.OwnerID} {
			batch = append(batch, notify.Notification{
				UserID:     userID,
				Kind:       notify.KindContractRenewal,
				Subject:    "Contract ending soon",
				Body:       body,
				EntityType: "contract",
				EntityID:   c.ContractID,
			})
		}
	}
	r.deliver(ctx, ContractRenewals, batch)
	return nil
}

// MaintenanceEscalation chases requests left pending too long.
func (r *Reminders) MaintenanceEscalation(ctx context.Context) error {
	cutoff := r.clock.Now().Add(-time.Duration(r.settings.MaintenanceEscalationHours) * time.Hour)
	stale, err := r.maintenance.ListStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale maintenance: %w", err)
	}
	batch := make([]notify.Notification, 0, len(stale))
	for _, m := range stale {
		body := fmt.Sprintf("%q at %s (priority %d) has been pending since %s.",
			m.Title, m.PropertyTitle, m.Priority, m.CreatedAt.In(r.clock.Location()).Format("2006-01-02 15:04"))
		recipients := []string{m.OwnerID}
		if m.AssignedToID != nil && *m.AssignedToID != m.OwnerID {
			recipients = append(recipients, *m.AssignedToID)
		}
		for _, userID := range recipients {
			batch = append(batch, notify.Notification{
				UserID:     userID,
				Kind:       notify.KindMaintenanceEscalation,
				Subject:    "Maintenance request awaiting action",
				Body:       body,
				EntityType: "maintenance_request",
				EntityID:   m.ID,
			})
		}
	}
	r.deliver(ctx, MaintenanceEscalation, batch)
	return nil
}

// ContractExpiry expires active contracts whose end date has passed.
func (r *Reminders) ContractExpiry(ctx context.Context) error {
	n, err := r.expirer.ExpireLapsed(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		r.logger.Info("contracts expired", zap.Int("count", n))
	}
	return nil
}

func (r *Reminders) deliver(ctx context.Context, job string, batch []notify.Notification) {
	if len(batch) == 0 {
		return
	}
	now := r.clock.Now()
	for i := range batch {
		batch[i].CreatedAt = now
	}
	report := r.deliverer.Deliver(ctx, batch)
	r.logger.Info("notifications delivered",
		zap.String("job", job),
		zap.Int("notifications", len(batch)),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
	)
}
