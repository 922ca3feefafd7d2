package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"estate/internal/apperr"
	"estate/internal/calendar"
	"estate/internal/models"
	"estate/internal/money"
	"estate/internal/notify"
	"estate/internal/policy"
	"estate/internal/store"
)

type PaymentService struct {
	core      Core
	payments  PaymentStore
	contracts ContractStore
	parties   PartyLookup
}

// PartyLookup resolves who is on each side of a contract.
type PartyLookup interface {
	ContractParties(ctx context.Context, contractID string) (store.ContractParties, error)
}

func NewPaymentService(core Core, payments PaymentStore, contracts ContractStore, parties PartyLookup) *PaymentService {
	return &PaymentService{core: core, payments: payments, contracts: contracts, parties: parties}
}

type PaymentInput struct {
	ContractID string                `json:"contract_id"`
	Amount     decimal.Decimal       `json:"amount"`
	Type       models.PaymentType    `json:"type"`
	DueDate    models.Date           `json:"due_date"`
	Status     *models.PaymentStatus `json:"status"`
	Reference  *string               `json:"reference"`
	Notes      *string               `json:"notes"`
}

// PaymentPatch has no paid_date: it is set only by the transition to paid.
type PaymentPatch struct {
	Amount    *decimal.Decimal      `json:"amount"`
	Type      *models.PaymentType   `json:"type"`
	DueDate   *models.Date          `json:"due_date"`
	Status    *models.PaymentStatus `json:"status"`
	Reference *string               `json:"reference"`
	Notes     *string               `json:"notes"`
}

func (s *PaymentService) Create(ctx context.Context, actor policy.Actor, input PaymentInput) (models.Payment, error) {
	if err := policy.Require(actor, policy.PaymentCreate); err != nil {
		return models.Payment{}, err
	}
	p := models.Payment{
		ID:         uuid.NewString(),
		Amount:     input.Amount,
		Type:       input.Type,
		Status:     models.PaymentPending,
		DueDate:    input.DueDate,
		Reference:  input.Reference,
		Notes:      input.Notes,
		ContractID: input.ContractID,
	}
	if input.Status != nil {
		p.Status = *input.Status
	}
	if p.Status == models.PaymentPaid {
		today := s.core.Clock.Today()
		p.PaidDate = &today
	}
	if err := validatePayment(p); err != nil {
		return models.Payment{}, err
	}
	// The contract row stays locked until the payment is stored, so a
	// concurrent terminate cannot slip in between.
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		c, err := s.contracts.GetForUpdate(ctx, tx, p.ContractID)
		if err != nil {
			return notFound(err, "contract")
		}
		if c.Status != models.ContractActive {
			return apperr.Conflictf("contract is %s, not active", c.Status)
		}
		if err := s.payments.Create(ctx, tx, p); err != nil {
			return err
		}
		return s.core.audit(ctx, tx, actor, "payment.create", "payment", p.ID, p)
	})
	if err != nil {
		return models.Payment{}, err
	}
	return s.payments.GetByID(ctx, p.ID)
}

func (s *PaymentService) Get(ctx context.Context, actor policy.Actor, paymentID string) (models.Payment, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return models.Payment{}, notFound(err, "payment")
	}
	if err := s.core.Policy.CanViewPayment(ctx, actor, p); err != nil {
		return models.Payment{}, err
	}
	return p, nil
}

func (s *PaymentService) List(ctx context.Context, actor policy.Actor, filter store.PaymentFilter) ([]models.Payment, error) {
	filter.Scope = s.core.Policy.Scope(actor)
	return s.payments.List(ctx, filter)
}

func (s *PaymentService) Update(ctx context.Context, actor policy.Actor, paymentID string, patch PaymentPatch) (models.Payment, error) {
	if err := policy.Require(actor, policy.PaymentUpdate); err != nil {
		return models.Payment{}, err
	}
	var moved *models.Payment
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		moved = nil
		p, err := s.payments.GetForUpdate(ctx, tx, paymentID)
		if err != nil {
			return notFound(err, "payment")
		}
		applyPaymentPatch(&p, patch)
		if patch.Status != nil && *patch.Status != p.Status {
			if err := s.transition(&p, *patch.Status); err != nil {
				return err
			}
			moved = &p
		}
		if err := validatePayment(p); err != nil {
			return err
		}
		if err := s.payments.Update(ctx, tx, p); err != nil {
			return err
		}
		return s.core.audit(ctx, tx, actor, "payment.update", "payment", p.ID, patch)
	})
	if err != nil {
		return models.Payment{}, err
	}
	s.afterTransition(ctx, moved)
	return s.payments.GetByID(ctx, paymentID)
}

// MarkPaid is one-way: a paid payment cannot be paid again or unmarked.
func (s *PaymentService) MarkPaid(ctx context.Context, actor policy.Actor, paymentID string) (models.Payment, error) {
	if err := policy.Require(actor, policy.PaymentMarkPaid); err != nil {
		return models.Payment{}, err
	}
	var moved *models.Payment
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		moved = nil
		p, err := s.payments.GetForUpdate(ctx, tx, paymentID)
		if err != nil {
			return notFound(err, "payment")
		}
		if p.Status == models.PaymentPaid {
			return apperr.Conflict("payment is already paid")
		}
		if err := s.transition(&p, models.PaymentPaid); err != nil {
			return err
		}
		if err := s.payments.Update(ctx, tx, p); err != nil {
			return err
		}
		moved = &p
		return s.core.audit(ctx, tx, actor, "payment.mark_paid", "payment", p.ID, map[string]any{"paid_date": p.PaidDate})
	})
	if err != nil {
		return models.Payment{}, err
	}
	s.afterTransition(ctx, moved)
	return s.payments.GetByID(ctx, paymentID)
}

// Overdue lists pending payments due strictly before today.
func (s *PaymentService) Overdue(ctx context.Context, actor policy.Actor, page store.Page) ([]models.Payment, error) {
	if err := policy.Require(actor, policy.PaymentOverdue); err != nil {
		return nil, err
	}
	return s.payments.ListOverdue(ctx, s.core.Clock.Today(), s.core.Policy.Scope(actor), page)
}

// GenerateRent creates the pending rent payments of a contract's schedule.
// The window runs from the later of today and the start date to the end
// date, or one year when the contract is open-ended. The payment day is
// clamped to the last day of short months. Dates already holding a rent
// payment are skipped, so calling it twice creates nothing new.
func (s *PaymentService) GenerateRent(ctx context.Context, actor policy.Actor, contractID string) ([]models.Payment, error) {
	if err := policy.Require(actor, policy.PaymentGenerate); err != nil {
		return nil, err
	}
	var created []models.Payment
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		created = nil
		c, err := s.contracts.GetForUpdate(ctx, tx, contractID)
		if err != nil {
			return notFound(err, "contract")
		}
		if c.Status.Terminal() {
			return apperr.Conflictf("contract is %s", c.Status)
		}
		if !c.RentAmount.Valid || c.PaymentDay == nil {
			return apperr.Conflict("contract has no rent amount or payment day")
		}
		existing, err := s.payments.RentDueDates(ctx, tx, c.ID)
		if err != nil {
			return err
		}
		taken := make(map[string]struct{}, len(existing))
		for _, d := range existing {
			taken[d.String()] = struct{}{}
		}
		from, to := rentWindow(c, s.core.Clock.Today())
		for _, due := range calendar.MonthlySchedule(from, to, *c.PaymentDay) {
			if _, ok := taken[due.String()]; ok {
				continue
			}
			created = append(created, models.Payment{
				ID:         uuid.NewString(),
				Amount:     c.RentAmount.Decimal,
				Type:       models.PaymentRent,
				Status:     models.PaymentPending,
				DueDate:    due,
				ContractID: c.ID,
			})
		}
		if len(created) == 0 {
			return nil
		}
		if err := s.payments.CreateBatch(ctx, tx, created); err != nil {
			return err
		}
		return s.core.audit(ctx, tx, actor, "payment.generate_rent", "contract", c.ID, map[string]any{
			"count": len(created),
			"from":  from,
			"to":    to,
		})
	})
	if err != nil {
		return nil, err
	}
	if created == nil {
		created = []models.Payment{}
	}
	return created, nil
}

func rentWindow(c models.Contract, today models.Date) (models.Date, models.Date) {
	from := c.StartDate
	if today.After(from) {
		from = today
	}
	if c.EndDate != nil {
		return from, *c.EndDate
	}
	return from, calendar.AddYears(from, 1)
}

// transition is the single place a payment changes status.
func (s *PaymentService) transition(p *models.Payment, to models.PaymentStatus) error {
	if !to.Valid() {
		return apperr.Validationf("invalid payment status %q", to)
	}
	if !p.Status.CanTransition(to) {
		return apperr.Conflictf("cannot change payment status from %s to %s", p.Status, to)
	}
	p.Status = to
	if to == models.PaymentPaid {
		today := s.core.Clock.Today()
		p.PaidDate = &today
	}
	return nil
}

func (s *PaymentService) afterTransition(ctx context.Context, p *models.Payment) {
	if p == nil {
		return
	}
	s.core.Metrics.ObserveTransition("payment", string(p.Status))
	if p.Status != models.PaymentPaid {
		return
	}
	parties, err := s.parties.ContractParties(ctx, p.ContractID)
	if err != nil {
		s.core.logger().Warn("payment notification skipped", zap.String("payment_id", p.ID), zap.Error(err))
		return
	}
	body := fmt.Sprintf("Payment of %s due %s was received on %s.", money.Format(p.Amount), p.DueDate, p.PaidDate)
	batch := make([]notify.Notification, 0, 2)
	for _, id := range []string{parties.TenantID, parties.OwnerID} {
		batch = append(batch, notify.Notification{
			UserID:     id,
			Kind:       notify.KindPaymentPaid,
			Subject:    "Payment received",
			Body:       body,
			EntityType: "payment",
			EntityID:   p.ID,
		})
	}
	s.core.notify(batch...)
}

func applyPaymentPatch(p *models.Payment, patch PaymentPatch) {
	if patch.Amount != nil {
		p.Amount = *patch.Amount
	}
	if patch.Type != nil {
		p.Type = *patch.Type
	}
	if patch.DueDate != nil {
		p.DueDate = *patch.DueDate
	}
	if patch.Reference != nil {
		p.Reference = patch.Reference
	}
	if patch.Notes != nil {
		p.Notes = patch.Notes
	}
}

func validatePayment(p models.Payment) error {
	if p.ContractID == "" {
		return apperr.Validation("contract_id is required")
	}
	if err := money.CheckPositive(p.Amount); err != nil {
		return apperr.Validationf("amount: %v", err)
	}
	if !p.Type.Valid() {
		return apperr.Validationf("invalid payment type %q", p.Type)
	}
	if !p.Status.Valid() {
		return apperr.Validationf("invalid payment status %q", p.Status)
	}
	if p.DueDate.IsZero() {
		return apperr.Validation("due_date is required")
	}
	return nil
}
