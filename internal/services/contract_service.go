package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"estate/internal/apperr"
	"estate/internal/models"
	"estate/internal/money"
	"estate/internal/notify"
	"estate/internal/policy"
	"estate/internal/store"
	"estate/internal/validator"
)

type ContractService struct {
	core       Core
	contracts  ContractStore
	properties PropertyStore
	users      UserLookup
}

func NewContractService(core Core, contracts ContractStore, properties PropertyStore, users UserLookup) *ContractService {
	return &ContractService{core: core, contracts: contracts, properties: properties, users: users}
}

type ContractInput struct {
	Type          models.ContractType    `json:"type"`
	Status        *models.ContractStatus `json:"status"`
	StartDate     models.Date            `json:"start_date"`
	EndDate       *models.Date           `json:"end_date"`
	RentAmount    decimal.NullDecimal    `json:"rent_amount"`
	DepositAmount decimal.NullDecimal    `json:"deposit_amount"`
	PaymentDay    *int                   `json:"payment_day"`
	Terms         *string                `json:"terms"`
	Notes         *string                `json:"notes"`
	PropertyID    string                 `json:"property_id"`
	TenantID      string                 `json:"tenant_id"`
}

// ContractPatch updates terms in place. A status change is routed through the
// same transition as terminate and activate.
type ContractPatch struct {
	Type          *models.ContractType   `json:"type"`
	Status        *models.ContractStatus `json:"status"`
	StartDate     *models.Date           `json:"start_date"`
	EndDate       *models.Date           `json:"end_date"`
	RentAmount    *decimal.Decimal       `json:"rent_amount"`
	DepositAmount *decimal.Decimal       `json:"deposit_amount"`
	PaymentDay    *int                   `json:"payment_day"`
	Terms         *string                `json:"terms"`
	Notes         *string                `json:"notes"`
}

// Create inserts the contract and rents the property in one transaction.
func (s *ContractService) Create(ctx context.Context, actor policy.Actor, input ContractInput) (models.Contract, error) {
	if err := policy.Require(actor, policy.ContractCreate); err != nil {
		return models.Contract{}, err
	}
	c := models.Contract{
		ID:            uuid.NewString(),
		Type:          input.Type,
		Status:        models.ContractPending,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		RentAmount:    input.RentAmount,
		DepositAmount: input.DepositAmount,
		PaymentDay:    input.PaymentDay,
		Terms:         input.Terms,
		Notes:         input.Notes,
		PropertyID:    input.PropertyID,
		TenantID:      input.TenantID,
	}
	if input.Status != nil {
		c.Status = *input.Status
	}
	if !c.Status.Live() {
		return models.Contract{}, apperr.Validation("a new contract must be pending or active")
	}
	if err := validateContract(c); err != nil {
		return models.Contract{}, err
	}
	if err := validateTerm(c); err != nil {
		return models.Contract{}, err
	}
	if _, err := existingUser(ctx, s.users, c.TenantID, "tenant"); err != nil {
		return models.Contract{}, err
	}
	var ownerID string
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.properties.GetForUpdate(ctx, tx, c.PropertyID)
		if err != nil {
			return notFound(err, "property")
		}
		if p.Status != models.PropertyAvailable {
			return apperr.Conflictf("property is %s, not available", p.Status)
		}
		ownerID = p.OwnerID
		if err := s.contracts.Create(ctx, tx, c); err != nil {
			return err
		}
		if err := s.properties.SetStatus(ctx, tx, p.ID, models.PropertyRented); err != nil {
			return err
		}
		return s.core.audit(ctx, tx, actor, "contract.create", "contract", c.ID, c)
	})
	if err != nil {
		return models.Contract{}, err
	}
	s.core.Metrics.ObserveTransition("contract", string(c.Status))
	s.core.Metrics.ObserveTransition("property", string(models.PropertyRented))
	s.core.notify(contractNotifications(c, notify.KindContractCreated,
		"New contract",
		fmt.Sprintf("A %s contract starting %s has been created.", c.Type, c.StartDate),
		c.TenantID, ownerID)...)
	return s.contracts.GetByID(ctx, c.ID)
}

func (s *ContractService) Get(ctx context.Context, actor policy.Actor, contractID string) (models.Contract, error) {
	c, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return models.Contract{}, notFound(err, "contract")
	}
	if err := s.core.Policy.CanViewContract(ctx, actor, c); err != nil {
		return models.Contract{}, err
	}
	return c, nil
}

// List forces the actor's scope; a tenant asking for another tenant's
// contracts simply gets none.
func (s *ContractService) List(ctx context.Context, actor policy.Actor, filter store.ContractFilter) ([]models.Contract, error) {
	filter.Scope = s.core.Policy.Scope(actor)
	return s.contracts.List(ctx, filter)
}

func (s *ContractService) Update(ctx context.Context, actor policy.Actor, contractID string, patch ContractPatch) (models.Contract, error) {
	if err := policy.Require(actor, policy.ContractUpdate); err != nil {
		return models.Contract{}, err
	}
	var effects *transitionEffects
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		effects = nil
		c, err := s.contracts.GetForUpdate(ctx, tx, contractID)
		if err != nil {
			return notFound(err, "contract")
		}
		applyContractPatch(&c, patch)
		if err := validateContract(c); err != nil {
			return err
		}
		// Termination may leave end_date before a future start_date, so the
		// term is only rechecked when the patch moves it.
		if patch.StartDate != nil || patch.EndDate != nil {
			if err := validateTerm(c); err != nil {
				return err
			}
		}
		if patch.Status != nil && *patch.Status != c.Status {
			effects, err = s.transition(ctx, tx, &c, *patch.Status)
			if err != nil {
				return err
			}
		}
		if err := s.contracts.Update(ctx, tx, c); err != nil {
			return err
		}
		return s.core.audit(ctx, tx, actor, "contract.update", "contract", c.ID, patch)
	})
	if err != nil {
		return models.Contract{}, err
	}
	s.afterTransition(effects)
	return s.contracts.GetByID(ctx, contractID)
}

// Terminate ends the contract today and frees its property.
func (s *ContractService) Terminate(ctx context.Context, actor policy.Actor, contractID string) (models.Contract, error) {
	if err := policy.Require(actor, policy.ContractTerminate); err != nil {
		return models.Contract{}, err
	}
	return s.changeStatus(ctx, actor, contractID, models.ContractTerminated, "contract.terminate")
}

func (s *ContractService) Activate(ctx context.Context, actor policy.Actor, contractID string) (models.Contract, error) {
	if err := policy.Require(actor, policy.ContractActivate); err != nil {
		return models.Contract{}, err
	}
	return s.changeStatus(ctx, actor, contractID, models.ContractActive, "contract.activate")
}

// Expire moves one lapsed active contract to expired. It reports false when
// the contract changed state since it was listed.
func (s *ContractService) Expire(ctx context.Context, contractID string) (bool, error) {
	var effects *transitionEffects
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		effects = nil
		c, err := s.contracts.GetForUpdate(ctx, tx, contractID)
		if err != nil {
			return notFound(err, "contract")
		}
		if c.Status != models.ContractActive {
			return nil
		}
		effects, err = s.transition(ctx, tx, &c, models.ContractExpired)
		if err != nil {
			return err
		}
		if err := s.contracts.Update(ctx, tx, c); err != nil {
			return err
		}
		return s.core.audit(ctx, tx, policy.System, "contract.expire", "contract", c.ID, nil)
	})
	if err != nil {
		return false, err
	}
	s.afterTransition(effects)
	return effects != nil, nil
}

// ExpireLapsed expires every active contract whose end date has passed, one
// transaction per contract. A failing contract does not stop the others.
func (s *ContractService) ExpireLapsed(ctx context.Context) (int, error) {
	ids, err := s.contracts.ListLapsed(ctx, s.core.Clock.Today())
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		ok, err := s.Expire(ctx, id)
		if err != nil {
			s.core.logger().Error("contract expiry failed", zap.String("contract_id", id), zap.Error(err))
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

// Expiring lists active contracts ending within the next 30 days, today included.
func (s *ContractService) Expiring(ctx context.Context, actor policy.Actor, page store.Page) ([]models.Contract, error) {
	if err := policy.Require(actor, policy.ContractExpiring); err != nil {
		return nil, err
	}
	today := s.core.Clock.Today()
	return s.contracts.ListExpiring(ctx, today, today.AddDays(models.ExpiringWindowDays), s.core.Policy.Scope(actor), page)
}

func (s *ContractService) changeStatus(ctx context.Context, actor policy.Actor, contractID string, to models.ContractStatus, action string) (models.Contract, error) {
	var effects *transitionEffects
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		effects = nil
		c, err := s.contracts.GetForUpdate(ctx, tx, contractID)
		if err != nil {
			return notFound(err, "contract")
		}
		if c.Status == to {
			return apperr.Conflictf("contract is already %s", to)
		}
		effects, err = s.transition(ctx, tx, &c, to)
		if err != nil {
			return err
		}
		if err := s.contracts.Update(ctx, tx, c); err != nil {
			return err
		}
		return s.core.audit(ctx, tx, actor, action, "contract", c.ID, map[string]any{"status": to})
	})
	if err != nil {
		return models.Contract{}, err
	}
	s.afterTransition(effects)
	return s.contracts.GetByID(ctx, contractID)
}

type transitionEffects struct {
	contract      models.Contract
	propertyFreed bool
	ownerID       string
}

// transition is the single place a contract changes status. It mutates c,
// which the caller persists, and releases the property when the contract
// stops being live.
func (s *ContractService) transition(ctx context.Context, tx *sqlx.Tx, c *models.Contract, to models.ContractStatus) (*transitionEffects, error) {
	if !to.Valid() {
		return nil, apperr.Validationf("invalid contract status %q", to)
	}
	if !c.Status.CanTransition(to) {
		return nil, apperr.Conflictf("cannot change contract status from %s to %s", c.Status, to)
	}
	c.Status = to
	if to == models.ContractTerminated {
		today := s.core.Clock.Today()
		c.EndDate = &today
	}
	effects := &transitionEffects{}
	if !to.Live() {
		p, err := s.properties.GetForUpdate(ctx, tx, c.PropertyID)
		if err != nil {
			return nil, notFound(err, "property")
		}
		effects.ownerID = p.OwnerID
		// The contract row still says live until the caller persists it.
		live, err := s.contracts.CountLive(ctx, tx, c.PropertyID)
		if err != nil {
			return nil, err
		}
		if p.Status == models.PropertyRented && live <= 1 {
			if err := s.properties.SetStatus(ctx, tx, p.ID, models.PropertyAvailable); err != nil {
				return nil, err
			}
			effects.propertyFreed = true
		}
	}
	effects.contract = *c
	return effects, nil
}

func (s *ContractService) afterTransition(effects *transitionEffects) {
	if effects == nil {
		return
	}
	c := effects.contract
	s.core.Metrics.ObserveTransition("contract", string(c.Status))
	if effects.propertyFreed {
		s.core.Metrics.ObserveTransition("property", string(models.PropertyAvailable))
	}
	switch c.Status {
	case models.ContractTerminated:
		s.core.notify(contractNotifications(c, notify.KindContractTerminated,
			"Contract terminated",
			fmt.Sprintf("Your contract was terminated effective %s.", c.EndDate),
			c.TenantID, effects.ownerID)...)
	case models.ContractExpired:
		s.core.notify(contractNotifications(c, notify.KindContractExpired,
			"Contract expired",
			fmt.Sprintf("Your contract ended on %s.", c.EndDate),
			c.TenantID, effects.ownerID)...)
	}
}

func contractNotifications(c models.Contract, kind notify.Kind, subject, body string, userIDs ...string) []notify.Notification {
	batch := make([]notify.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		batch = append(batch, notify.Notification{
			UserID:     id,
			Kind:       kind,
			Subject:    subject,
			Body:       body,
			EntityType: "contract",
			EntityID:   c.ID,
		})
	}
	return batch
}

func applyContractPatch(c *models.Contract, patch ContractPatch) {
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.StartDate != nil {
		c.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		c.EndDate = patch.EndDate
	}
	if patch.RentAmount != nil {
		c.RentAmount = decimal.NewNullDecimal(*patch.RentAmount)
	}
	if patch.DepositAmount != nil {
		c.DepositAmount = decimal.NewNullDecimal(*patch.DepositAmount)
	}
	if patch.PaymentDay != nil {
		c.PaymentDay = patch.PaymentDay
	}
	if patch.Terms != nil {
		c.Terms = patch.Terms
	}
	if patch.Notes != nil {
		c.Notes = patch.Notes
	}
}

func validateTerm(c models.Contract) error {
	if err := validator.ValidateDateRange(c.StartDate, c.EndDate); err != nil {
		return apperr.Invalid(err)
	}
	return nil
}

func validateContract(c models.Contract) error {
	if !c.Type.Valid() {
		return apperr.Validationf("invalid contract type %q", c.Type)
	}
	if !c.Status.Valid() {
		return apperr.Validationf("invalid contract status %q", c.Status)
	}
	if c.PropertyID == "" || c.TenantID == "" {
		return apperr.Validation("property_id and tenant_id are required")
	}
	if c.StartDate.IsZero() {
		return apperr.Validation("start_date is required")
	}
	if err := money.CheckOptional(c.RentAmount); err != nil {
		return apperr.Validationf("rent_amount: %v", err)
	}
	if err := money.CheckOptional(c.DepositAmount); err != nil {
		return apperr.Validationf("deposit_amount: %v", err)
	}
	if c.PaymentDay != nil {
		if err := validator.ValidatePaymentDay(*c.PaymentDay); err != nil {
			return apperr.Invalid(err)
		}
	}
	return nil
}
