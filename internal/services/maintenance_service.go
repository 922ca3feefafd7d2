package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"estate/internal/apperr"
	"estate/internal/models"
	"estate/internal/money"
	"estate/internal/notify"
	"estate/internal/policy"
	"estate/internal/store"
	"estate/internal/validator"
)

type MaintenanceService struct {
	core       Core
	requests   MaintenanceStore
	properties PropertyStore
	users      UserLookup
}

func NewMaintenanceService(core Core, requests MaintenanceStore, properties PropertyStore, users UserLookup) *MaintenanceService {
	return &MaintenanceService{core: core, requests: requests, properties: properties, users: users}
}

type MaintenanceInput struct {
	PropertyID   string                 `json:"property_id"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Type         models.MaintenanceType `json:"type"`
	Priority     *int                   `json:"priority"`
	RequestDate  *models.Date           `json:"request_date"`
	AssignedToID *string                `json:"assigned_to_id"`
	Notes        *string                `json:"notes"`
}

type MaintenancePatch struct {
	Title        *string                   `json:"title"`
	Description  *string                   `json:"description"`
	Type         *models.MaintenanceType   `json:"type"`
	Status       *models.MaintenanceStatus `json:"status"`
	Priority     *int                      `json:"priority"`
	AssignedToID *string                   `json:"assigned_to_id"`
	Cost         *decimal.Decimal          `json:"cost"`
	Notes        *string                   `json:"notes"`
}

type CompleteInput struct {
	Cost  decimal.Decimal `json:"cost"`
	Notes *string         `json:"notes"`
}

// Create files a request on a property the actor can access. Emergencies
// notify the property owner once the request is stored.
func (s *MaintenanceService) Create(ctx context.Context, actor policy.Actor, input MaintenanceInput) (models.MaintenanceRequest, error) {
	if err := policy.Require(actor, policy.MaintenanceCreate); err != nil {
		return models.MaintenanceRequest{}, err
	}
	m := models.MaintenanceRequest{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Type:          input.Type,
		Status:        models.MaintenancePending,
		Priority:      models.DefaultPriority,
		RequestDate:   s.core.Clock.Today(),
		Notes:         input.Notes,
		PropertyID:    input.PropertyID,
		RequestedByID: actor.UserID,
		AssignedToID:  input.AssignedToID,
	}
	if input.Priority != nil {
		m.Priority = *input.Priority
	}
	if input.RequestDate != nil && !input.RequestDate.IsZero() {
		m.RequestDate = *input.RequestDate
	}
	if err := validateMaintenance(m); err != nil {
		return models.MaintenanceRequest{}, err
	}
	p, err := s.properties.GetByID(ctx, m.PropertyID)
	if err != nil {
		return models.MaintenanceRequest{}, notFound(err, "property")
	}
	if err := s.core.Policy.CanAccessProperty(ctx, actor, p); err != nil {
		return models.MaintenanceRequest{}, err
	}
	if _, err := existingUser(ctx, s.users, m.RequestedByID, "requester"); err != nil {
		return models.MaintenanceRequest{}, err
	}
	if m.AssignedToID != nil {
		if _, err := existingUser(ctx, s.users, *m.AssignedToID, "assignee"); err != nil {
			return models.MaintenanceRequest{}, err
		}
	}
	err = s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.requests.Create(ctx, tx, m); err != nil {
			return err
		}
		return s.core.audit(ctx, tx, actor, "maintenance.create", "maintenance_request", m.ID, m)
	})
	if err != nil {
		return models.MaintenanceRequest{}, err
	}
	if m.Type == models.MaintenanceEmergency {
		recipients := []string{p.OwnerID}
		if m.AssignedToID != nil && *m.AssignedToID != p.OwnerID {
			recipients = append(recipients, *m.AssignedToID)
		}
		s.core.notify(maintenanceNotifications(m, notify.KindEmergencyMaintenance,
			"Emergency maintenance request",
			fmt.Sprintf("Emergency reported at %s: %s", p.Title, m.Title),
			recipients...)...)
	}
	return s.requests.GetByID(ctx, m.ID)
}

func (s *MaintenanceService) Get(ctx context.Context, actor policy.Actor, requestID string) (models.MaintenanceRequest, error) {
	m, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return models.MaintenanceRequest{}, notFound(err, "maintenance request")
	}
	if err := s.core.Policy.CanViewMaintenance(ctx, actor, m); err != nil {
		return models.MaintenanceRequest{}, err
	}
	return m, nil
}

func (s *MaintenanceService) List(ctx context.Context, actor policy.Actor, filter store.MaintenanceFilter) ([]models.MaintenanceRequest, error) {
	filter.Scope = s.core.Policy.Scope(actor)
	return s.requests.List(ctx, filter)
}

func (s *MaintenanceService) Update(ctx context.Context, actor policy.Actor, requestID string, patch MaintenancePatch) (models.MaintenanceRequest, error) {
	if err := policy.Require(actor, policy.MaintenanceUpdate); err != nil {
		return models.MaintenanceRequest{}, err
	}
	completing := patch.Status != nil && *patch.Status == models.MaintenanceCompleted
	if patch.Cost != nil && !completing {
		return models.MaintenanceRequest{}, apperr.Validation("cost is recorded only when completing a request")
	}
	if patch.AssignedToID != nil {
		if _, err := existingUser(ctx, s.users, *patch.AssignedToID, "assignee"); err != nil {
			return models.MaintenanceRequest{}, err
		}
	}
	var moved *models.MaintenanceRequest
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		moved = nil
		m, err := s.requests.GetForUpdate(ctx, tx, requestID)
		if err != nil {
			return notFound(err, "maintenance request")
		}
		if completing && m.Status == models.MaintenanceCompleted {
			return apperr.Conflict("maintenance request is already completed")
		}
		applyMaintenancePatch(&m, patch)
		if patch.Status != nil && *patch.Status != m.Status {
			if err := s.transition(&m, *patch.Status); err != nil {
				return err
			}
			moved = &m
		}
		if err := validateMaintenance(m); err != nil {
			return err
		}
		if err := s.requests.Update(ctx, tx, m); err != nil {
			return err
		}
		return s.core.audit(ctx, tx, actor, "maintenance.update", "maintenance_request", m.ID, patch)
	})
	if err != nil {
		return models.MaintenanceRequest{}, err
	}
	s.afterTransition(moved)
	return s.requests.GetByID(ctx, requestID)
}

// Complete records the cost and today's date. Completing twice is a conflict.
func (s *MaintenanceService) Complete(ctx context.Context, actor policy.Actor, requestID string, input CompleteInput) (models.MaintenanceRequest, error) {
	if err := policy.Require(actor, policy.MaintenanceComplete); err != nil {
		return models.MaintenanceRequest{}, err
	}
	if err := money.Check(input.Cost); err != nil {
		return models.MaintenanceRequest{}, apperr.Validationf("cost: %v", err)
	}
	var moved *models.MaintenanceRequest
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		moved = nil
		m, err := s.requests.GetForUpdate(ctx, tx, requestID)
		if err != nil {
			return notFound(err, "maintenance request")
		}
		if m.Status == models.MaintenanceCompleted {
			return apperr.Conflict("maintenance request is already completed")
		}
		m.Cost = decimal.NewNullDecimal(input.Cost)
		if input.Notes != nil {
			m.Notes = input.Notes
		}
		if err := s.transition(&m, models.MaintenanceCompleted); err != nil {
			return err
		}
		if err := s.requests.Update(ctx, tx, m); err != nil {
			return err
		}
		moved = &m
		return s.core.audit(ctx, tx, actor, "maintenance.complete", "maintenance_request", m.ID, map[string]any{
			"cost":            m.Cost,
			"completion_date": m.CompletionDate,
		})
	})
	if err != nil {
		return models.MaintenanceRequest{}, err
	}
	s.afterTransition(moved)
	return s.requests.GetByID(ctx, requestID)
}

// HighPriority lists requests of priority 4 or 5 that are not completed.
func (s *MaintenanceService) HighPriority(ctx context.Context, actor policy.Actor, page store.Page) ([]models.MaintenanceRequest, error) {
	if err := policy.Require(actor, policy.MaintenanceHigh); err != nil {
		return nil, err
	}
	floor := models.HighPriorityFloor
	return s.requests.List(ctx, store.MaintenanceFilter{
		MinPriority: &floor,
		Open:        true,
		Scope:       s.core.Policy.Scope(actor),
		Page:        page,
	})
}

// Emergency lists open requests of type emergency. Priority plays no part.
func (s *MaintenanceService) Emergency(ctx context.Context, actor policy.Actor, page store.Page) ([]models.MaintenanceRequest, error) {
	if err := policy.Require(actor, policy.MaintenanceEmergency); err != nil {
		return nil, err
	}
	kind := models.MaintenanceEmergency
	return s.requests.List(ctx, store.MaintenanceFilter{
		Type:  &kind,
		Open:  true,
		Scope: s.core.Policy.Scope(actor),
		Page:  page,
	})
}

// transition is the single place a request changes status. Completion
// requires a recorded cost and stamps today's date.
func (s *MaintenanceService) transition(m *models.MaintenanceRequest, to models.MaintenanceStatus) error {
	if !to.Valid() {
		return apperr.Validationf("invalid maintenance status %q", to)
	}
	if !m.Status.CanTransition(to) {
		return apperr.Conflictf("cannot change maintenance status from %s to %s", m.Status, to)
	}
	if to == models.MaintenanceCompleted {
		if !m.Cost.Valid {
			return apperr.Validation("cost is required to complete a request")
		}
		today := s.core.Clock.Today()
		m.CompletionDate = &today
	}
	m.Status = to
	return nil
}

func (s *MaintenanceService) afterTransition(m *models.MaintenanceRequest) {
	if m == nil {
		return
	}
	s.core.Metrics.ObserveTransition("maintenance", string(m.Status))
	if m.Status != models.MaintenanceCompleted {
		return
	}
	s.core.notify(maintenanceNotifications(*m, notify.KindMaintenanceCompleted,
		"Maintenance completed",
		fmt.Sprintf("%q was completed on %s.", m.Title, m.CompletionDate),
		m.RequestedByID)...)
}

func maintenanceNotifications(m models.MaintenanceRequest, kind notify.Kind, subject, body string, userIDs ...string) []notify.Notification {
	batch := make([]notify.Notification, 0, len(userIDs))
	for _, id := range userIDs {
		batch = append(batch, notify.Notification{
			UserID:     id,
			Kind:       kind,
			Subject:    subject,
			Body:       body,
			EntityType: "maintenance_request",
			EntityID:   m.ID,
		})
	}
	return batch
}

func applyMaintenancePatch(m *models.MaintenanceRequest, patch MaintenancePatch) {
	if patch.Title != nil {
		m.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		m.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Type != nil {
		m.Type = *patch.Type
	}
	if patch.Priority != nil {
		m.Priority = *patch.Priority
	}
	if patch.AssignedToID != nil {
		m.AssignedToID = patch.AssignedToID
	}
	if patch.Cost != nil {
		m.Cost = decimal.NewNullDecimal(*patch.Cost)
	}
	if patch.Notes != nil {
		m.Notes = patch.Notes
	}
}

func validateMaintenance(m models.MaintenanceRequest) error {
	if err := validator.ValidateTitle(m.Title); err != nil {
		return apperr.Invalid(err)
	}
	if m.Description == "" {
		return apperr.Validation("description is required")
	}
	if !m.Type.Valid() {
		return apperr.Validationf("invalid maintenance type %q", m.Type)
	}
	if err := validator.ValidatePriority(m.Priority); err != nil {
		return apperr.Invalid(err)
	}
	if m.PropertyID == "" {
		return apperr.Validation("property_id is required")
	}
	if err := money.CheckOptional(m.Cost); err != nil {
		return apperr.Validationf("cost: %v", err)
	}
	return nil
}
