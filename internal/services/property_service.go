package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"estate/internal/apperr"
	"estate/internal/models"
	"estate/internal/money"
	"estate/internal/policy"
	"estate/internal/store"
	"estate/internal/validator"
)

type PropertyService struct {
	core       Core
	properties PropertyStore
	users      UserLookup
}

func NewPropertyService(core Core, properties PropertyStore, users UserLookup) *PropertyService {
	return &PropertyService{core: core, properties: properties, users: users}
}

type PropertyInput struct {
	Title             string                 `json:"title"`
	Description       *string                `json:"description"`
	Type              models.PropertyType    `json:"type"`
	Status            *models.PropertyStatus `json:"status"`
	Address           string                 `json:"address"`
	City              string                 `json:"city"`
	PostalCode        string                 `json:"postal_code"`
	Country           string                 `json:"country"`
	SurfaceArea       decimal.Decimal        `json:"surface_area"`
	NumberOfRooms     *int                   `json:"number_of_rooms"`
	NumberOfBathrooms *int                   `json:"number_of_bathrooms"`
	Floor             *int                   `json:"floor"`
	HasParking        bool                   `json:"has_parking"`
	HasElevator       bool                   `json:"has_elevator"`
	Price             decimal.Decimal        `json:"price"`
	Deposit           decimal.NullDecimal    `json:"deposit"`
	MonthlyCharges    decimal.NullDecimal    `json:"monthly_charges"`
	OwnerID           string                 `json:"owner_id"`
}

// PropertyPatch carries only the fields present in the request body.
type PropertyPatch struct {
	Title             *string                `json:"title"`
	Description       *string                `json:"description"`
	Type              *models.PropertyType   `json:"type"`
	Status            *models.PropertyStatus `json:"status"`
	Address           *string                `json:"address"`
	City              *string                `json:"city"`
	PostalCode        *string                `json:"postal_code"`
	Country           *string                `json:"country"`
	SurfaceArea       *decimal.Decimal       `json:"surface_area"`
	NumberOfRooms     *int                   `json:"number_of_rooms"`
	NumberOfBathrooms *int                   `json:"number_of_bathrooms"`
	Floor             *int                   `json:"floor"`
	HasParking        *bool                  `json:"has_parking"`
	HasElevator       *bool                  `json:"has_elevator"`
	Price             *decimal.Decimal       `json:"price"`
	Deposit           *decimal.Decimal       `json:"deposit"`
	MonthlyCharges    *decimal.Decimal       `json:"monthly_charges"`
	OwnerID           *string                `json:"owner_id"`
}

func (s *PropertyService) Create(ctx context.Context, actor policy.Actor, input PropertyInput) (models.Property, error) {
	if err := policy.Require(actor, policy.PropertyCreate); err != nil {
		return models.Property{}, err
	}
	p := models.Property{
		ID:                uuid.NewString(),
		Title:             strings.TrimSpace(input.Title),
		Description:       input.Description,
		Type:              input.Type,
		Status:            models.PropertyAvailable,
		Address:           strings.TrimSpace(input.Address),
		City:              strings.TrimSpace(input.City),
		PostalCode:        strings.TrimSpace(input.PostalCode),
		Country:           strings.TrimSpace(input.Country),
		SurfaceArea:       input.SurfaceArea,
		NumberOfRooms:     input.NumberOfRooms,
		NumberOfBathrooms: input.NumberOfBathrooms,
		Floor:             input.Floor,
		HasParking:        input.HasParking,
		HasElevator:       input.HasElevator,
		Price:             input.Price,
		Deposit:           input.Deposit,
		MonthlyCharges:    input.MonthlyCharges,
		OwnerID:           input.OwnerID,
	}
	if p.Country == "" {
		p.Country = "France"
	}
	if input.Status != nil {
		p.Status = *input.Status
	}
	if p.Status == models.PropertyRented {
		return models.Property{}, apperr.Validation("a property becomes rented only through a contract")
	}
	if err := validateProperty(p); err != nil {
		return models.Property{}, err
	}
	if _, err := existingUser(ctx, s.users, p.OwnerID, "owner"); err != nil {
		return models.Property{}, err
	}
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.properties.Create(ctx, tx, p); err != nil {
			return err
		}
		return s.core.audit(ctx, tx, actor, "property.create", "property", p.ID, p)
	})
	if err != nil {
		return models.Property{}, err
	}
	return s.properties.GetByID(ctx, p.ID)
}

func (s *PropertyService) Get(ctx context.Context, actor policy.Actor, propertyID string) (models.Property, error) {
	p, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return models.Property{}, notFound(err, "property")
	}
	if err := s.core.Policy.CanAccessProperty(ctx, actor, p); err != nil {
		return models.Property{}, err
	}
	return p, nil
}

// List narrows the filter to what actor may see before querying.
func (s *PropertyService) List(ctx context.Context, actor policy.Actor, filter store.PropertyFilter) ([]models.Property, error) {
	filter.Scope = s.core.Policy.Scope(actor)
	return s.properties.List(ctx, filter)
}

func (s *PropertyService) Update(ctx context.Context, actor policy.Actor, propertyID string, patch PropertyPatch) (models.Property, error) {
	if err := policy.Require(actor, policy.PropertyUpdate); err != nil {
		return models.Property{}, err
	}
	if patch.OwnerID != nil {
		if _, err := existingUser(ctx, s.users, *patch.OwnerID, "owner"); err != nil {
			return models.Property{}, err
		}
	}
	var updated models.Property
	var statusChanged bool
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.properties.GetForUpdate(ctx, tx, propertyID)
		if err != nil {
			return notFound(err, "property")
		}
		applyPropertyPatch(&p, patch)
		if err := validateProperty(p); err != nil {
			return err
		}
		if err := s.properties.Update(ctx, tx, p); err != nil {
			return err
		}
		statusChanged = false
		if patch.Status != nil && *patch.Status != p.Status {
			if err := s.transition(ctx, tx, &p, *patch.Status); err != nil {
				return err
			}
			statusChanged = true
		}
		updated = p
		return s.core.audit(ctx, tx, actor, "property.update", "property", p.ID, patch)
	})
	if err != nil {
		return models.Property{}, err
	}
	if statusChanged {
		s.core.Metrics.ObserveTransition("property", string(updated.Status))
	}
	return s.properties.GetByID(ctx, propertyID)
}

func (s *PropertyService) SetStatus(ctx context.Context, actor policy.Actor, propertyID string, status models.PropertyStatus) (models.Property, error) {
	if err := policy.Require(actor, policy.PropertySetStatus); err != nil {
		return models.Property{}, err
	}
	if !status.Valid() {
		return models.Property{}, apperr.Validationf("invalid property status %q", status)
	}
	var changed bool
	err := s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.properties.GetForUpdate(ctx, tx, propertyID)
		if err != nil {
			return notFound(err, "property")
		}
		changed = p.Status != status
		if !changed {
			return nil
		}
		from := p.Status
		if err := s.transition(ctx, tx, &p, status); err != nil {
			return err
		}
		return s.core.audit(ctx, tx, actor, "property.set_status", "property", p.ID, map[string]any{
			"from": from,
			"to":   status,
		})
	})
	if err != nil {
		return models.Property{}, err
	}
	if changed {
		s.core.Metrics.ObserveTransition("property", string(status))
	}
	return s.properties.GetByID(ctx, propertyID)
}

// transition is the only manual way to move a property between states.
// Rented is entered and left by the contract lifecycle alone.
func (s *PropertyService) transition(ctx context.Context, tx *sqlx.Tx, p *models.Property, to models.PropertyStatus) error {
	if !to.Valid() {
		return apperr.Validationf("invalid property status %q", to)
	}
	if to == models.PropertyRented || p.Status == models.PropertyRented {
		return apperr.Conflict("rented status is managed by contracts")
	}
	if !p.Status.CanTransition(to) {
		return apperr.Conflictf("cannot change property status from %s to %s", p.Status, to)
	}
	if err := s.properties.SetStatus(ctx, tx, p.ID, to); err != nil {
		return err
	}
	p.Status = to
	return nil
}

// Delete refuses while any contract, current or historical, references the property.
func (s *PropertyService) Delete(ctx context.Context, actor policy.Actor, propertyID string) error {
	if err := policy.Require(actor, policy.PropertyDelete); err != nil {
		return err
	}
	return s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.properties.GetForUpdate(ctx, tx, propertyID)
		if err != nil {
			return notFound(err, "property")
		}
		count, err := s.properties.CountContracts(ctx, tx, propertyID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("property has contracts and cannot be deleted")
		}
		if err := s.properties.Delete(ctx, tx, propertyID); err != nil {
			return notFound(err, "property")
		}
		return s.core.audit(ctx, tx, actor, "property.delete", "property", propertyID, p)
	})
}

func applyPropertyPatch(p *models.Property, patch PropertyPatch) {
	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	if patch.Type != nil {
		p.Type = *patch.Type
	}
	if patch.Address != nil {
		p.Address = strings.TrimSpace(*patch.Address)
	}
	if patch.City != nil {
		p.City = strings.TrimSpace(*patch.City)
	}
	if patch.PostalCode != nil {
		p.PostalCode = strings.TrimSpace(*patch.PostalCode)
	}
	if patch.Country != nil {
		p.Country = strings.TrimSpace(*patch.Country)
	}
	if patch.SurfaceArea != nil {
		p.SurfaceArea = *patch.SurfaceArea
	}
	if patch.NumberOfRooms != nil {
		p.NumberOfRooms = patch.NumberOfRooms
	}
	if patch.NumberOfBathrooms != nil {
		p.NumberOfBathrooms = patch.NumberOfBathrooms
	}
	if patch.Floor != nil {
		p.Floor = patch.Floor
	}
	if patch.HasParking != nil {
		p.HasParking = *patch.HasParking
	}
	if patch.HasElevator != nil {
		p.HasElevator = *patch.HasElevator
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Deposit != nil {
		p.Deposit = decimal.NewNullDecimal(*patch.Deposit)
	}
	if patch.MonthlyCharges != nil {
		p.MonthlyCharges = decimal.NewNullDecimal(*patch.MonthlyCharges)
	}
	if patch.OwnerID != nil {
		p.OwnerID = *patch.OwnerID
	}
}

// surface_area is stored as NUMERIC(10,2).
var maxSurfaceArea = decimal.New(1, 8)

func validateProperty(p models.Property) error {
	if err := validator.ValidateTitle(p.Title); err != nil {
		return apperr.Invalid(err)
	}
	if !p.Type.Valid() {
		return apperr.Validationf("invalid property type %q", p.Type)
	}
	if !p.Status.Valid() {
		return apperr.Validationf("invalid property status %q", p.Status)
	}
	if p.Address == "" || p.City == "" {
		return apperr.Validation("address and city are required")
	}
	if err := validator.ValidatePostalCode(p.PostalCode); err != nil {
		return apperr.Invalid(err)
	}
	if p.OwnerID == "" {
		return apperr.Validation("owner_id is required")
	}
	if err := money.CheckPositive(p.SurfaceArea); err != nil {
		return apperr.Validationf("surface_area: %v", err)
	}
	if p.SurfaceArea.GreaterThanOrEqual(maxSurfaceArea) {
		return apperr.Validation("surface_area is too large")
	}
	if err := money.CheckPositive(p.Price); err != nil {
		return apperr.Validationf("price: %v", err)
	}
	if err := money.CheckOptional(p.Deposit); err != nil {
		return apperr.Validationf("deposit: %v", err)
	}
	if err := money.CheckOptional(p.MonthlyCharges); err != nil {
		return apperr.Validationf("monthly_charges: %v", err)
	}
	for name, v := range map[string]*int{"number_of_rooms": p.NumberOfRooms, "number_of_bathrooms": p.NumberOfBathrooms} {
		if v != nil && *v < 0 {
			return apperr.Validationf("%s must not be negative", name)
		}
	}
	return nil
}
