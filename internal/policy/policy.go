// Package policy decides what a signed-in user may do and see.
//
// Mutations are gated per action, not by a role hierarchy: an agent may
// create properties but only an admin may delete one. Reads are scoped by
// ownership. List queries receive a store.Scope that is forced into the SQL.
// Single records are checked after they are loaded, so a missing record is
// reported as not found before any permission check runs.
package policy

import (
	"context"

	"estate/internal/apperr"
	"estate/internal/models"
	"estate/internal/store"
)

type Action string

const (
	PropertyCreate    Action = "property:create"
	PropertyUpdate    Action = "property:update"
	PropertySetStatus Action = "property:set-status"
	PropertyDelete    Action = "property:delete"

	ContractCreate    Action = "contract:create"
	ContractUpdate    Action = "contract:update"
	ContractTerminate Action = "contract:terminate"
	ContractActivate  Action = "contract:activate"
	ContractExpiring  Action = "contract:list-expiring"

	PaymentCreate   Action = "payment:create"
	PaymentUpdate   Action = "payment:update"
	PaymentMarkPaid Action = "payment:mark-paid"
	PaymentOverdue  Action = "payment:list-overdue"
	PaymentGenerate Action = "payment:generate-rent"

	MaintenanceCreate    Action = "maintenance:create"
	MaintenanceUpdate    Action = "maintenance:update"
	MaintenanceComplete  Action = "maintenance:complete"
	MaintenanceHigh      Action = "maintenance:list-high-priority"
	MaintenanceEmergency Action = "maintenance:list-emergency"

	UserManage Action = "user:manage"
	AuditRead  Action = "audit:read"
	JobRun     Action = "job:run"
)

var (
	staff     = []models.Role{models.RoleAdmin, models.RoleAgent}
	adminOnly = []models.Role{models.RoleAdmin}
	everyone  = []models.Role{models.RoleAdmin, models.RoleAgent, models.RoleOwner, models.RoleTenant}
)

var grants = map[Action][]models.Role{
	PropertyCreate:    staff,
	PropertyUpdate:    staff,
	PropertySetStatus: staff,
	PropertyDelete:    adminOnly,

	ContractCreate:    staff,
	ContractUpdate:    staff,
	ContractTerminate: staff,
	ContractActivate:  staff,
	ContractExpiring:  staff,

	PaymentCreate:   staff,
	PaymentUpdate:   staff,
	PaymentMarkPaid: staff,
	PaymentOverdue:  staff,
	PaymentGenerate: staff,

	MaintenanceCreate:    everyone,
	MaintenanceUpdate:    staff,
	MaintenanceComplete:  staff,
	MaintenanceHigh:      staff,
	MaintenanceEmergency: staff,

	UserManage: adminOnly,
	AuditRead:  adminOnly,
	JobRun:     adminOnly,
}

var ErrForbidden = apperr.Forbidden("insufficient permissions")

// Actor is the signed-in user as loaded from the users table on this request.
type Actor struct {
	UserID string
	Role   models.Role
}

// System is the actor recorded for scheduled jobs.
var System = Actor{Role: models.RoleAdmin}

func Can(actor Actor, action Action) bool {
	for _, role := range grants[action] {
		if role == actor.Role {
			return true
		}
	}
	return false
}

func Require(actor Actor, action Action) error {
	if !Can(actor, action) {
		return ErrForbidden
	}
	return nil
}

type Lookup interface {
	PropertyOwner(ctx context.Context, propertyID string) (string, error)
	TenantHasActiveContract(ctx context.Context, tenantID, propertyID string) (bool, error)
	ContractParties(ctx context.Context, contractID string) (store.ContractParties, error)
}

type Policy struct {
	lookup Lookup
}

func New(lookup Lookup) *Policy {
	return &Policy{lookup: lookup}
}

// Scope is the listing restriction for actor. Roles without a rule get the tenant's.
func (p *Policy) Scope(actor Actor) store.Scope {
	switch actor.Role {
	case models.RoleAdmin, models.RoleAgent:
		return store.Scope{}
	case models.RoleOwner:
		return store.Scope{OwnerID: actor.UserID}
	default:
		return store.Scope{TenantID: actor.UserID}
	}
}

// CanAccessProperty covers reading a property and filing a maintenance request on it.
func (p *Policy) CanAccessProperty(ctx context.Context, actor Actor, property models.Property) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleAgent:
		return nil
	case models.RoleOwner:
		return allowIf(property.OwnerID == actor.UserID)
	case models.RoleTenant:
		ok, err := p.lookup.TenantHasActiveContract(ctx, actor.UserID, property.ID)
		if err != nil {
			return err
		}
		return allowIf(ok)
	}
	return ErrForbidden
}

func (p *Policy) CanViewContract(ctx context.Context, actor Actor, contract models.Contract) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleAgent:
		return nil
	case models.RoleTenant:
		return allowIf(contract.TenantID == actor.UserID)
	case models.RoleOwner:
		ownerID, err := p.lookup.PropertyOwner(ctx, contract.PropertyID)
		if err != nil {
			return err
		}
		return allowIf(ownerID == actor.UserID)
	}
	return ErrForbidden
}

func (p *Policy) CanViewPayment(ctx context.Context, actor Actor, payment models.Payment) error {
	if actor.Role.IsStaff() {
		return nil
	}
	if actor.Role != models.RoleOwner && actor.Role != models.RoleTenant {
		return ErrForbidden
	}
	parties, err := p.lookup.ContractParties(ctx, payment.ContractID)
	if err != nil {
		return err
	}
	if actor.Role == models.RoleOwner {
		return allowIf(parties.OwnerID == actor.UserID)
	}
	return allowIf(parties.TenantID == actor.UserID)
}

func (p *Policy) CanViewMaintenance(ctx context.Context, actor Actor, request models.MaintenanceRequest) error {
	switch actor.Role {
	case models.RoleAdmin, models.RoleAgent:
		return nil
	case models.RoleOwner:
		ownerID, err := p.lookup.PropertyOwner(ctx, request.PropertyID)
		if err != nil {
			return err
		}
		return allowIf(ownerID == actor.UserID)
	case models.RoleTenant:
		ok, err := p.lookup.TenantHasActiveContract(ctx, actor.UserID, request.PropertyID)
		if err != nil {
			return err
		}
		return allowIf(ok)
	}
	return ErrForbidden
}

// CanViewUser lets users read themselves; admins read anyone.
func CanViewUser(actor Actor, userID string) error {
	return allowIf(actor.UserID == userID || actor.Role == models.RoleAdmin)
}

func allowIf(ok bool) error {
	if ok {
		return nil
	}
	return ErrForbidden
}
