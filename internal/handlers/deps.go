package handlers

import (
	"context"

	"estate/internal/models"
	"estate/internal/policy"
	"estate/internal/services"
	"estate/internal/store"
)

type UserService interface {
	Register(ctx context.Context, input services.RegisterInput) (models.User, error)
	Create(ctx context.Context, actor policy.Actor, input services.RegisterInput) (models.User, error)
	Login(ctx context.Context, email, password string) (services.Session, error)
	Authenticate(ctx context.Context, token string) (models.User, error)
	Get(ctx context.Context, actor policy.Actor, userID string) (models.User, error)
	List(ctx context.Context, actor policy.Actor, filter store.UserFilter) ([]models.User, error)
	UpdateProfile(ctx context.Context, actor policy.Actor, patch services.ProfilePatch) (models.User, error)
	Patch(ctx context.Context, actor policy.Actor, userID string, patch services.UserPatch) (models.User, error)
}

type PropertyService interface {
	Create(ctx context.Context, actor policy.Actor, input services.PropertyInput) (models.Property, error)
	Get(ctx context.Context, actor policy.Actor, propertyID string) (models.Property, error)
	List(ctx context.Context, actor policy.Actor, filter store.PropertyFilter) ([]models.Property, error)
	Update(ctx context.Context, actor policy.Actor, propertyID string, patch services.PropertyPatch) (models.Property, error)
	SetStatus(ctx context.Context, actor policy.Actor, propertyID string, status models.PropertyStatus) (models.Property, error)
	Delete(ctx context.Context, actor policy.Actor, propertyID string) error
}

type ContractService interface {
	Create(ctx context.Context, actor policy.Actor, input services.ContractInput) (models.Contract, error)
	Get(ctx context.Context, actor policy.Actor, contractID string) (models.Contract, error)
	List(ctx context.Context, actor policy.Actor, filter store.ContractFilter) ([]models.Contract, error)
	Update(ctx context.Context, actor policy.Actor, contractID string, patch services.ContractPatch) (models.Contract, error)
	Terminate(ctx context.Context, actor policy.Actor, contractID string) (models.Contract, error)
	Activate(ctx context.Context, actor policy.Actor, contractID string) (models.Contract, error)
	Expiring(ctx context.Context, actor policy.Actor, page store.Page) ([]models.Contract, error)
}

type PaymentService interface {
	Create(ctx context.Context, actor policy.Actor, input services.PaymentInput) (models.Payment, error)
	Get(ctx context.Context, actor policy.Actor, paymentID string) (models.Payment, error)
	List(ctx context.Context, actor policy.Actor, filter store.PaymentFilter) ([]models.Payment, error)
	Update(ctx context.Context, actor policy.Actor, paymentID string, patch services.PaymentPatch) (models.Payment, error)
	MarkPaid(ctx context.Context, actor policy.Actor, paymentID string) (models.Payment, error)
	Overdue(ctx context.Context, actor policy.Actor, page store.Page) ([]models.Payment, error)
	GenerateRent(ctx context.Context, actor policy.Actor, contractID string) ([]models.Payment, error)
}

type MaintenanceService interface {
	Create(ctx context.Context, actor policy.Actor, input services.MaintenanceInput) (models.MaintenanceRequest, error)
	Get(ctx context.Context, actor policy.Actor, requestID string) (models.MaintenanceRequest, error)
	List(ctx context.Context, actor policy.Actor, filter store.MaintenanceFilter) ([]models.MaintenanceRequest, error)
	Update(ctx context.Context, actor policy.Actor, requestID string, patch services.MaintenancePatch) (models.MaintenanceRequest, error)
	Complete(ctx context.Context, actor policy.Actor, requestID string, input services.CompleteInput) (models.MaintenanceRequest, error)
	HighPriority(ctx context.Context, actor policy.Actor, page store.Page) ([]models.MaintenanceRequest, error)
	Emergency(ctx context.Context, actor policy.Actor, page store.Page) ([]models.MaintenanceRequest, error)
}

type AuditLister interface {
	List(ctx context.Context, filter store.AuditFilter) ([]store.AuditEntry, error)
}

type JobRunner interface {
	Names() []string
	RunNow(ctx context.Context, name string) error
}
