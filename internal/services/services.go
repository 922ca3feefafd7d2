// Package services holds the lifecycle rules of properties, contracts,
// payments and maintenance requests, plus user accounts.
//
// Every status change goes through the transition function of its service,
// which checks the state table in models and applies the cross-entity side
// effects inside the caller's transaction. Notifications are queued only
// after the transaction commits.
package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"estate/internal/apperr"
	"estate/internal/calendar"
	"estate/internal/db"
	"estate/internal/metrics"
	"estate/internal/models"
	"estate/internal/notify"
	"estate/internal/policy"
	"estate/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, user models.User) error
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, filter store.UserFilter) ([]models.User, error)
	Update(ctx context.Context, tx store.Execer, user models.User) error
	HasAnyAdmin(ctx context.Context, tx store.Getter) (bool, error)
}

// UserLookup is the read side of UserStore the lifecycle services need.
type UserLookup interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type PropertyStore interface {
	Create(ctx context.Context, tx store.Execer, p models.Property) error
	GetByID(ctx context.Context, propertyID string) (models.Property, error)
	GetForUpdate(ctx context.Context, tx store.Getter, propertyID string) (models.Property, error)
	List(ctx context.Context, filter store.PropertyFilter) ([]models.Property, error)
	Update(ctx context.Context, tx store.Execer, p models.Property) error
	SetStatus(ctx context.Context, tx store.Execer, propertyID string, status models.PropertyStatus) error
	CountContracts(ctx context.Context, tx store.Getter, propertyID string) (int, error)
	Delete(ctx context.Context, tx store.Execer, propertyID string) error
}

type ContractStore interface {
	Create(ctx context.Context, tx store.Execer, c models.Contract) error
	GetByID(ctx context.Context, contractID string) (models.Contract, error)
	GetForUpdate(ctx context.Context, tx store.Getter, contractID string) (models.Contract, error)
	List(ctx context.Context, filter store.ContractFilter) ([]models.Contract, error)
	Update(ctx context.Context, tx store.Execer, c models.Contract) error
	CountLive(ctx context.Context, tx store.Getter, propertyID string) (int, error)
	ListExpiring(ctx context.Context, from, to models.Date, scope store.Scope, page store.Page) ([]models.Contract, error)
	ListLapsed(ctx context.Context, day models.Date) ([]string, error)
}

type PaymentStore interface {
	Create(ctx context.Context, tx store.Execer, p models.Payment) error
	CreateBatch(ctx context.Context, tx store.Execer, payments []models.Payment) error
	GetByID(ctx context.Context, paymentID string) (models.Payment, error)
	GetForUpdate(ctx context.Context, tx store.Getter, paymentID string) (models.Payment, error)
	List(ctx context.Context, filter store.PaymentFilter) ([]models.Payment, error)
	ListOverdue(ctx context.Context, day models.Date, scope store.Scope, page store.Page) ([]models.Payment, error)
	Update(ctx context.Context, tx store.Execer, p models.Payment) error
	RentDueDates(ctx context.Context, tx store.Selecter, contractID string) ([]models.Date, error)
}

type MaintenanceStore interface {
	Create(ctx context.Context, tx store.Execer, m models.MaintenanceRequest) error
	GetByID(ctx context.Context, requestID string) (models.MaintenanceRequest, error)
	GetForUpdate(ctx context.Context, tx store.Getter, requestID string) (models.MaintenanceRequest, error)
	List(ctx context.Context, filter store.MaintenanceFilter) ([]models.MaintenanceRequest, error)
	Update(ctx context.Context, tx store.Execer, m models.MaintenanceRequest) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID string, data any) error
}

// Core is the plumbing every lifecycle service shares.
type Core struct {
	TxRunner db.TxRunner
	Audit    AuditStore
	Policy   *policy.Policy
	Clock    calendar.Clock
	Notifier notify.Enqueuer
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

func (c Core) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return c.TxRunner.WithTx(ctx, fn)
}

func (c Core) audit(ctx context.Context, tx store.Execer, actor policy.Actor, action, entityType, entityID string, data any) error {
	if c.Audit == nil {
		return nil
	}
	return c.Audit.Log(ctx, tx, actor.UserID, action, entityType, entityID, data)
}

func (c Core) notify(batch ...notify.Notification) {
	if c.Notifier == nil || len(batch) == 0 {
		return
	}
	now := c.Clock.Now()
	for i := range batch {
		if batch[i].CreatedAt.IsZero() {
			batch[i].CreatedAt = now
		}
	}
	c.Notifier.Enqueue(batch...)
}

func (c Core) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// notFound turns a missing row into a NotFound error naming what was looked up.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(what + " not found")
	}
	return err
}

// existingUser reports a missing user as NotFound under the given role name.
func existingUser(ctx context.Context, users UserLookup, userID, what string) (models.User, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, notFound(err, what)
	}
	return user, nil
}
