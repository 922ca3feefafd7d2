// Package notify delivers user notifications to every configured sink.
//
// Delivery is best effort. Each send runs under its own timeout. A failing
// recipient or sink is logged and counted, and the rest of the batch still
// goes out. Callers never see delivery errors.
package notify

import (
	"context"
	"time"

	"estate/internal/models"
)

type Kind string

const (
	KindPaymentReminder       Kind = "payment_reminder"
	KindContractRenewal       Kind = "contract_renewal"
	KindMaintenanceEscalation Kind = "maintenance_escalation"
	KindContractCreated       Kind = "contract_created"
	KindContractTerminated    Kind = "contract_terminated"
	KindContractExpired       Kind = "contract_expired"
	KindPaymentPaid           Kind = "payment_paid"
	KindEmergencyMaintenance  Kind = "emergency_maintenance"
	KindMaintenanceCompleted  Kind = "maintenance_completed"
)

type Notification struct {
	UserID     string    `json:"user_id"`
	Kind       Kind      `json:"kind"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	EntityType string    `json:"entity_type,omitempty"`
	EntityID   string    `json:"entity_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Sink is one delivery channel. A sink that cannot reach a contact (no
// phone number for SMS, no open socket) returns nil.
type Sink interface {
	Name() string
	Send(ctx context.Context, to models.Contact, n Notification) error
}

// Directory resolves user ids to delivery addresses.
type Directory interface {
	Contacts(ctx context.Context, userIDs []string) ([]models.Contact, error)
}

// Enqueuer is what request handlers and services use: it never blocks on delivery.
type Enqueuer interface {
	Enqueue(batch ...Notification)
}
