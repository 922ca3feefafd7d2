package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     *string   `db:"full_name" json:"full_name"`
	Phone        *string   `db:"phone" json:"phone"`
	Role         Role      `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type Property struct {
	ID                string              `db:"id" json:"id"`
	Title             string              `db:"title" json:"title"`
	Description       *string             `db:"description" json:"description"`
	Type              PropertyType        `db:"type" json:"type"`
	Status            PropertyStatus      `db:"status" json:"status"`
	Address           string              `db:"address" json:"address"`
	City              string              `db:"city" json:"city"`
	PostalCode        string              `db:"postal_code" json:"postal_code"`
	Country           string              `db:"country" json:"country"`
	SurfaceArea       decimal.Decimal     `db:"surface_area" json:"surface_area"`
	NumberOfRooms     *int                `db:"number_of_rooms" json:"number_of_rooms"`
	NumberOfBathrooms *int                `db:"number_of_bathrooms" json:"number_of_bathrooms"`
	Floor             *int                `db:"floor" json:"floor"`
	HasParking        bool                `db:"has_parking" json:"has_parking"`
	HasElevator       bool                `db:"has_elevator" json:"has_elevator"`
	Price             decimal.Decimal     `db:"price" json:"price"`
	Deposit           decimal.NullDecimal `db:"deposit" json:"deposit"`
	MonthlyCharges    decimal.NullDecimal `db:"monthly_charges" json:"monthly_charges"`
	OwnerID           string              `db:"owner_id" json:"owner_id"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

type Contract struct {
	ID            string              `db:"id" json:"id"`
	Type          ContractType        `db:"type" json:"type"`
	Status        ContractStatus      `db:"status" json:"status"`
	StartDate     Date                `db:"start_date" json:"start_date"`
	EndDate       *Date               `db:"end_date" json:"end_date"`
	RentAmount    decimal.NullDecimal `db:"rent_amount" json:"rent_amount"`
	DepositAmount decimal.NullDecimal `db:"deposit_amount" json:"deposit_amount"`
	PaymentDay    *int                `db:"payment_day" json:"payment_day"`
	Terms         *string             `db:"terms" json:"terms"`
	Notes         *string             `db:"notes" json:"notes"`
	PropertyID    string              `db:"property_id" json:"property_id"`
	TenantID      string              `db:"tenant_id" json:"tenant_id"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

type Payment struct {
	ID         string          `db:"id" json:"id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Type       PaymentType     `db:"type" json:"type"`
	Status     PaymentStatus   `db:"status" json:"status"`
	DueDate    Date            `db:"due_date" json:"due_date"`
	PaidDate   *Date           `db:"paid_date" json:"paid_date"`
	Reference  *string         `db:"reference" json:"reference"`
	Notes      *string         `db:"notes" json:"notes"`
	ContractID string          `db:"contract_id" json:"contract_id"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

type MaintenanceRequest struct {
	ID             string              `db:"id" json:"id"`
	Title          string              `db:"title" json:"title"`
	Description    string              `db:"description" json:"description"`
	Type           MaintenanceType     `db:"type" json:"type"`
	Status         MaintenanceStatus   `db:"status" json:"status"`
	Priority       int                 `db:"priority" json:"priority"`
	RequestDate    Date                `db:"request_date" json:"request_date"`
	CompletionDate *Date               `db:"completion_date" json:"completion_date"`
	Cost           decimal.NullDecimal `db:"cost" json:"cost"`
	Notes          *string             `db:"notes" json:"notes"`
	PropertyID     string              `db:"property_id" json:"property_id"`
	RequestedByID  string              `db:"requested_by_id" json:"requested_by_id"`
	AssignedToID   *string             `db:"assigned_to_id" json:"assigned_to_id"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}

// Contact is the delivery address book entry of a user, as read by notification jobs.
type Contact struct {
	UserID   string  `db:"user_id" json:"user_id"`
	Email    string  `db:"email" json:"email"`
	Phone    *string `db:"phone" json:"phone,omitempty"`
	FullName *string `db:"full_name" json:"full_name,omitempty"`
}
