package store

import (
	"context"
	"time"

	"estate/internal/models"
)

const maintenanceColumns = `m.id, m.title, m.description, m.type, m.status, m.priority, m.request_date,
	m.completion_date, m.cost, m.notes, m.property_id, m.requested_by_id, m.assigned_to_id, m.created_at, m.updated_at`

type MaintenanceStore struct {
	db DB
}

func NewMaintenanceStore(db DB) *MaintenanceStore {
	return &MaintenanceStore{db: db}
}

type MaintenanceFilter struct {
	PropertyID  *string
	Status      *models.MaintenanceStatus
	Type        *models.MaintenanceType
	Priority    *int
	MinPriority *int
	Open        bool
	Scope       Scope
	Page        Page
}

func (s *MaintenanceStore) Create(ctx context.Context, tx Execer, m models.MaintenanceRequest) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO maintenance_requests (id, title, description, type, status, priority, request_date,
			completion_date, cost, notes, property_id, requested_by_id, assigned_to_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, m.ID, m.Title, m.Description, m.Type, m.Status, m.Priority, m.RequestDate,
		m.CompletionDate, m.Cost, m.Notes, m.PropertyID, m.RequestedByID, m.AssignedToID)
	return err
}

func (s *MaintenanceStore) GetByID(ctx context.Context, requestID string) (models.MaintenanceRequest, error) {
	var m models.MaintenanceRequest
	err := s.db.GetContext(ctx, &m, `SELECT `+maintenanceColumns+` FROM maintenance_requests m WHERE m.id = $1`, requestID)
	return m, err
}

func (s *MaintenanceStore) GetForUpdate(ctx context.Context, tx Getter, requestID string) (models.MaintenanceRequest, error) {
	var m models.MaintenanceRequest
	err := tx.GetContext(ctx, &m, `SELECT `+maintenanceColumns+` FROM maintenance_requests m WHERE m.id = $1 FOR UPDATE`, requestID)
	return m, err
}

// List also serves the high-priority (MinPriority + Open) and emergency (Type + Open) listings.
func (s *MaintenanceStore) List(ctx context.Context, filter MaintenanceFilter) ([]models.MaintenanceRequest, error) {
	var conds conditions
	if filter.PropertyID != nil {
		conds.add("m.property_id = ?", *filter.PropertyID)
	}
	if filter.Status != nil {
		conds.add("m.status = ?", *filter.Status)
	}
	if filter.Type != nil {
		conds.add("m.type = ?", *filter.Type)
	}
	if filter.Priority != nil {
		conds.add("m.priority = ?", *filter.Priority)
	}
	if filter.MinPriority != nil {
		conds.add("m.priority >= ?", *filter.MinPriority)
	}
	if filter.Open {
		conds.add("m.status <> 'completed'")
	}
	if filter.Scope.OwnerID != "" {
		conds.add("m.property_id IN (SELECT id FROM properties WHERE owner_id = ?)", filter.Scope.OwnerID)
	}
	if filter.Scope.TenantID != "" {
		conds.add("m.property_id IN (SELECT property_id FROM contracts WHERE tenant_id = ? AND status = 'active')", filter.Scope.TenantID)
	}
	query, args := conds.build(`SELECT `+maintenanceColumns+` FROM maintenance_requests m`, "m.priority DESC, m.created_at, m.id", filter.Page)
	requests := []models.MaintenanceRequest{}
	if err := s.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *MaintenanceStore) Update(ctx context.Context, tx Execer, m models.MaintenanceRequest) error {
	return requireOne(tx.ExecContext(ctx, `
		UPDATE maintenance_requests
		SET title = $1, description = $2, type = $3, status = $4, priority = $5, completion_date = $6,
			cost = $7, notes = $8, assigned_to_id = $9, updated_at = NOW()
		WHERE id = $10
	`, m.Title, m.Description, m.Type, m.Status, m.Priority, m.CompletionDate,
		m.Cost, m.Notes, m.AssignedToID, m.ID))
}

type StaleRequest struct {
	ID            string    `db:"id"`
	Title         string    `db:"title"`
	Priority      int       `db:"priority"`
	PropertyTitle string    `db:"property_title"`
	OwnerID       string    `db:"owner_id"`
	AssignedToID  *string   `db:"assigned_to_id"`
	CreatedAt     time.Time `db:"created_at"`
}

// ListStale returns pending requests created before cutoff.
func (s *MaintenanceStore) ListStale(ctx context.Context, cutoff time.Time) ([]StaleRequest, error) {
	requests := []StaleRequest{}
	err := s.db.SelectContext(ctx, &requests, `
		SELECT m.id, m.title, m.priority, p.title AS property_title, p.owner_id, m.assigned_to_id, m.created_at
		FROM maintenance_requests m
		JOIN properties p ON p.id = m.property_id
		WHERE m.status = 'pending' AND m.created_at < $1
		ORDER BY m.priority DESC, m.created_at
	`, cutoff)
	return requests, err
}
