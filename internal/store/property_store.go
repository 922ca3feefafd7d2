package store

import (
	"context"

	"estate/internal/models"
)

const propertyColumns = `p.id, p.title, p.description, p.type, p.status, p.address, p.city, p.postal_code, p.country,
	p.surface_area, p.number_of_rooms, p.number_of_bathrooms, p.floor, p.has_parking, p.has_elevator,
	p.price, p.deposit, p.monthly_charges, p.owner_id, p.created_at, p.updated_at`

type PropertyStore struct {
	db DB
}

func NewPropertyStore(db DB) *PropertyStore {
	return &PropertyStore{db: db}
}

type PropertyFilter struct {
	OwnerID *string
	Status  *models.PropertyStatus
	Type    *models.PropertyType
	City    *string
	Scope   Scope
	Page    Page
}

func (s *PropertyStore) Create(ctx context.Context, tx Execer, p models.Property) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO properties (id, title, description, type, status, address, city, postal_code, country,
			surface_area, number_of_rooms, number_of_bathrooms, floor, has_parking, has_elevator,
			price, deposit, monthly_charges, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, p.ID, p.Title, p.Description, p.Type, p.Status, p.Address, p.City, p.PostalCode, p.Country,
		p.SurfaceArea, p.NumberOfRooms, p.NumberOfBathrooms, p.Floor, p.HasParking, p.HasElevator,
		p.Price, p.Deposit, p.MonthlyCharges, p.OwnerID)
	return err
}

func (s *PropertyStore) GetByID(ctx context.Context, propertyID string) (models.Property, error) {
	var p models.Property
	err := s.db.GetContext(ctx, &p, `SELECT `+propertyColumns+` FROM properties p WHERE p.id = $1`, propertyID)
	return p, err
}

// GetForUpdate locks the property row until the transaction ends. Contract
// create and terminate take this lock before touching the rented status.
func (s *PropertyStore) GetForUpdate(ctx context.Context, tx Getter, propertyID string) (models.Property, error) {
	var p models.Property
	err := tx.GetContext(ctx, &p, `SELECT `+propertyColumns+` FROM properties p WHERE p.id = $1 FOR UPDATE`, propertyID)
	return p, err
}

func (s *PropertyStore) List(ctx context.Context, filter PropertyFilter) ([]models.Property, error) {
	var conds conditions
	if filter.OwnerID != nil {
		conds.add("p.owner_id = ?", *filter.OwnerID)
	}
	if filter.Status != nil {
		conds.add("p.status = ?", *filter.Status)
	}
	if filter.Type != nil {
		conds.add("p.type = ?", *filter.Type)
	}
	if filter.City != nil {
		conds.add("lower(p.city) = lower(?)", *filter.City)
	}
	if filter.Scope.OwnerID != "" {
		conds.add("p.owner_id = ?", filter.Scope.OwnerID)
	}
	if filter.Scope.TenantID != "" {
		conds.add(`EXISTS (SELECT 1 FROM contracts c WHERE c.property_id = p.id AND c.tenant_id = ? AND c.status = 'active')`, filter.Scope.TenantID)
	}
	query, args := conds.build(`SELECT `+propertyColumns+` FROM properties p`, "p.created_at DESC, p.id", filter.Page)
	properties := []models.Property{}
	if err := s.db.SelectContext(ctx, &properties, query, args...); err != nil {
		return nil, err
	}
	return properties, nil
}

// Update writes the descriptive fields. Status is only written by SetStatus.
func (s *PropertyStore) Update(ctx context.Context, tx Execer, p models.Property) error {
	return requireOne(tx.ExecContext(ctx, `
		UPDATE properties
		SET title = $1, description = $2, type = $3, address = $4, city = $5, postal_code = $6, country = $7,
			surface_area = $8, number_of_rooms = $9, number_of_bathrooms = $10, floor = $11,
			has_parking = $12, has_elevator = $13, price = $14, deposit = $15, monthly_charges = $16,
			owner_id = $17, updated_at = NOW()
		WHERE id = $18
	`, p.Title, p.Description, p.Type, p.Address, p.City, p.PostalCode, p.Country,
		p.SurfaceArea, p.NumberOfRooms, p.NumberOfBathrooms, p.Floor,
		p.HasParking, p.HasElevator, p.Price, p.Deposit, p.MonthlyCharges,
		p.OwnerID, p.ID))
}

func (s *PropertyStore) SetStatus(ctx context.Context, tx Execer, propertyID string, status models.PropertyStatus) error {
	return requireOne(tx.ExecContext(ctx, `
		UPDATE properties SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, propertyID))
}

// CountContracts counts every contract of the property, historical ones included.
func (s *PropertyStore) CountContracts(ctx context.Context, tx Getter, propertyID string) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM contracts WHERE property_id = $1`, propertyID)
	return count, err
}

// Delete removes the property; its maintenance requests go with it (ON DELETE CASCADE).
func (s *PropertyStore) Delete(ctx context.Context, tx Execer, propertyID string) error {
	return requireOne(tx.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, propertyID))
}
