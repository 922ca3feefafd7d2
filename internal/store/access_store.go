package store

import (
	"context"
)

// AccessStore answers the ownership questions the access policy asks about a
// single record.
type AccessStore struct {
	db DB
}

func NewAccessStore(db DB) *AccessStore {
	return &AccessStore{db: db}
}

type ContractParties struct {
	ContractID string `db:"contract_id"`
	PropertyID string `db:"property_id"`
	OwnerID    string `db:"owner_id"`
	TenantID   string `db:"tenant_id"`
}

func (s *AccessStore) PropertyOwner(ctx context.Context, propertyID string) (string, error) {
	var ownerID string
	err := s.db.GetContext(ctx, &ownerID, `SELECT owner_id FROM properties WHERE id = $1`, propertyID)
	return ownerID, err
}

func (s *AccessStore) TenantHasActiveContract(ctx context.Context, tenantID, propertyID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM contracts WHERE tenant_id = $1 AND property_id = $2 AND status = 'active'
		)
	`, tenantID, propertyID)
	return exists, err
}

func (s *AccessStore) ContractParties(ctx context.Context, contractID string) (ContractParties, error) {
	var parties ContractParties
	err := s.db.GetContext(ctx, &parties, `
		SELECT c.id AS contract_id, c.property_id, p.owner_id, c.tenant_id
		FROM contracts c
		JOIN properties p ON p.id = c.property_id
		WHERE c.id = $1
	`, contractID)
	return parties, err
}
