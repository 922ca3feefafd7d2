package store

import (
	"context"

	"estate/internal/models"
)

const contractColumns = `c.id, c.type, c.status, c.start_date, c.end_date, c.rent_amount, c.deposit_amount,
	c.payment_day, c.terms, c.notes, c.property_id, c.tenant_id, c.created_at, c.updated_at`

type ContractStore struct {
	db DB
}

func NewContractStore(db DB) *ContractStore {
	return &ContractStore{db: db}
}

type ContractFilter struct {
	PropertyID *string
	TenantID   *string
	Status     *models.ContractStatus
	Scope      Scope
	Page       Page
}

func (s *ContractStore) Create(ctx context.Context, tx Execer, c models.Contract) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO contracts (id, type, status, start_date, end_date, rent_amount, deposit_amount,
			payment_day, terms, notes, property_id, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, c.ID, c.Type, c.Status, c.StartDate, c.EndDate, c.RentAmount, c.DepositAmount,
		c.PaymentDay, c.Terms, c.Notes, c.PropertyID, c.TenantID)
	return err
}

func (s *ContractStore) GetByID(ctx context.Context, contractID string) (models.Contract, error) {
	var c models.Contract
	err := s.db.GetContext(ctx, &c, `SELECT `+contractColumns+` FROM contracts c WHERE c.id = $1`, contractID)
	return c, err
}

func (s *ContractStore) GetForUpdate(ctx context.Context, tx Getter, contractID string) (models.Contract, error) {
	var c models.Contract
	err := tx.GetContext(ctx, &c, `SELECT `+contractColumns+` FROM contracts c WHERE c.id = $1 FOR UPDATE`, contractID)
	return c, err
}

func (s *ContractStore) List(ctx context.Context, filter ContractFilter) ([]models.Contract, error) {
	var conds conditions
	if filter.PropertyID != nil {
		conds.add("c.property_id = ?", *filter.PropertyID)
	}
	if filter.TenantID != nil {
		conds.add("c.tenant_id = ?", *filter.TenantID)
	}
	if filter.Status != nil {
		conds.add("c.status = ?", *filter.Status)
	}
	applyContractScope(&conds, filter.Scope)
	query, args := conds.build(`SELECT `+contractColumns+` FROM contracts c`, "c.start_date DESC, c.id", filter.Page)
	contracts := []models.Contract{}
	if err := s.db.SelectContext(ctx, &contracts, query, args...); err != nil {
		return nil, err
	}
	return contracts, nil
}

func applyContractScope(conds *conditions, scope Scope) {
	if scope.OwnerID != "" {
		conds.add("c.property_id IN (SELECT id FROM properties WHERE owner_id = ?)", scope.OwnerID)
	}
	if scope.TenantID != "" {
		conds.add("c.tenant_id = ?", scope.TenantID)
	}
}

// Update writes every mutable column. The service decides status and end_date.
func (s *ContractStore) Update(ctx context.Context, tx Execer, c models.Contract) error {
	return requireOne(tx.ExecContext(ctx, `
		UPDATE contracts
		SET type = $1, status = $2, start_date = $3, end_date = $4, rent_amount = $5, deposit_amount = $6,
			payment_day = $7, terms = $8, notes = $9, tenant_id = $10, updated_at = NOW()
		WHERE id = $11
	`, c.Type, c.Status, c.StartDate, c.EndDate, c.RentAmount, c.DepositAmount,
		c.PaymentDay, c.Terms, c.Notes, c.TenantID, c.ID))
}

// CountLive counts the pending and active contracts on a property.
func (s *ContractStore) CountLive(ctx context.Context, tx Getter, propertyID string) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM contracts WHERE property_id = $1 AND status IN ('pending', 'active')
	`, propertyID)
	return count, err
}

// ListExpiring returns active contracts whose end date falls in [from, to].
func (s *ContractStore) ListExpiring(ctx context.Context, from, to models.Date, scope Scope, page Page) ([]models.Contract, error) {
	var conds conditions
	conds.add("c.status = 'active'")
	conds.add("c.end_date BETWEEN ? AND ?", from, to)
	applyContractScope(&conds, scope)
	query, args := conds.build(`SELECT `+contractColumns+` FROM contracts c`, "c.end_date, c.id", page)
	contracts := []models.Contract{}
	if err := s.db.SelectContext(ctx, &contracts, query, args...); err != nil {
		return nil, err
	}
	return contracts, nil
}

// ListLapsed returns the ids of active contracts whose end date is before day.
func (s *ContractStore) ListLapsed(ctx context.Context, day models.Date) ([]string, error) {
	ids := []string{}
	err := s.db.SelectContext(ctx, &ids, `
		SELECT id FROM contracts WHERE status = 'active' AND end_date < $1 ORDER BY end_date, id
	`, day)
	return ids, err
}

type EndingContract struct {
	ContractID    string      `db:"contract_id"`
	EndDate       models.Date `db:"end_date"`
	TenantID      string      `db:"tenant_id"`
	OwnerID       string      `db:"owner_id"`
	PropertyTitle string      `db:"property_title"`
}

// ListEndingBetween joins the parties of active contracts ending in [from, to].
func (s *ContractStore) ListEndingBetween(ctx context.Context, from, to models.Date) ([]EndingContract, error) {
	ending := []EndingContract{}
	err := s.db.SelectContext(ctx, &ending, `
		SELECT c.id AS contract_id, c.end_date, c.tenant_id, p.owner_id, p.title AS property_title
		FROM contracts c
		JOIN properties p ON p.id = c.property_id
		WHERE c.status = 'active' AND c.end_date BETWEEN $1 AND $2
		ORDER BY c.end_date, c.id
	`, from, to)
	return ending, err
}
