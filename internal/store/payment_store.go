package store

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"estate/internal/models"
)

const paymentColumns = `pay.id, pay.amount, pay.type, pay.status, pay.due_date, pay.paid_date, pay.reference,
	pay.notes, pay.contract_id, pay.created_at, pay.updated_at`

type PaymentStore struct {
	db DB
}

func NewPaymentStore(db DB) *PaymentStore {
	return &PaymentStore{db: db}
}

type PaymentFilter struct {
	ContractID *string
	Status     *models.PaymentStatus
	Type       *models.PaymentType
	Scope      Scope
	Page       Page
}

func (s *PaymentStore) Create(ctx context.Context, tx Execer, p models.Payment) error {
	return s.CreateBatch(ctx, tx, []models.Payment{p})
}

// CreateBatch inserts all payments with one statement.
func (s *PaymentStore) CreateBatch(ctx context.Context, tx Execer, payments []models.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	const cols = 9
	values := make([]string, 0, len(payments))
	args := make([]any, 0, len(payments)*cols)
	for i, p := range payments {
		base := i * cols
		values = append(values, "("+placeholders(base+1, cols)+")")
		args = append(args, p.ID, p.Amount, p.Type, p.Status, p.DueDate, p.PaidDate, p.Reference, p.Notes, p.ContractID)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO payments (id, amount, type, status, due_date, paid_date, reference, notes, contract_id)
		VALUES `+strings.Join(values, ", "), args...)
	return err
}

func (s *PaymentStore) GetByID(ctx context.Context, paymentID string) (models.Payment, error) {
	var p models.Payment
	err := s.db.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments pay WHERE pay.id = $1`, paymentID)
	return p, err
}

func (s *PaymentStore) GetForUpdate(ctx context.Context, tx Getter, paymentID string) (models.Payment, error) {
	var p models.Payment
	err := tx.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments pay WHERE pay.id = $1 FOR UPDATE`, paymentID)
	return p, err
}

func (s *PaymentStore) List(ctx context.Context, filter PaymentFilter) ([]models.Payment, error) {
	var conds conditions
	if filter.ContractID != nil {
		conds.add("pay.contract_id = ?", *filter.ContractID)
	}
	if filter.Status != nil {
		conds.add("pay.status = ?", *filter.Status)
	}
	if filter.Type != nil {
		conds.add("pay.type = ?", *filter.Type)
	}
	applyPaymentScope(&conds, filter.Scope)
	return s.selectPayments(ctx, &conds, "pay.due_date DESC, pay.id", filter.Page)
}

// ListOverdue returns pending payments due strictly before day.
func (s *PaymentStore) ListOverdue(ctx context.Context, day models.Date, scope Scope, page Page) ([]models.Payment, error) {
	var conds conditions
	conds.add("pay.status = 'pending'")
	conds.add("pay.due_date < ?", day)
	applyPaymentScope(&conds, scope)
	return s.selectPayments(ctx, &conds, "pay.due_date, pay.id", page)
}

func (s *PaymentStore) selectPayments(ctx context.Context, conds *conditions, orderBy string, page Page) ([]models.Payment, error) {
	query, args := conds.build(`SELECT `+paymentColumns+` FROM payments pay`, orderBy, page)
	payments := []models.Payment{}
	if err := s.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, err
	}
	return payments, nil
}

func applyPaymentScope(conds *conditions, scope Scope) {
	if scope.OwnerID != "" {
		conds.add(`pay.contract_id IN (
			SELECT c.id FROM contracts c JOIN properties p ON p.id = c.property_id WHERE p.owner_id = ?)`, scope.OwnerID)
	}
	if scope.TenantID != "" {
		conds.add("pay.contract_id IN (SELECT id FROM contracts WHERE tenant_id = ?)", scope.TenantID)
	}
}

func (s *PaymentStore) Update(ctx context.Context, tx Execer, p models.Payment) error {
	return requireOne(tx.ExecContext(ctx, `
		UPDATE payments
		SET amount = $1, type = $2, status = $3, due_date = $4, paid_date = $5, reference = $6, notes = $7,
			updated_at = NOW()
		WHERE id = $8
	`, p.Amount, p.Type, p.Status, p.DueDate, p.PaidDate, p.Reference, p.Notes, p.ID))
}

// RentDueDates lists the due dates already holding a rent payment for the contract.
func (s *PaymentStore) RentDueDates(ctx context.Context, tx Selecter, contractID string) ([]models.Date, error) {
	dates := []models.Date{}
	err := tx.SelectContext(ctx, &dates, `
		SELECT due_date FROM payments WHERE contract_id = $1 AND type = 'rent'
	`, contractID)
	return dates, err
}

type DuePayment struct {
	PaymentID     string             `db:"payment_id"`
	ContractID    string             `db:"contract_id"`
	Amount        decimal.Decimal    `db:"amount"`
	Type          models.PaymentType `db:"type"`
	DueDate       models.Date        `db:"due_date"`
	TenantID      string             `db:"tenant_id"`
	PropertyTitle string             `db:"property_title"`
}

// ListDueBetween returns pending payments of active contracts due in [from, to].
func (s *PaymentStore) ListDueBetween(ctx context.Context, from, to models.Date) ([]DuePayment, error) {
	due := []DuePayment{}
	err := s.db.SelectContext(ctx, &due, `
		SELECT pay.id AS payment_id, pay.contract_id, pay.amount, pay.type, pay.due_date, c.tenant_id, p.title AS property_title
		FROM payments pay
		JOIN contracts c ON c.id = pay.contract_id
		JOIN properties p ON p.id = c.property_id
		WHERE pay.status = 'pending' AND c.status = 'active' AND pay.due_date BETWEEN $1 AND $2
		ORDER BY pay.due_date, pay.id
	`, from, to)
	return due, err
}
