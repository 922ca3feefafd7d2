package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"estate/internal/models"
)

const userColumns = `id, email, password_hash, full_name, phone, role, is_active, created_at, updated_at`

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

type UserFilter struct {
	Role     *models.Role
	IsActive *bool
	Page     Page
}

func (s *UserStore) Create(ctx context.Context, tx Execer, user models.User) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, phone, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Email, user.PasswordHash, user.FullName, user.Phone, user.Role, user.IsActive)
	return err
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return user, err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return user, err
}

func (s *UserStore) List(ctx context.Context, filter UserFilter) ([]models.User, error) {
	var conds conditions
	if filter.Role != nil {
		conds.add("role = ?", *filter.Role)
	}
	if filter.IsActive != nil {
		conds.add("is_active = ?", *filter.IsActive)
	}
	query, args := conds.build(`SELECT `+userColumns+` FROM users`, "created_at", filter.Page)
	users := []models.User{}
	if err := s.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserStore) Update(ctx context.Context, tx Execer, user models.User) error {
	return requireOne(tx.ExecContext(ctx, `
		UPDATE users
		SET email = $1, password_hash = $2, full_name = $3, phone = $4, role = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7
	`, user.Email, user.PasswordHash, user.FullName, user.Phone, user.Role, user.IsActive, user.ID))
}

// HasAnyAdmin runs inside the registration transaction so the first-user
// promotion is decided under serializable isolation.
func (s *UserStore) HasAnyAdmin(ctx context.Context, tx Getter) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE role = 'admin')`)
	return exists, err
}

// Contacts returns delivery details of the active users among userIDs.
func (s *UserStore) Contacts(ctx context.Context, userIDs []string) ([]models.Contact, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT id AS user_id, email, phone, full_name
		FROM users
		WHERE id IN (?) AND is_active
	`, userIDs)
	if err != nil {
		return nil, err
	}
	var contacts []models.Contact
	if err := s.db.SelectContext(ctx, &contacts, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return nil, err
	}
	return contacts, nil
}
