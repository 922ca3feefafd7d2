package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"estate/internal/apperr"
	"estate/internal/auth"
	"estate/internal/db"
	"estate/internal/models"
	"estate/internal/policy"
	"estate/internal/store"
	"estate/internal/validator"
)

var (
	ErrEmailTaken         = apperr.Conflict("email already registered")
	ErrInvalidCredentials = apperr.Unauthorized("incorrect email or password")
	ErrInactiveUser       = apperr.Forbidden("inactive user")
	ErrInvalidToken       = apperr.Unauthorized("could not validate credentials")
)

type UserService struct {
	core     Core
	users    UserStore
	secret   string
	tokenTTL time.Duration
}

func NewUserService(core Core, users UserStore, secret string, tokenTTL time.Duration) *UserService {
	return &UserService{core: core, users: users, secret: secret, tokenTTL: tokenTTL}
}

type RegisterInput struct {
	Email    string       `json:"email"`
	Password string       `json:"password"`
	FullName *string      `json:"full_name"`
	Phone    *string      `json:"phone"`
	Role     *models.Role `json:"role"`
}

// ProfilePatch is what users may change about themselves.
type ProfilePatch struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

// UserPatch is the admin view of a user.
type UserPatch struct {
	Email    *string      `json:"email"`
	FullName *string      `json:"full_name"`
	Phone    *string      `json:"phone"`
	Role     *models.Role `json:"role"`
	IsActive *bool        `json:"is_active"`
}

// Register creates an owner or tenant account. The first account ever
// created becomes the admin.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	role := models.RoleTenant
	if input.Role != nil {
		role = *input.Role
	}
	if role != models.RoleOwner && role != models.RoleTenant {
		return models.User{}, apperr.Validation("role must be owner or tenant")
	}
	return s.create(ctx, policy.Actor{}, input, role, true)
}

// Create is the admin path and may assign any role.
func (s *UserService) Create(ctx context.Context, actor policy.Actor, input RegisterInput) (models.User, error) {
	if err := policy.Require(actor, policy.UserManage); err != nil {
		return models.User{}, err
	}
	role := models.RoleTenant
	if input.Role != nil {
		role = *input.Role
	}
	if !role.Valid() {
		return models.User{}, apperr.Validationf("invalid role %q", role)
	}
	return s.create(ctx, actor, input, role, false)
}

func (s *UserService) create(ctx context.Context, actor policy.Actor, input RegisterInput, role models.Role, bootstrap bool) (models.User, error) {
	user := models.User{
		ID:       uuid.NewString(),
		Email:    normalizeEmail(input.Email),
		FullName: input.FullName,
		Phone:    input.Phone,
		Role:     role,
		IsActive: true,
	}
	if err := validateUser(user); err != nil {
		return models.User{}, err
	}
	if err := validator.ValidatePassword(input.Password); err != nil {
		return models.User{}, apperr.Invalid(err)
	}
	if err := s.ensureEmailFree(ctx, user.Email, ""); err != nil {
		return models.User{}, err
	}
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = hash
	err = s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		user.Role = role
		if bootstrap {
			hasAdmin, err := s.users.HasAnyAdmin(ctx, tx)
			if err != nil {
				return err
			}
			if !hasAdmin {
				user.Role = models.RoleAdmin
			}
		}
		if err := s.users.Create(ctx, tx, user); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		if actor.UserID == "" {
			actor = policy.Actor{UserID: user.ID, Role: user.Role}
		}
		return s.core.audit(ctx, tx, actor, "user.create", "user", user.ID, map[string]any{
			"email": user.Email,
			"role":  user.Role,
		})
	})
	if err != nil {
		return models.User{}, err
	}
	if user.Role == models.RoleAdmin && bootstrap {
		s.core.logger().Info("first user promoted to admin", zap.String("user_id", user.ID))
	}
	return s.users.GetByID(ctx, user.ID)
}

// Session is a signed-in user together with the bearer token issued for them.
type Session struct {
	models.User
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login checks the password and issues a bearer token.
func (s *UserService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.core.Metrics.ObserveLogin(false)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		s.core.Metrics.ObserveLogin(false)
		return Session{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.core.Metrics.ObserveLogin(false)
		return Session{}, ErrInactiveUser
	}
	token, err := auth.GenerateToken(s.secret, user.ID, s.tokenTTL)
	if err != nil {
		return Session{}, err
	}
	s.core.Metrics.ObserveLogin(true)
	return Session{User: user, AccessToken: token, TokenType: "bearer"}, nil
}

// Authenticate resolves a bearer token to the current user record, so a
// role change or deactivation takes effect on the next request.
func (s *UserService) Authenticate(ctx context.Context, token string) (models.User, error) {
	claims, err := auth.ParseToken(s.secret, token)
	if err != nil {
		return models.User{}, ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, err
	}
	if !user.IsActive {
		return models.User{}, ErrInactiveUser
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, actor policy.Actor, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, notFound(err, "user")
	}
	if err := policy.CanViewUser(actor, userID); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, actor policy.Actor, filter store.UserFilter) ([]models.User, error) {
	if err := policy.Require(actor, policy.UserManage); err != nil {
		return nil, err
	}
	return s.users.List(ctx, filter)
}

func (s *UserService) UpdateProfile(ctx context.Context, actor policy.Actor, patch ProfilePatch) (models.User, error) {
	var hash *string
	if patch.Password != nil {
		if err := validator.ValidatePassword(*patch.Password); err != nil {
			return models.User{}, apperr.Invalid(err)
		}
		h, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return models.User{}, err
		}
		hash = &h
	}
	return s.update(ctx, actor, actor.UserID, "user.update_profile", func(u *models.User) {
		applyUserFields(u, patch.Email, patch.FullName, patch.Phone)
		if hash != nil {
			u.PasswordHash = *hash
		}
	})
}

// Patch lets an admin change another account, including role and active flag.
func (s *UserService) Patch(ctx context.Context, actor policy.Actor, userID string, patch UserPatch) (models.User, error) {
	if err := policy.Require(actor, policy.UserManage); err != nil {
		return models.User{}, err
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return models.User{}, apperr.Validationf("invalid role %q", *patch.Role)
	}
	if userID == actor.UserID && ((patch.Role != nil && *patch.Role != models.RoleAdmin) || (patch.IsActive != nil && !*patch.IsActive)) {
		return models.User{}, apperr.Conflict("admins cannot demote or deactivate themselves")
	}
	return s.update(ctx, actor, userID, "user.update", func(u *models.User) {
		applyUserFields(u, patch.Email, patch.FullName, patch.Phone)
		if patch.Role != nil {
			u.Role = *patch.Role
		}
		if patch.IsActive != nil {
			u.IsActive = *patch.IsActive
		}
	})
}

func (s *UserService) update(ctx context.Context, actor policy.Actor, userID, action string, apply func(*models.User)) (models.User, error) {
	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, notFound(err, "user")
	}
	updated := current
	apply(&updated)
	if err := validateUser(updated); err != nil {
		return models.User{}, err
	}
	if updated.Email != current.Email {
		if err := s.ensureEmailFree(ctx, updated.Email, userID); err != nil {
			return models.User{}, err
		}
	}
	err = s.core.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.Update(ctx, tx, updated); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return notFound(err, "user")
		}
		return s.core.audit(ctx, tx, actor, action, "user", userID, map[string]any{
			"email":     updated.Email,
			"role":      updated.Role,
			"is_active": updated.IsActive,
		})
	})
	if err != nil {
		return models.User{}, err
	}
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, exceptID string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if existing.ID != exceptID {
			return ErrEmailTaken
		}
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func applyUserFields(u *models.User, email, fullName, phone *string) {
	if email != nil {
		u.Email = normalizeEmail(*email)
	}
	if fullName != nil {
		name := strings.TrimSpace(*fullName)
		u.FullName = &name
	}
	if phone != nil {
		u.Phone = phone
	}
}

func validateUser(u models.User) error {
	if err := validator.ValidateEmail(u.Email); err != nil {
		return apperr.Invalid(err)
	}
	if u.FullName != nil {
		if err := validator.ValidateFullName(*u.FullName); err != nil {
			return apperr.Invalid(err)
		}
	}
	if u.Phone != nil {
		if err := validator.ValidatePhone(*u.Phone); err != nil {
			return apperr.Invalid(err)
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
