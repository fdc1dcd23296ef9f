package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/supply-ledger/internal/core/domain"
	"github.com/rl1809/supply-ledger/internal/port"
)

type RegisterInput struct {
	Name                 string      `json:"name" validate:"required,max=255"`
	Email                string      `json:"email" validate:"required,email,max=255"`
	Password             string      `json:"password" validate:"required,min=8"`
	PasswordConfirmation string      `json:"password_confirmation" validate:"eqfield=Password"`
	UserType             domain.Role `json:"user_type" validate:"required,oneof=system_administrator warehouse_manager supplier delivery_driver"`
}

// UpdateUserInput lists the only fields an update may touch. Nil means unchanged.
type UpdateUserInput struct {
	Name                 *string      `json:"name" validate:"omitnil,min=1,max=255"`
	Email                *string      `json:"email" validate:"omitnil,email,max=255"`
	Password             *string      `json:"password" validate:"omitnil,min=8"`
	PasswordConfirmation *string      `json:"password_confirmation"`
	UserType             *domain.Role `json:"user_type" validate:"omitnil,oneof=system_administrator warehouse_manager supplier delivery_driver"`
}

type UserOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type UserDropdown struct {
	Suppliers       []UserOption `json:"suppliers"`
	DeliveryDrivers []UserOption `json:"delivery_drivers"`
}

type UserService struct {
	users      port.UserRepository
	logger     *zap.Logger
	bcryptCost int
}

func NewUserService(users port.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

func (s *UserService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func emailTaken() error {
	verr := domain.NewValidationError()
	verr.Add("email", "The email has already been taken.")
	return verr
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if err := check(in).OrNil(); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{Name: in.Name, Email: in.Email, PasswordHash: hash, Role: in.UserType}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, emailTaken()
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput) (*domain.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := check(in)
	if in.Password != nil && (in.PasswordConfirmation == nil || *in.PasswordConfirmation != *in.Password) {
		verr.Add("password", "The password confirmation does not match.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if in.Name != nil {
		u.Name = *in.Name
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.UserType != nil {
		u.Role = *in.UserType
	}
	if in.Password != nil {
		if u.PasswordHash, err = s.hash(*in.Password); err != nil {
			return nil, err
		}
	}

	if err := s.users.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, emailTaken()
		}
		return nil, err
	}
	s.logger.Info("user updated", zap.Int64("user_id", u.ID))
	return u, nil
}

// Delete removes the user together with every transaction they own.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id))
	return nil
}

func (s *UserService) Dropdown(ctx context.Context) (*UserDropdown, error) {
	suppliers, err := s.users.ListUsersByRole(ctx, domain.RoleSupplier)
	if err != nil {
		return nil, err
	}
	drivers, err := s.users.ListUsersByRole(ctx, domain.RoleDeliveryDriver)
	if err != nil {
		return nil, err
	}
	return &UserDropdown{Suppliers: options(suppliers), DeliveryDrivers: options(drivers)}, nil
}

func options(users []domain.User) []UserOption {
	out := make([]UserOption, 0, len(users))
	for _, u := range users {
		out = append(out, UserOption{ID: u.ID, Name: u.Name})
	}
	return out
}

// EnsureAdmin creates the bootstrap administrator unless email is empty or
// already registered. It reports whether a user was created.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if email == "" {
		return false, nil
	}
	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	_, err = s.Register(ctx, RegisterInput{
		Name:                 name,
		Email:                email,
		Password:             password,
		PasswordConfirmation: password,
		UserType:             domain.RoleSystemAdministrator,
	})
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	return true, nil
}
