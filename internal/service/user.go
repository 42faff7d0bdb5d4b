package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/portalautarca/portal/internal/apperr"
	"github.com/portalautarca/portal/internal/model"
	"github.com/portalautarca/portal/internal/repository"
	"github.com/portalautarca/portal/internal/validation"
)

var ErrSelfDeactivation = apperr.Validation("you cannot deactivate your own account")

type CreateUserInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin parish"`
	ParishID *int64 `json:"parish_id"`
}

// UpdateUserInput is a partial patch. Nil fields are left unchanged and a
// ParishID of 0 detaches the user from their parish.
type UpdateUserInput struct {
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Password *string `json:"password"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin parish"`
	ParishID *int64  `json:"parish_id"`
	IsActive *bool   `json:"is_active"`
}

type UserService struct {
	userRepository   repository.UserRepository
	parishRepository repository.ParishRepository
	authService      *AuthService
}

func NewUserService(userRepository repository.UserRepository, parishRepository repository.ParishRepository, authService *AuthService) *UserService {
	return &UserService{
		userRepository:   userRepository,
		parishRepository: parishRepository,
		authService:      authService,
	}
}

func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	return s.userRepository.List(ctx)
}

func (s *UserService) ByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepository.ByID(ctx, id)
}

func (s *UserService) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.userRepository.ByEmail(ctx, validation.NormalizeEmail(email))
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	in.Email = validation.NormalizeEmail(in.Email)

	err := validation.Struct(in)
	if err != nil {
		return nil, err
	}

	err = validation.ValidatePassword(in.Password)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	parishID, err := s.resolveParish(ctx, in.ParishID)
	if err != nil {
		return nil, err
	}

	hash, err := s.authService.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		ParishID:     parishID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.userRepository.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id int64, in UpdateUserInput) (*model.User, error) {
	if in.Email != nil {
		email := validation.NormalizeEmail(*in.Email)
		in.Email = &email
	}

	err := validation.Struct(in)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepository.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.ParishID != nil {
		user.ParishID, err = s.resolveParish(ctx, in.ParishID)
		if err != nil {
			return nil, err
		}
	}
	if in.Password != nil {
		err = validation.ValidatePassword(*in.Password)
		if err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
		user.PasswordHash, err = s.authService.HashPassword(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	err = s.userRepository.Update(ctx, user)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Deactivate disables an account. Admins cannot lock themselves out.
func (s *UserService) Deactivate(ctx context.Context, actor *model.User, id int64) error {
	if actor != nil && actor.ID == id {
		return ErrSelfDeactivation
	}

	err := s.userRepository.Deactivate(ctx, id)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "user deactivated", "user_id", id)
	return nil
}

func (s *UserService) resolveParish(ctx context.Context, parishID *int64) (*int64, error) {
	if parishID == nil || *parishID == 0 {
		return nil, nil
	}

	_, err := s.parishRepository.ByID(ctx, *parishID)
	if errors.Is(err, repository.ErrParishNotFound) {
		return nil, apperr.Validation("parish %d does not exist", *parishID)
	}
	if err != nil {
		return nil, err
	}

	return parishID, nil
}
