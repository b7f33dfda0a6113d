package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/harlowe-labs/scenthq-backend/pkg/config"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
	pkgerrors "github.com/harlowe-labs/scenthq-backend/pkg/errors"
	"github.com/harlowe-labs/scenthq-backend/pkg/security"
)

// ServiceParams groups dependencies for the user directory.
type ServiceParams struct {
	Repo     *Repository
	Password config.PasswordConfig
}

// Service is the organization-scoped user directory.
type Service struct {
	repo     *Repository
	password config.PasswordConfig
}

// NewService builds a user directory service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo, password: params.Password}, nil
}

// RegisterInput captures a new directory entry.
type RegisterInput struct {
	OrgID     uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      enums.UserRole
}

// Register creates a user with a hashed credential.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if input.OrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	if input.Role != "" && !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email already registered")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.repo.Create(ctx, CreateUserDTO{
		OrgID:        input.OrgID,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         input.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return FromModel(user), nil
}

// FindByEmail returns the directory entry for an email, nil when absent.
func (s *Service) FindByEmail(ctx context.Context, email string) (*UserDTO, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	return FromModel(user), nil
}

// FindByID returns the directory entry for a user id, nil when absent.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	return FromModel(user), nil
}

// UpdateRole promotes or demotes a user. Used when an organization's paid tier
// requires an elevated payer role.
func (s *Service) UpdateRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) error {
	if !role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if user == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if user.Role == role {
		return nil
	}
	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	return nil
}
