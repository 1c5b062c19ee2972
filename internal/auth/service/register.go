package service

import (
	"context"
	"errors"
	"regexp"

	"github.com/google/uuid"

	"libris/internal/auth/models"
	"libris/internal/auth/password"
	id "libris/pkg/domain"
	dErrors "libris/pkg/domain-errors"
	"libris/pkg/platform/audit"
	"libris/pkg/platform/sentinel"
	"libris/pkg/requestcontext"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// RegisterInput is the new-user request.
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Department string
	EmployeeID string
}

func (in RegisterInput) validate() error {
	if len(in.Username) < 3 || len(in.Username) > 50 {
		return dErrors.New(dErrors.CodeValidation, "username must be between 3 and 50 characters")
	}
	if !usernamePattern.MatchString(in.Username) {
		return dErrors.New(dErrors.CodeValidation, "username can only contain letters, numbers, and underscores")
	}
	if !emailPattern.MatchString(in.Email) {
		return dErrors.New(dErrors.CodeValidation, "please provide a valid email address")
	}
	if err := password.ValidatePolicy(in.Password); err != nil {
		return err
	}
	if len(in.FirstName) < 1 || len(in.FirstName) > 50 {
		return dErrors.New(dErrors.CodeValidation, "first name must be between 1 and 50 characters")
	}
	if len(in.LastName) < 1 || len(in.LastName) > 50 {
		return dErrors.New(dErrors.CodeValidation, "last name must be between 1 and 50 characters")
	}
	return nil
}

// Register creates a new user with role "user" after validating the input
// and hashing the password.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if _, err := s.users.FindActiveByUsername(ctx, in.Username); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "username already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check username availability")
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user := &models.User{
		ID:           id.UserID(uuid.New()),
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         "user",
		Department:   in.Department,
		EmployeeID:   in.EmployeeID,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.logAudit(ctx, audit.ActionRegister, user.ID, "users", user.ID.String(), nil)

	profile := user.Profile()
	return &profile, nil
}

// Profile returns the caller's own user record, sanitized.
func (s *Service) Profile(ctx context.Context, ident requestcontext.AuthIdentity) (*models.Profile, error) {
	user, err := s.users.FindActiveByID(ctx, ident.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	profile := user.Profile()
	return &profile, nil
}
