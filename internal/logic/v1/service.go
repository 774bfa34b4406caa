package v1

import (
	"context"

	"github.com/duynhne/user-web/internal/core/domain"
	"github.com/duynhne/user-web/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UserService wraps the users repository with logic-layer spans. Views talk
// to it through domain.UserRepository.
type UserService struct {
	repo domain.UserRepository
}

var _ domain.UserRepository = (*UserService)(nil)

// NewUserService creates a new user service
func NewUserService(repo domain.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// ListUsers retrieves every user
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "user.list", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		middleware.RecordError(ctx, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("user.count", len(users)))
	return users, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id int) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "user.get", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("user.id", id),
	))
	defer span.End()

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		middleware.RecordError(ctx, err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("user.found", true))
	return user, nil
}

// CreateUser posts a new user and returns the echoed record
func (s *UserService) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "user.create", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", req.Username),
	))
	defer span.End()

	user, err := s.repo.CreateUser(ctx, req)
	if err != nil {
		middleware.RecordError(ctx, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	span.AddEvent("user.created")
	return user, nil
}

// UpdateUser puts the full record
func (s *UserService) UpdateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "user.update", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("user.id", user.ID),
	))
	defer span.End()

	accepted, err := s.repo.UpdateUser(ctx, user)
	if err != nil {
		middleware.RecordError(ctx, err)
		return nil, err
	}

	span.AddEvent("user.updated")
	return accepted, nil
}

// DeleteUser removes a user
func (s *UserService) DeleteUser(ctx context.Context, id int) error {
	ctx, span := middleware.StartSpan(ctx, "user.delete", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("user.id", id),
	))
	defer span.End()

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		middleware.RecordError(ctx, err)
		return err
	}

	span.AddEvent("user.deleted")
	return nil
}
