package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/yukikurage/recados-api/internal/cache"
	"github.com/yukikurage/recados-api/internal/constants"
	"github.com/yukikurage/recados-api/internal/dto"
	"github.com/yukikurage/recados-api/internal/metrics"
	"github.com/yukikurage/recados-api/internal/models"
	"github.com/yukikurage/recados-api/internal/repository"
	"github.com/yukikurage/recados-api/internal/result"
	"github.com/yukikurage/recados-api/internal/security"
)

// UserService handles user registration and the cache-aside user lookups.
type UserService struct {
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
	cache    cache.Store
	hasher   *security.PasswordHasher
	logger   *slog.Logger

	// refreshes tracks background rewrites of the users collection.
	refreshes sync.WaitGroup

	// generation counts invalidations. A collection read from the store is
	// only written back when no invalidation happened since the read began.
	generation atomic.Uint64
	writeMu    sync.Mutex
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo repository.UserRepository,
	taskRepo repository.TaskRepository,
	store cache.Store,
	hasher *security.PasswordHasher,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		taskRepo: taskRepo,
		cache:    store,
		hasher:   hasher,
		logger:   logger.With("component", "user_service"),
	}
}

// CreateUserInput represents the required information to register a user.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
}

// UpdateUserInput holds the optional fields of a user update. Nil fields are left unchanged.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
}

// GetByID serves a user from the cached collection when it is there and
// falls back to the store otherwise. A store hit schedules a rebuild of the
// cached collection.
func (s *UserService) GetByID(ctx context.Context, id string) (result.Result[dto.UserDTO], error) {
	cached, found, err := cache.GetJSON[[]dto.UserDTO](ctx, s.cache, constants.CacheKeyUsers)
	if err != nil {
		return result.Result[dto.UserDTO]{}, err
	}
	if found {
		if user, ok := dto.FindUser(cached, id); ok {
			return result.Ok(http.StatusOK, "User obtained (cache)", user), nil
		}
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result.NotFound[dto.UserDTO]("User"), nil
		}
		return result.Result[dto.UserDTO]{}, fmt.Errorf("failed to find user: %w", err)
	}

	s.refreshUsersAsync(ctx)

	return result.Ok(http.StatusOK, "User obtained", dto.ToUserDTO(*user)), nil
}

// ListAll returns every user, from cache when possible.
func (s *UserService) ListAll(ctx context.Context) (result.Result[[]dto.UserDTO], error) {
	cached, found, err := cache.GetJSON[[]dto.UserDTO](ctx, s.cache, constants.CacheKeyUsers)
	if err != nil {
		return result.Result[[]dto.UserDTO]{}, err
	}
	if found {
		return result.Ok(http.StatusOK, "Users listed (cache)", cached), nil
	}

	users, err := s.refreshUsers(ctx)
	if err != nil {
		return result.Result[[]dto.UserDTO]{}, err
	}
	return result.Ok(http.StatusOK, "Users listed", users), nil
}

// Create registers a new user. The email must not belong to anyone else.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (result.Result[dto.UserDTO], error) {
	taken, err := s.emailTaken(ctx, input.Email, "")
	if err != nil {
		return result.Result[dto.UserDTO]{}, err
	}
	if taken {
		return result.BadRequest[dto.UserDTO](result.MsgEmailAlreadyExists), nil
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return result.Result[dto.UserDTO]{}, err
	}

	user := &models.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: hashed,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return result.Result[dto.UserDTO]{}, err
	}

	if err := s.invalidate(ctx, constants.CacheKeyUsers); err != nil {
		return result.Result[dto.UserDTO]{}, err
	}

	s.logger.InfoContext(ctx, "user created", "user_id", user.ID)
	return result.Ok(http.StatusCreated, "User created", dto.ToUserDTO(*user)), nil
}

// Update applies the provided fields to an existing user.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (result.Result[dto.UserDTO], error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result.NotFound[dto.UserDTO]("User"), nil
		}
		return result.Result[dto.UserDTO]{}, fmt.Errorf("failed to find user: %w", err)
	}

	if input.Email != nil && *input.Email != user.Email {
		taken, err := s.emailTaken(ctx, *input.Email, user.ID)
		if err != nil {
			return result.Result[dto.UserDTO]{}, err
		}
		if taken {
			return result.BadRequest[dto.UserDTO](result.MsgEmailAlreadyExists), nil
		}
		user.Email = *input.Email
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Password != nil {
		hashed, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return result.Result[dto.UserDTO]{}, err
		}
		user.Password = hashed
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return result.Result[dto.UserDTO]{}, err
	}
	if err := s.invalidate(ctx, constants.CacheKeyUsers); err != nil {
		return result.Result[dto.UserDTO]{}, err
	}

	return result.Ok(http.StatusOK, "User updated", dto.ToUserDTO(*user)), nil
}

// Delete removes a user together with every task it owns.
func (s *UserService) Delete(ctx context.Context, id string) (result.Result[string], error) {
	tasks, err := s.taskRepo.ListByUser(ctx, id)
	if err != nil {
		return result.Result[string]{}, err
	}
	if _, err := s.taskRepo.DeleteAllByUser(ctx, id); err != nil {
		return result.Result[string]{}, err
	}

	affected, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return result.Result[string]{}, err
	}
	if affected == 0 {
		return result.NotFound[string]("User"), nil
	}

	keys := make([]string, 0, len(tasks)+1)
	keys = append(keys, constants.CacheKeyUsers)
	for _, t := range tasks {
		keys = append(keys, constants.TaskCacheKey(t.ID))
	}
	if err := s.invalidate(ctx, keys...); err != nil {
		return result.Result[string]{}, err
	}

	s.logger.InfoContext(ctx, "user deleted", "user_id", id, "tasks", len(tasks))
	return result.Ok(http.StatusOK, "User deleted", ""), nil
}

// Wait blocks until background cache refreshes have finished.
func (s *UserService) Wait() {
	s.refreshes.Wait()
}

func (s *UserService) refreshUsers(ctx context.Context) ([]dto.UserDTO, error) {
	gen := s.generation.Load()

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := dto.ToUserDTOs(users)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.generation.Load() != gen {
		s.logger.DebugContext(ctx, "users collection changed during refresh, not caching")
		return views, nil
	}
	if err := cache.SetJSON(ctx, s.cache, constants.CacheKeyUsers, views); err != nil {
		return nil, err
	}
	return views, nil
}

func (s *UserService) refreshUsersAsync(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	s.refreshes.Add(1)
	go func() {
		defer s.refreshes.Done()

		if _, err := s.refreshUsers(ctx); err != nil {
			metrics.CacheRefreshesTotal.WithLabelValues("error").Inc()
			s.logger.ErrorContext(ctx, "failed to refresh users cache", "error", err)
			return
		}
		metrics.CacheRefreshesTotal.WithLabelValues("ok").Inc()
	}()
}

// emailTaken reports whether email belongs to a user other than exceptID.
func (s *UserService) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return existing.ID != exceptID, nil
}

func (s *UserService) invalidate(ctx context.Context, keys ...string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.generation.Add(1)
	if err := s.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	return nil
}
