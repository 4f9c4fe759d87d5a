package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yukikurage/recados-api/internal/dto"
	"github.com/yukikurage/recados-api/internal/repository"
	"github.com/yukikurage/recados-api/internal/result"
	"github.com/yukikurage/recados-api/internal/security"
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
	hasher   *security.PasswordHasher
	tokens   *security.TokenManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repository.UserRepository,
	taskRepo repository.TaskRepository,
	hasher *security.PasswordHasher,
	tokens *security.TokenManager,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		taskRepo: taskRepo,
		hasher:   hasher,
		tokens:   tokens,
	}
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns a session token together with the
// user and its current tasks. The user is read from the store, never from cache.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (result.Result[dto.LoginDTO], error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result.NotFound[dto.LoginDTO]("User"), nil
		}
		return result.Result[dto.LoginDTO]{}, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Matches(user.Password, input.Password) {
		return result.Unauthorized[dto.LoginDTO](), nil
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return result.Result[dto.LoginDTO]{}, err
	}

	tasks, err := s.taskRepo.ListByUser(ctx, user.ID)
	if err != nil {
		return result.Result[dto.LoginDTO]{}, err
	}

	return result.Ok(http.StatusOK, "Authentication successfully done", dto.LoginDTO{
		Token: token,
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Tasks: dto.ToTaskDTOs(tasks),
	}), nil
}

// Verify returns the user id carried by a session token.
func (s *AuthService) Verify(token string) (string, error) {
	return s.tokens.Verify(token)
}
