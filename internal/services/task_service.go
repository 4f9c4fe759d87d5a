package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/yukikurage/recados-api/internal/cache"
	"github.com/yukikurage/recados-api/internal/constants"
	"github.com/yukikurage/recados-api/internal/dto"
	"github.com/yukikurage/recados-api/internal/models"
	"github.com/yukikurage/recados-api/internal/repository"
	"github.com/yukikurage/recados-api/internal/result"
)

// TaskService handles task business logic. Every operation that needs an
// authenticated caller takes the caller's user id as actorID; an empty
// actorID means the request carried no valid token.
type TaskService struct {
	taskRepo    repository.TaskRepository
	userService *UserService
	cache       cache.Store
	logger      *slog.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userService *UserService, store cache.Store, logger *slog.Logger) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		userService: userService,
		cache:       store,
		logger:      logger.With("component", "task_service"),
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Description string
	Detail      string
}

// UpdateTaskInput represents input for updating a task. Nil fields are left unchanged.
type UpdateTaskInput struct {
	Description *string
	Detail      *string
}

// Create attaches a new task to userID.
func (s *TaskService) Create(ctx context.Context, actorID, userID string, input CreateTaskInput) (result.Result[dto.TaskDTO], error) {
	if actorID == "" {
		return result.Unauthorized[dto.TaskDTO](), nil
	}

	owner, err := s.userService.GetByID(ctx, userID)
	if err != nil {
		return result.Result[dto.TaskDTO]{}, err
	}
	if !owner.OK() {
		return result.Forward[dto.TaskDTO](owner), nil
	}

	task := &models.Task{
		Description: input.Description,
		Detail:      input.Detail,
		UserID:      userID,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return result.Result[dto.TaskDTO]{}, err
	}

	s.logger.InfoContext(ctx, "task created", "task_id", task.ID, "user_id", userID)
	return result.Ok(http.StatusCreated, "Task created", dto.ToTaskDTO(*task)), nil
}

// GetByID returns one of the caller's own tasks.
func (s *TaskService) GetByID(ctx context.Context, actorID, taskID string) (result.Result[dto.TaskDTO], error) {
	if actorID == "" {
		return result.Unauthorized[dto.TaskDTO](), nil
	}
	return s.find(ctx, actorID, taskID)
}

// Update applies the provided fields to a task owned by userID.
func (s *TaskService) Update(ctx context.Context, actorID, userID, taskID string, input UpdateTaskInput) (result.Result[dto.TaskDTO], error) {
	if actorID == "" {
		return result.Unauthorized[dto.TaskDTO](), nil
	}

	found, err := s.find(ctx, userID, taskID)
	if err != nil || !found.OK() {
		return found, err
	}
	current, _ := found.Data()

	task := &models.Task{
		ID:          current.ID,
		Description: current.Description,
		Detail:      current.Detail,
		UserID:      current.UserID,
		CreatedAt:   current.CreatedAt,
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Detail != nil {
		task.Detail = *input.Detail
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return result.Result[dto.TaskDTO]{}, err
	}
	if err := s.invalidate(ctx, taskID); err != nil {
		return result.Result[dto.TaskDTO]{}, err
	}

	return result.Ok(http.StatusOK, "Task updated", dto.ToTaskDTO(*task)), nil
}

// Delete removes a task owned by userID.
func (s *TaskService) Delete(ctx context.Context, actorID, userID, taskID string) (result.Result[string], error) {
	if actorID == "" {
		return result.Unauthorized[string](), nil
	}

	affected, err := s.taskRepo.Delete(ctx, userID, taskID)
	if err != nil {
		return result.Result[string]{}, err
	}
	if affected == 0 {
		return result.NotFound[string]("Task"), nil
	}
	if err := s.invalidate(ctx, taskID); err != nil {
		return result.Result[string]{}, err
	}

	s.logger.InfoContext(ctx, "task deleted", "task_id", taskID, "user_id", userID)
	return result.Ok(http.StatusOK, "Task deleted", ""), nil
}

// ListUserTasks returns the tasks owned by an existing user.
func (s *TaskService) ListUserTasks(ctx context.Context, userID string) (result.Result[[]dto.TaskDTO], error) {
	owner, err := s.userService.GetByID(ctx, userID)
	if err != nil {
		return result.Result[[]dto.TaskDTO]{}, err
	}
	if !owner.OK() {
		return result.Forward[[]dto.TaskDTO](owner), nil
	}

	tasks, err := s.taskRepo.ListByUser(ctx, userID)
	if err != nil {
		return result.Result[[]dto.TaskDTO]{}, err
	}
	return result.Ok(http.StatusOK, "Tasks listed", dto.ToTaskDTOs(tasks)), nil
}

// find reads a task snapshot from cache and falls back to the store. Both
// paths only return the task when it belongs to ownerID.
func (s *TaskService) find(ctx context.Context, ownerID, taskID string) (result.Result[dto.TaskDTO], error) {
	key := constants.TaskCacheKey(taskID)

	cached, found, err := cache.GetJSON[dto.TaskDTO](ctx, s.cache, key)
	if err != nil {
		return result.Result[dto.TaskDTO]{}, err
	}
	if found && cached.UserID == ownerID {
		return result.Ok(http.StatusOK, "Task obtained(cache)", cached), nil
	}

	task, err := s.taskRepo.FindByID(ctx, ownerID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return result.NotFound[dto.TaskDTO]("Task"), nil
		}
		return result.Result[dto.TaskDTO]{}, fmt.Errorf("failed to find task: %w", err)
	}

	view := dto.ToTaskDTO(*task)
	if err := cache.SetJSON(ctx, s.cache, key, view); err != nil {
		return result.Result[dto.TaskDTO]{}, err
	}
	return result.Ok(http.StatusOK, "Task obtained", view), nil
}

func (s *TaskService) invalidate(ctx context.Context, taskID string) error {
	if err := s.cache.Delete(ctx, constants.TaskCacheKey(taskID)); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	return nil
}
