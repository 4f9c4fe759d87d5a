package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/recados-api/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create inserts a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List returns every user ordered by creation time
	List(ctx context.Context) ([]models.User, error)

	// Update persists all columns of an existing user
	Update(ctx context.Context, user *models.User) error

	// Delete removes a user and reports how many rows were affected
	Delete(ctx context.Context, id string) (int64, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create inserts a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID within the tasks of userID
	FindByID(ctx context.Context, userID, id string) (*models.Task, error)

	// List returns every task
	List(ctx context.Context) ([]models.Task, error)

	// ListByUser returns the tasks owned by userID
	ListByUser(ctx context.Context, userID string) ([]models.Task, error)

	// Update persists all columns of an existing task
	Update(ctx context.Context, task *models.Task) error

	// Delete removes a task owned by userID and reports how many rows were affected
	Delete(ctx context.Context, userID, id string) (int64, error)

	// DeleteAllByUser removes every task owned by userID
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
