package repository

import (
	"context"
	"fmt"

	"github.com/yukikurage/recados-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *GormTaskRepository) FindByID(ctx context.Context, userID, id string) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&task).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

func (r *GormTaskRepository) List(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *GormTaskRepository) ListByUser(ctx context.Context, userID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks of user: %w", err)
	}
	return tasks, nil
}

func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (r *GormTaskRepository) Delete(ctx context.Context, userID, id string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormTaskRepository) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete tasks of user: %w", res.Error)
	}
	return res.RowsAffected, nil
}
