package dto

import (
	"time"

	"github.com/yukikurage/recados-api/internal/models"
)

// TaskDTO represents a task in API responses and cache snapshots
type TaskDTO struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Detail      string    `json:"detail"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SuggestedTaskDTO is a task proposed by the suggestion service, not yet persisted
type SuggestedTaskDTO struct {
	Description string `json:"description"`
	Detail      string `json:"detail"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:          task.ID,
		Description: task.Description,
		Detail:      task.Detail,
		UserID:      task.UserID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// ToTaskDTOs converts a slice of tasks, never returning nil
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToTaskDTO(t))
	}
	return out
}
