package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/recados-api/internal/middleware"
	"github.com/yukikurage/recados-api/internal/response"
	"github.com/yukikurage/recados-api/internal/services"
)

type TaskHandler struct {
	taskService       *services.TaskService
	suggestionService *services.SuggestionService
}

func NewTaskHandler(taskService *services.TaskService, suggestionService *services.SuggestionService) *TaskHandler {
	return &TaskHandler{
		taskService:       taskService,
		suggestionService: suggestionService,
	}
}

type createTaskRequest struct {
	Detail      string `json:"detail" binding:"required,max=1000"`
	Description string `json:"description" binding:"required,max=255"`
}

type updateTaskRequest struct {
	Detail      *string `json:"detail" binding:"omitempty,max=1000"`
	Description *string `json:"description" binding:"omitempty,max=255"`
}

type suggestTasksRequest struct {
	Text string `json:"text" binding:"required,max=4000"`
}

// ListTasks returns the tasks of the user in the path
func (h *TaskHandler) ListTasks(c *gin.Context) {
	r, err := h.taskService.ListUserTasks(c.Request.Context(), c.Param("id"))
	respond(c, r, err)
}

// CreateTask adds a task to the user in the path
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	r, err := h.taskService.Create(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), services.CreateTaskInput{
		Description: req.Description,
		Detail:      req.Detail,
	})
	respond(c, r, err)
}

// GetTask returns one of the caller's tasks
func (h *TaskHandler) GetTask(c *gin.Context) {
	r, err := h.taskService.GetByID(c.Request.Context(), middleware.GetUserID(c), c.Param("taskId"))
	respond(c, r, err)
}

// UpdateTask changes the provided fields of a task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := bindOptional(c, &req); err != nil {
		response.BindError(c, err)
		return
	}

	r, err := h.taskService.Update(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), c.Param("taskId"), services.UpdateTaskInput{
		Description: optional(req.Description),
		Detail:      optional(req.Detail),
	})
	respond(c, r, err)
}

// DeleteTask removes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	r, err := h.taskService.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), c.Param("taskId"))
	respond(c, r, err)
}

// SuggestTasks proposes tasks extracted from free text
func (h *TaskHandler) SuggestTasks(c *gin.Context) {
	var req suggestTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	r, err := h.suggestionService.Suggest(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Text)
	if errors.Is(err, services.ErrSuggestionsUnavailable) {
		response.ServiceUnavailable(c, err.Error())
		return
	}
	respond(c, r, err)
}
