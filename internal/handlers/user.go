package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/recados-api/internal/response"
	"github.com/yukikurage/recados-api/internal/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

type createUserRequest struct {
	Name            string `json:"name" binding:"required,max=100"`
	Email           string `json:"email" binding:"required,max=255"`
	Password        string `json:"password" binding:"required,min=5"`
	ConfirmPassword string `json:"confirmPassword" binding:"eqfield=Password"`
}

type updateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=100"`
	Email    *string `json:"email" binding:"omitempty,max=255"`
	Password *string `json:"password" binding:"omitempty,min=5"`
}

// CreateUser registers a new user
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	r, err := h.userService.Create(c.Request.Context(), services.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	respond(c, r, err)
}

// ListUsers returns every user
func (h *UserHandler) ListUsers(c *gin.Context) {
	r, err := h.userService.ListAll(c.Request.Context())
	respond(c, r, err)
}

// GetUser returns a user by id
func (h *UserHandler) GetUser(c *gin.Context) {
	r, err := h.userService.GetByID(c.Request.Context(), c.Param("id"))
	respond(c, r, err)
}

// UpdateUser changes the provided fields of a user
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := bindOptional(c, &req); err != nil {
		response.BindError(c, err)
		return
	}

	r, err := h.userService.Update(c.Request.Context(), c.Param("id"), services.UpdateUserInput{
		Name:     optional(req.Name),
		Email:    optional(req.Email),
		Password: optional(req.Password),
	})
	respond(c, r, err)
}

// DeleteUser removes a user and its tasks
func (h *UserHandler) DeleteUser(c *gin.Context) {
	r, err := h.userService.Delete(c.Request.Context(), c.Param("id"))
	respond(c, r, err)
}
