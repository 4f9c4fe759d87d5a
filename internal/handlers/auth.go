package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/recados-api/internal/constants"
	"github.com/yukikurage/recados-api/internal/middleware"
	"github.com/yukikurage/recados-api/internal/response"
	"github.com/yukikurage/recados-api/internal/result"
	"github.com/yukikurage/recados-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a user and keeps the issued token in the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	r, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.ServerError(c, err)
		return
	}

	if login, ok := r.Data(); ok {
		session := sessions.Default(c)
		session.Set(constants.SessionKeyToken, login.Token)
		if err := session.Save(); err != nil {
			response.ServerError(c, fmt.Errorf("failed to save session: %w", err))
			return
		}
	}

	response.Done(c, r)
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		response.ServerError(c, fmt.Errorf("failed to logout: %w", err))
		return
	}

	response.Done(c, result.Ok(http.StatusOK, "Logged out", ""))
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	r, err := h.userService.GetByID(c.Request.Context(), middleware.GetUserID(c))
	respond(c, r, err)
}
