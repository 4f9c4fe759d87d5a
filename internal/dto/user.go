package dto

import (
	"time"

	"github.com/yukikurage/recados-api/internal/models"
)

// UserDTO represents a user in API responses and cache snapshots
type UserDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LoginDTO is the payload returned by a successful login
type LoginDTO struct {
	Token string    `json:"token"`
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Tasks []TaskDTO `json:"tasks"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// ToUserDTOs converts a slice of users, never returning nil
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, ToUserDTO(u))
	}
	return out
}

// FindUser scans a cached collection for id
func FindUser(users []UserDTO, id string) (UserDTO, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return UserDTO{}, false
}
