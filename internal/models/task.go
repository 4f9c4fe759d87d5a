package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task is a "recado": a short note owned by exactly one user.
type Task struct {
	ID          string    `gorm:"type:varchar(36);primarykey" json:"id"`
	Description string    `gorm:"type:varchar(255);not null" json:"description"`
	Detail      string    `gorm:"type:text;not null" json:"detail"`
	UserID      string    `gorm:"type:varchar(36);index;not null" json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
