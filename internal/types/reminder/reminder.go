package reminder

import (
	"time"

	"github.com/google/uuid"
)

type Reminder struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description,omitempty" db:"description"`
	RemindAt    time.Time `json:"remind_at" db:"remind_at"`
	Completed   bool      `json:"completed" db:"completed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type CreateReminderRequest struct {
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	RemindAt    time.Time `json:"remind_at"`
}
