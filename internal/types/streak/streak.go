package streak

import (
	"time"

	"github.com/google/uuid"
)

type Streak struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	UserID              uuid.UUID  `json:"user_id" db:"user_id"`
	CurrentStreak       int        `json:"current_streak" db:"current_streak"`
	LongestStreak       int        `json:"longest_streak" db:"longest_streak"`
	LastActionDate      *time.Time `json:"last_action_date" db:"last_action_date"`
	TotalGoalsCompleted int        `json:"total_goals_completed" db:"total_goals_completed"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}
