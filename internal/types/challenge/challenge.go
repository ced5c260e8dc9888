package challenge

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Challenge is a shared catalog entry, not user-owned.
type Challenge struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	DurationDays int       `json:"duration_days" db:"duration_days"`
	TargetGoals  int       `json:"target_goals" db:"target_goals"`
	BadgeReward  string    `json:"badge_reward" db:"badge_reward"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// EndDate is the instant the challenge window closes for a given start.
func (c *Challenge) EndDate(startedAt time.Time) time.Time {
	return startedAt.AddDate(0, 0, c.DurationDays)
}

type UserChallenge struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	ChallengeID    uuid.UUID  `json:"challenge_id" db:"challenge_id"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	GoalsCompleted int        `json:"goals_completed" db:"goals_completed"`
	Status         Status     `json:"status" db:"status"`
}

type UserChallengeWithCatalog struct {
	UserChallenge
	Challenge *Challenge `json:"challenge"`
}

type JoinRequest struct {
	ChallengeID string `json:"challenge_id"`
}
