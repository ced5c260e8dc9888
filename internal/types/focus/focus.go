package focus

import (
	"time"

	"github.com/google/uuid"
)

type SessionType string

const (
	SessionWork  SessionType = "work"
	SessionBreak SessionType = "break"
)

type Session struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	UserID          uuid.UUID   `json:"user_id" db:"user_id"`
	GoalID          *uuid.UUID  `json:"goal_id,omitempty" db:"goal_id"`
	DurationMinutes int         `json:"duration_minutes" db:"duration_minutes"`
	SessionType     SessionType `json:"session_type" db:"session_type"`
	CompletedAt     time.Time   `json:"completed_at" db:"completed_at"`
}

type RecordSessionRequest struct {
	GoalID          *string     `json:"goal_id"`
	DurationMinutes int         `json:"duration_minutes"`
	SessionType     SessionType `json:"session_type"`
}

// DailyStat backs the focus-minutes chart, one point per calendar day.
type DailyStat struct {
	Day     time.Time `json:"day"`
	Minutes int       `json:"minutes"`
}
