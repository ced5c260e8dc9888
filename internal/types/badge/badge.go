package badge

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeStreak7  Type = "streak_7"
	TypeStreak30 Type = "streak_30"
	TypeGoals10  Type = "goals_10"
	TypeGoals50  Type = "goals_50"
	TypeGoals100 Type = "goals_100"
)

// Badge is a permanent achievement marker. A user holds at most one badge
// per type; the badges table carries a UNIQUE(user_id, badge_type) constraint
// so concurrent grants collapse to a single row.
type Badge struct {
	ID       uuid.UUID `json:"id" db:"id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Type     Type      `json:"type" db:"badge_type"`
	Name     string    `json:"name" db:"name"`
	EarnedAt time.Time `json:"earned_at" db:"earned_at"`
}
