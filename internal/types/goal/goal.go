package goal

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a goal can no longer change state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Goal struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	UserID           uuid.UUID  `json:"user_id" db:"user_id"`
	Title            string     `json:"title" db:"title"`
	Description      *string    `json:"description,omitempty" db:"description"`
	Category         string     `json:"category" db:"category"`
	Deadline         time.Time  `json:"deadline" db:"deadline"`
	AllocatedSeconds int64      `json:"allocated_seconds" db:"allocated_seconds"`
	Status           Status     `json:"status" db:"status"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

type Task struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	GoalID      uuid.UUID  `json:"goal_id" db:"goal_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	Position    int        `json:"position" db:"position"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

type GoalWithTasks struct {
	Goal
	Tasks []*Task `json:"tasks"`
}

type CreateGoalRequest struct {
	Title            string    `json:"title"`
	Description      *string   `json:"description"`
	Category         string    `json:"category"`
	Deadline         time.Time `json:"deadline"`
	AllocatedSeconds int64     `json:"allocated_seconds"`
}

type UpdateGoalRequest struct {
	Title            string     `json:"title"`
	Description      *string    `json:"description"`
	Category         string     `json:"category"`
	Deadline         *time.Time `json:"deadline"`
	AllocatedSeconds *int64     `json:"allocated_seconds"`
}

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Position    int     `json:"position"`
}

// CompletionResult tells the caller what a task completion triggered.
type CompletionResult struct {
	Task       *Task  `json:"task"`
	GoalStatus Status `json:"goal_status"`
	Credited   int64  `json:"credited_seconds"`
}

// CategoryAggregate backs the category breakdown chart.
type CategoryAggregate struct {
	Category     string `json:"category"`
	GoalCount    int    `json:"goal_count"`
	TotalSeconds int64  `json:"total_seconds"`
}
