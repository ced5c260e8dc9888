package transaction

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeGoalReward Type = "goal_reward"
	TypeAdjustment Type = "adjustment"
)

// Transaction is an append-only ledger entry. The API never updates or
// deletes rows in this table.
type Transaction struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	GoalID        *uuid.UUID `json:"goal_id,omitempty" db:"goal_id"`
	AmountSeconds int64      `json:"amount_seconds" db:"amount_seconds"`
	Reason        string     `json:"reason" db:"reason"`
	Type          Type       `json:"type" db:"type"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

type ListResponse struct {
	Transactions []*Transaction `json:"transactions"`
	TotalCount   int            `json:"total_count"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
}

type WalletResponse struct {
	BalanceSeconds int64          `json:"balance_seconds"`
	Recent         []*Transaction `json:"recent"`
}
