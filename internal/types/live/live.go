package live

import "time"

// EventKind names the table a change event originated from, mirroring the
// tables clients render live views of.
type EventKind string

const (
	KindGoal        EventKind = "goal"
	KindTask        EventKind = "task"
	KindTransaction EventKind = "transaction"
	KindBalance     EventKind = "balance"
	KindStreak      EventKind = "streak"
	KindBadge       EventKind = "badge"
	KindChallenge   EventKind = "challenge"
)

// Event is pushed to a user's websocket whenever one of their rows changes.
// Payload carries the fresh row so clients can invalidate their local cache
// without a refetch.
type Event struct {
	Kind      EventKind   `json:"kind"`
	Action    string      `json:"action"` // created | updated | deleted
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
