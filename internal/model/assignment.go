package model

import "time"

// Assignment sources.
const (
	SourceAuction    = "auction"
	SourceRecurrence = "recurrence"
)

// Assignment is one dated obligation: a chore due on a day, optionally bound
// to a member. UserID is nil for unassigned recurring chores.
type Assignment struct {
	ID        int64     `json:"id"`
	ChoreID   int64     `json:"chore_id"`
	UserID    *int64    `json:"user_id"`
	AuctionID *int64    `json:"auction_id"`
	DueDate   time.Time `json:"due_date"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}
