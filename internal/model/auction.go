package model

import "time"

// Auction status values. Completed is terminal: a completed auction is never
// reopened or re-extended.
const (
	AuctionActive    = "active"
	AuctionCompleted = "completed"
)

type Auction struct {
	ID          int64     `json:"id"`
	ChoreID     int64     `json:"chore_id"`
	FamilyID    int64     `json:"family_id"`
	WeekStart   time.Time `json:"week_start"`
	StartPoints int       `json:"start_points"`
	Status      string    `json:"status"`
	WinnerID    *int64    `json:"winner_id"`
	FinalPoints *int      `json:"final_points"`
	EndTime     time.Time `json:"end_time"`
	CreatedAt   time.Time `json:"created_at"`
}

type Bid struct {
	ID        int64     `json:"id"`
	AuctionID int64     `json:"auction_id"`
	UserID    int64     `json:"user_id"`
	BidPoints int       `json:"bid_points"`
	CreatedAt time.Time `json:"created_at"`
}
