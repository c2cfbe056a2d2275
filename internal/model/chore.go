package model

import "time"

// Recurrence types understood by the scheduler.
const (
	RecurrenceDaily    = "daily"
	RecurrenceWeekly   = "weekly"
	RecurrenceBiweekly = "biweekly"
	RecurrenceMonthly  = "monthly"
	RecurrenceCustom   = "custom"
)

type Chore struct {
	ID          int64  `json:"id"`
	FamilyID    int64  `json:"family_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	MinAge      int    `json:"min_age"`
	Auction     bool   `json:"auction"`
	AssignedTo  *int64 `json:"assigned_to"`

	Recurring          bool       `json:"recurring"`
	RecurrenceType     string     `json:"recurrence_type"`
	RecurrenceInterval *int       `json:"recurrence_interval"`
	RecurrenceDays     string     `json:"recurrence_days"` // comma-separated weekday names
	RecurrenceEndDate  *time.Time `json:"recurrence_end_date"`
	LastGenerated      *time.Time `json:"last_generated"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
