package model

import "time"

type FamilyMember struct {
	ID         int64     `json:"id"`
	FamilyID   int64     `json:"family_id"`
	Name       string    `json:"name"`
	Age        int       `json:"age"`
	Points     int       `json:"points"`
	WeeklyGoal int       `json:"weekly_goal"`
	SortOrder  int       `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
