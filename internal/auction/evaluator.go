package auction

import (
	"slices"
	"time"

	"github.com/dukerupert/choreauction/internal/model"
)

// Order sorts bids lowest first: ascending bid points, ties broken by
// earliest submission. The sort is stable, so equal (points, time) pairs keep
// their input order. The input slice is not modified.
func Order(bids []model.Bid) []model.Bid {
	sorted := slices.Clone(bids)
	slices.SortStableFunc(sorted, func(a, b model.Bid) int {
		if a.BidPoints != b.BidPoints {
			return a.BidPoints - b.BidPoints
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return sorted
}

// CurrentLowest returns the bid that would win if the auction closed now.
func CurrentLowest(bids []model.Bid) (model.Bid, bool) {
	if len(bids) == 0 {
		return model.Bid{}, false
	}
	return Order(bids)[0], true
}

// Eligible reports whether a member is old enough for the chore.
func Eligible(age, minAge int) bool {
	return age >= minAge
}

// WeekStart normalizes t to the Monday of its ISO week, at midnight in t's
// location. All week anchors in the engine pass through here.
func WeekStart(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday
	}
	monday := t.AddDate(0, 0, -offset)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
}
