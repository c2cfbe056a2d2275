package assign

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/choreauction/internal/model"
	"github.com/dukerupert/choreauction/internal/recurrence"
	"github.com/dukerupert/choreauction/internal/store"
)

// Generator turns recurring chore definitions into dated assignment rows.
// Existence checks keyed on (chore, user-or-unassigned, date) make repeated
// runs over overlapping windows produce no duplicates.
type Generator struct {
	chores      *store.ChoreStore
	assignments *store.AssignmentStore
	logger      *slog.Logger
}

func NewGenerator(chores *store.ChoreStore, assignments *store.AssignmentStore, logger *slog.Logger) *Generator {
	return &Generator{chores: chores, assignments: assignments, logger: logger}
}

type GenerateResult struct {
	TotalGenerated int                `json:"total_generated"`
	Generated      []model.Assignment `json:"generated"`
}

// Generate expands recurring chores into assignments due within
// [startDate, endDate]. choreID narrows to one chore when non-nil. Chores
// with malformed recurrence rules are logged and skipped; they never abort
// the run. After each chore its last_generated marker advances to the latest
// occurrence so the next run picks up where this one stopped.
func (g *Generator) Generate(startDate, endDate time.Time, choreID *int64) (*GenerateResult, error) {
	startDate = recurrence.StartOfDay(startDate)
	endDate = recurrence.StartOfDay(endDate)
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end date %s before start date %s",
			endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}

	chores, err := g.chores.ListRecurring(choreID)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{Generated: []model.Assignment{}}
	for _, chore := range chores {
		created, err := g.generateForChore(chore, startDate, endDate)
		if err != nil {
			g.logger.Warn("skipping chore with bad recurrence rule",
				"chore_id", chore.ID, "type", chore.RecurrenceType, "error", err)
			continue
		}
		result.Generated = append(result.Generated, created...)
	}

	result.TotalGenerated = len(result.Generated)
	g.logger.Info("recurring assignments generated",
		"start", startDate.Format("2006-01-02"),
		"end", endDate.Format("2006-01-02"),
		"count", result.TotalGenerated)
	return result, nil
}

func (g *Generator) generateForChore(chore model.Chore, startDate, endDate time.Time) ([]model.Assignment, error) {
	def := recurrence.Definition{
		Recurring:     chore.Recurring,
		Type:          chore.RecurrenceType,
		Interval:      chore.RecurrenceInterval,
		Days:          chore.RecurrenceDays,
		EndDate:       chore.RecurrenceEndDate,
		LastGenerated: chore.LastGenerated,
	}
	dates, err := recurrence.GenerateOccurrences(def, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, nil
	}

	var created []model.Assignment
	for _, date := range dates {
		exists, err := g.assignments.Exists(chore.ID, chore.AssignedTo, date)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		a, err := g.assignments.Create(model.Assignment{
			ChoreID: chore.ID,
			UserID:  chore.AssignedTo,
			DueDate: date,
			Source:  model.SourceRecurrence,
		})
		if err != nil {
			return created, err
		}
		created = append(created, *a)
	}

	if err := g.chores.AdvanceLastGenerated(chore.ID, dates[len(dates)-1]); err != nil {
		return created, err
	}
	return created, nil
}
