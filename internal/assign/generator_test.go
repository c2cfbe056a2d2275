package assign

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/choreauction/internal/database"
	"github.com/dukerupert/choreauction/internal/model"
	"github.com/dukerupert/choreauction/internal/store"
)

type generatorFixture struct {
	generator *Generator
	chores    *store.ChoreStore
}

func setupGenerator(t *testing.T) *generatorFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	chores := store.NewChoreStore(db)
	assignments := store.NewAssignmentStore(db)
	return &generatorFixture{
		generator: NewGenerator(chores, assignments, slog.Default()),
		chores:    chores,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (f *generatorFixture) addDailyChore(t *testing.T, title string) *model.Chore {
	t.Helper()
	c, err := f.chores.Create(model.Chore{
		FamilyID:       1,
		Title:          title,
		Points:         10,
		Recurring:      true,
		RecurrenceType: model.RecurrenceDaily,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c
}

func TestGenerateDaily(t *testing.T) {
	f := setupGenerator(t)
	c := f.addDailyChore(t, "Feed cat")

	result, err := f.generator.Generate(day(2026, 1, 5), day(2026, 1, 8), nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.TotalGenerated != 3 {
		t.Fatalf("generated = %d, want 3", result.TotalGenerated)
	}
	for _, a := range result.Generated {
		if a.Source != model.SourceRecurrence {
			t.Errorf("source = %q, want recurrence", a.Source)
		}
		if a.ChoreID != c.ID {
			t.Errorf("chore = %d, want %d", a.ChoreID, c.ID)
		}
	}

	// last_generated advances to the final occurrence.
	updated, _ := f.chores.GetByID(c.ID)
	if updated.LastGenerated == nil || !updated.LastGenerated.Equal(day(2026, 1, 8)) {
		t.Errorf("last_generated = %v, want 2026-01-08", updated.LastGenerated)
	}
}

func TestGenerateOverlappingWindowDoesNotDuplicate(t *testing.T) {
	f := setupGenerator(t)
	f.addDailyChore(t, "Feed cat")

	first, err := f.generator.Generate(day(2026, 1, 5), day(2026, 1, 8), nil)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.TotalGenerated != 3 {
		t.Fatalf("first run = %d, want 3", first.TotalGenerated)
	}

	second, err := f.generator.Generate(day(2026, 1, 5), day(2026, 1, 10), nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.TotalGenerated != 2 {
		t.Errorf("second run = %d, want only the 2 new dates", second.TotalGenerated)
	}
}

func TestGenerateSingleChoreFilter(t *testing.T) {
	f := setupGenerator(t)
	c1 := f.addDailyChore(t, "Feed cat")
	f.addDailyChore(t, "Water plants")

	result, err := f.generator.Generate(day(2026, 1, 5), day(2026, 1, 7), &c1.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.TotalGenerated != 2 {
		t.Fatalf("generated = %d, want 2", result.TotalGenerated)
	}
	for _, a := range result.Generated {
		if a.ChoreID != c1.ID {
			t.Errorf("assignment for chore %d leaked past the filter", a.ChoreID)
		}
	}
}

func TestGenerateSkipsMalformedRule(t *testing.T) {
	f := setupGenerator(t)
	f.addDailyChore(t, "Feed cat")
	if _, err := f.chores.Create(model.Chore{
		FamilyID:       1,
		Title:          "Broken",
		Points:         5,
		Recurring:      true,
		RecurrenceType: "fortnightly",
	}); err != nil {
		t.Fatalf("create chore: %v", err)
	}

	result, err := f.generator.Generate(day(2026, 1, 5), day(2026, 1, 7), nil)
	if err != nil {
		t.Fatalf("a malformed rule should be skipped, not abort the run: %v", err)
	}
	if result.TotalGenerated != 2 {
		t.Errorf("generated = %d, want 2 from the healthy chore", result.TotalGenerated)
	}
}

func TestGenerateRejectsInvertedWindow(t *testing.T) {
	f := setupGenerator(t)
	if _, err := f.generator.Generate(day(2026, 1, 10), day(2026, 1, 5), nil); err == nil {
		t.Error("expected error for end date before start date")
	}
}

func TestGenerateWeeklyOnNamedDays(t *testing.T) {
	f := setupGenerator(t)
	if _, err := f.chores.Create(model.Chore{
		FamilyID:       1,
		Title:          "Trash night",
		Points:         5,
		Recurring:      true,
		RecurrenceType: model.RecurrenceWeekly,
		RecurrenceDays: "monday,thursday",
	}); err != nil {
		t.Fatalf("create chore: %v", err)
	}

	result, err := f.generator.Generate(day(2026, 1, 1), day(2026, 1, 14), nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// Mondays 01-05, 01-12 and Thursdays 01-08 (01-01 is the cursor seed).
	if result.TotalGenerated != 3 {
		t.Errorf("generated = %d, want 3", result.TotalGenerated)
	}
}
