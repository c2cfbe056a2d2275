package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/choreauction/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var assignedTo sql.NullInt64
	var interval sql.NullInt64
	var endDate, lastGenerated sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.FamilyID, &c.Title, &c.Description, &c.Points, &c.MinAge,
		&c.Auction, &assignedTo, &c.Recurring, &c.RecurrenceType, &interval,
		&c.RecurrenceDays, &endDate, &lastGenerated, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		c.AssignedTo = &assignedTo.Int64
	}
	if interval.Valid {
		n := int(interval.Int64)
		c.RecurrenceInterval = &n
	}
	if endDate.Valid {
		c.RecurrenceEndDate = &endDate.Time
	}
	if lastGenerated.Valid {
		c.LastGenerated = &lastGenerated.Time
	}
	return &c, nil
}

const choreCols = `id, family_id, title, description, points, min_age, auction, assigned_to, recurring, recurrence_type, recurrence_interval, recurrence_days, recurrence_end_date, last_generated, created_at, updated_at`

func (s *ChoreStore) Create(c model.Chore) (*model.Chore, error) {
	var assignedTo sql.NullInt64
	if c.AssignedTo != nil {
		assignedTo = sql.NullInt64{Int64: *c.AssignedTo, Valid: true}
	}
	var interval sql.NullInt64
	if c.RecurrenceInterval != nil {
		interval = sql.NullInt64{Int64: int64(*c.RecurrenceInterval), Valid: true}
	}
	var endDate sql.NullTime
	if c.RecurrenceEndDate != nil {
		endDate = sql.NullTime{Time: *c.RecurrenceEndDate, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO chores (family_id, title, description, points, min_age, auction, assigned_to, recurring, recurrence_type, recurrence_interval, recurrence_days, recurrence_end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.FamilyID, c.Title, c.Description, c.Points, c.MinAge, c.Auction,
		assignedTo, c.Recurring, c.RecurrenceType, interval, c.RecurrenceDays, endDate,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// GetByIDTx reads a chore inside the caller's transaction.
func (s *ChoreStore) GetByIDTx(tx *sql.Tx, id int64) (*model.Chore, error) {
	row := tx.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// ListAuctionable returns the chores that go up for auction each week.
func (s *ChoreStore) ListAuctionable(familyID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE family_id = ? AND auction = 1 ORDER BY id ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list auctionable chores: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

// ListRecurring returns recurring chores; choreID narrows to a single chore
// when non-nil.
func (s *ChoreStore) ListRecurring(choreID *int64) ([]model.Chore, error) {
	query := `SELECT ` + choreCols + ` FROM chores WHERE recurring = 1`
	args := []any{}
	if choreID != nil {
		query += ` AND id = ?`
		args = append(args, *choreID)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring chores: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

func collectChores(rows *sql.Rows) ([]model.Chore, error) {
	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// AdvanceLastGenerated moves last_generated forward to the given date. It
// never moves backward: a regeneration over an older window leaves it alone.
func (s *ChoreStore) AdvanceLastGenerated(id int64, date time.Time) error {
	_, err := s.db.Exec(
		`UPDATE chores SET last_generated = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND (last_generated IS NULL OR last_generated < ?)`,
		date, id, date,
	)
	if err != nil {
		return fmt.Errorf("advance last_generated: %w", err)
	}
	return nil
}
