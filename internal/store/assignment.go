package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/choreauction/internal/model"
)

type AssignmentStore struct {
	db *sql.DB
}

func NewAssignmentStore(db *sql.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var userID, auctionID sql.NullInt64
	err := scanner.Scan(&a.ID, &a.ChoreID, &userID, &auctionID, &a.DueDate, &a.Source, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		a.UserID = &userID.Int64
	}
	if auctionID.Valid {
		a.AuctionID = &auctionID.Int64
	}
	return &a, nil
}

const assignmentCols = `id, chore_id, user_id, auction_id, due_date, source, created_at`

// CreateBatchTx inserts a set of assignments inside the caller's transaction.
// The auction finalizer uses it for the all-or-nothing seven-day batch.
func (s *AssignmentStore) CreateBatchTx(tx *sql.Tx, assignments []model.Assignment) error {
	for _, a := range assignments {
		var userID sql.NullInt64
		if a.UserID != nil {
			userID = sql.NullInt64{Int64: *a.UserID, Valid: true}
		}
		var auctionID sql.NullInt64
		if a.AuctionID != nil {
			auctionID = sql.NullInt64{Int64: *a.AuctionID, Valid: true}
		}
		_, err := tx.Exec(
			`INSERT INTO assignments (chore_id, user_id, auction_id, due_date, source) VALUES (?, ?, ?, ?, ?)`,
			a.ChoreID, userID, auctionID, a.DueDate, a.Source,
		)
		if err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}

func (s *AssignmentStore) Create(a model.Assignment) (*model.Assignment, error) {
	var userID sql.NullInt64
	if a.UserID != nil {
		userID = sql.NullInt64{Int64: *a.UserID, Valid: true}
	}
	var auctionID sql.NullInt64
	if a.AuctionID != nil {
		auctionID = sql.NullInt64{Int64: *a.AuctionID, Valid: true}
	}
	result, err := s.db.Exec(
		`INSERT INTO assignments (chore_id, user_id, auction_id, due_date, source) VALUES (?, ?, ?, ?, ?)`,
		a.ChoreID, userID, auctionID, a.DueDate, a.Source,
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AssignmentStore) GetByID(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

// Exists reports whether an assignment already covers (chore, user, date).
// A nil userID matches only unassigned rows. SQLite treats NULLs as distinct
// in unique indexes, so dedup happens here rather than in the schema.
func (s *AssignmentStore) Exists(choreID int64, userID *int64, dueDate time.Time) (bool, error) {
	var n int
	var err error
	if userID != nil {
		err = s.db.QueryRow(
			`SELECT COUNT(*) FROM assignments WHERE chore_id = ? AND user_id = ? AND due_date = ?`,
			choreID, *userID, dueDate,
		).Scan(&n)
	} else {
		err = s.db.QueryRow(
			`SELECT COUNT(*) FROM assignments WHERE chore_id = ? AND user_id IS NULL AND due_date = ?`,
			choreID, dueDate,
		).Scan(&n)
	}
	if err != nil {
		return false, fmt.Errorf("check assignment exists: %w", err)
	}
	return n > 0, nil
}

// ListByAuction returns the assignments created when an auction finalized.
func (s *AssignmentStore) ListByAuction(auctionID int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments WHERE auction_id = ? ORDER BY due_date ASC`,
		auctionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}
