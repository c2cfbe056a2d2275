package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/choreauction/internal/model"
)

type AuctionStore struct {
	db *sql.DB
}

func NewAuctionStore(db *sql.DB) *AuctionStore {
	return &AuctionStore{db: db}
}

func scanAuction(scanner interface{ Scan(...any) error }) (*model.Auction, error) {
	var a model.Auction
	var winnerID sql.NullInt64
	var finalPoints sql.NullInt64

	err := scanner.Scan(
		&a.ID, &a.ChoreID, &a.FamilyID, &a.WeekStart, &a.StartPoints,
		&a.Status, &winnerID, &finalPoints, &a.EndTime, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if winnerID.Valid {
		a.WinnerID = &winnerID.Int64
	}
	if finalPoints.Valid {
		n := int(finalPoints.Int64)
		a.FinalPoints = &n
	}
	return &a, nil
}

const auctionCols = `id, chore_id, family_id, week_start, start_points, status, winner_id, final_points, end_time, created_at`

func (s *AuctionStore) GetByID(id int64) (*model.Auction, error) {
	row := s.db.QueryRow(`SELECT `+auctionCols+` FROM auctions WHERE id = ?`, id)
	a, err := scanAuction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auction: %w", err)
	}
	return a, nil
}

// GetByIDTx reads an auction inside a transaction so lifecycle checks and the
// writes that depend on them see the same row.
func (s *AuctionStore) GetByIDTx(tx *sql.Tx, id int64) (*model.Auction, error) {
	row := tx.QueryRow(`SELECT `+auctionCols+` FROM auctions WHERE id = ?`, id)
	a, err := scanAuction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auction: %w", err)
	}
	return a, nil
}

// ListByWeek returns auctions anchored at weekStart, optionally filtered by
// status ("" = all).
func (s *AuctionStore) ListByWeek(weekStart time.Time, status string) ([]model.Auction, error) {
	query := `SELECT ` + auctionCols + ` FROM auctions WHERE week_start = ?`
	args := []any{weekStart}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []model.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan auction: %w", err)
		}
		auctions = append(auctions, *a)
	}
	return auctions, rows.Err()
}

// ExistsForChoreWeek reports whether any auction (active or completed)
// already covers (choreID, weekStart).
func (s *AuctionStore) ExistsForChoreWeek(choreID int64, weekStart time.Time) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM auctions WHERE chore_id = ? AND week_start = ?`,
		choreID, weekStart,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check auction exists: %w", err)
	}
	return n > 0, nil
}

func (s *AuctionStore) InsertTx(tx *sql.Tx, choreID, familyID int64, weekStart time.Time, startPoints int, endTime time.Time) (int64, error) {
	result, err := tx.Exec(
		`INSERT INTO auctions (chore_id, family_id, week_start, start_points, status, end_time)
		 VALUES (?, ?, ?, ?, 'active', ?)`,
		choreID, familyID, weekStart, startPoints, endTime,
	)
	if err != nil {
		return 0, fmt.Errorf("insert auction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// CompleteTx marks an active auction completed with its winner. It reports
// false when the auction was already completed, which makes repeated
// finalization sweeps no-ops.
func (s *AuctionStore) CompleteTx(tx *sql.Tx, id, winnerID int64, finalPoints int) (bool, error) {
	result, err := tx.Exec(
		`UPDATE auctions SET status = 'completed', winner_id = ?, final_points = ?
		 WHERE id = ? AND status = 'active'`,
		winnerID, finalPoints, id,
	)
	if err != nil {
		return false, fmt.Errorf("complete auction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ExtendTx raises the points on offer and pushes the end time out for an
// auction that expired with no bids. Only active auctions can be extended.
func (s *AuctionStore) ExtendTx(tx *sql.Tx, id int64, startPoints int, endTime time.Time) (bool, error) {
	result, err := tx.Exec(
		`UPDATE auctions SET start_points = ?, end_time = ?
		 WHERE id = ? AND status = 'active'`,
		startPoints, endTime, id,
	)
	if err != nil {
		return false, fmt.Errorf("extend auction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// SumStartPointsByWeek totals the points on offer across a week's auctions,
// the "theoretically available" pool the advisor warns against.
func (s *AuctionStore) SumStartPointsByWeek(familyID int64, weekStart time.Time) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(start_points), 0) FROM auctions WHERE family_id = ? AND week_start = ?`,
		familyID, weekStart,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum start points: %w", err)
	}
	return int(total.Int64), nil
}

// CountByWeek counts a week's auctions, optionally by status ("" = all).
func (s *AuctionStore) CountByWeek(familyID int64, weekStart time.Time, status string) (int, error) {
	query := `SELECT COUNT(*) FROM auctions WHERE family_id = ? AND week_start = ?`
	args := []any{familyID, weekStart}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count auctions: %w", err)
	}
	return n, nil
}
