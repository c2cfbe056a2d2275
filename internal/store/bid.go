package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/choreauction/internal/model"
)

type BidStore struct {
	db *sql.DB
}

func NewBidStore(db *sql.DB) *BidStore {
	return &BidStore{db: db}
}

func scanBid(scanner interface{ Scan(...any) error }) (*model.Bid, error) {
	var b model.Bid
	err := scanner.Scan(&b.ID, &b.AuctionID, &b.UserID, &b.BidPoints, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const bidCols = `id, auction_id, user_id, bid_points, created_at`

// UpsertTx records a bid, replacing any prior bid by the same user on the
// same auction. The UNIQUE(auction_id, user_id) index backs the conflict
// clause, so a re-bid updates the amount and resets the submission time.
func (s *BidStore) UpsertTx(tx *sql.Tx, auctionID, userID int64, bidPoints int, at time.Time) error {
	_, err := tx.Exec(
		`INSERT INTO bids (auction_id, user_id, bid_points, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (auction_id, user_id)
		 DO UPDATE SET bid_points = excluded.bid_points, created_at = excluded.created_at`,
		auctionID, userID, bidPoints, at,
	)
	if err != nil {
		return fmt.Errorf("upsert bid: %w", err)
	}
	return nil
}

func (s *BidStore) ListByAuction(auctionID int64) ([]model.Bid, error) {
	rows, err := s.db.Query(
		`SELECT `+bidCols+` FROM bids WHERE auction_id = ? ORDER BY id ASC`,
		auctionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()
	return collectBids(rows)
}

func (s *BidStore) ListByAuctionTx(tx *sql.Tx, auctionID int64) ([]model.Bid, error) {
	rows, err := tx.Query(
		`SELECT `+bidCols+` FROM bids WHERE auction_id = ? ORDER BY id ASC`,
		auctionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()
	return collectBids(rows)
}

func collectBids(rows *sql.Rows) ([]model.Bid, error) {
	var bids []model.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, *b)
	}
	return bids, rows.Err()
}

// CountByUserWeek counts a user's standing bids on active auctions in the
// given week. The advisor reads this as how spread out the user already is.
func (s *BidStore) CountByUserWeek(userID int64, weekStart time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM bids b
		 JOIN auctions a ON a.id = b.auction_id
		 WHERE b.user_id = ? AND a.week_start = ? AND a.status = 'active'`,
		userID, weekStart,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count user bids: %w", err)
	}
	return n, nil
}
