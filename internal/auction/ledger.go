package auction

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/dukerupert/choreauction/internal/model"
	"github.com/dukerupert/choreauction/internal/store"
)

// Ledger owns the auction lifecycle: weekly creation, bid recording, and
// finalization. All multi-step writes run inside a single transaction so a
// retry never produces duplicate side effects.
type Ledger struct {
	db          *sql.DB
	auctions    *store.AuctionStore
	bids        *store.BidStore
	chores      *store.ChoreStore
	members     *store.FamilyMemberStore
	assignments *store.AssignmentStore
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time
}

func NewLedger(db *sql.DB, auctions *store.AuctionStore, bids *store.BidStore, chores *store.ChoreStore, members *store.FamilyMemberStore, assignments *store.AssignmentStore, cfg Config, logger *slog.Logger) *Ledger {
	return &Ledger{
		db:          db,
		auctions:    auctions,
		bids:        bids,
		chores:      chores,
		members:     members,
		assignments: assignments,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

type CreateWeekResult struct {
	AuctionsCreated int             `json:"auctions_created"`
	Auctions        []model.Auction `json:"auctions"`
}

// CreateAuctionsForWeek opens one auction per chore for the week anchored at
// weekStart. The whole call is rejected with ErrAlreadyExists if any chore
// already has an auction for that week, so a retried trigger can't create a
// partial batch.
func (l *Ledger) CreateAuctionsForWeek(weekStart time.Time, durationHours int, chores []model.Chore) (*CreateWeekResult, error) {
	weekStart = WeekStart(weekStart)
	if durationHours <= 0 {
		durationHours = l.cfg.DefaultDurationHours
	}

	for _, c := range chores {
		exists, err := l.auctions.ExistsForChoreWeek(c.ID, weekStart)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("chore %d, week %s: %w", c.ID, weekStart.Format("2006-01-02"), ErrAlreadyExists)
		}
	}

	endTime := l.now().Add(time.Duration(durationHours) * time.Hour)

	tx, err := l.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result := &CreateWeekResult{Auctions: []model.Auction{}}
	for _, c := range chores {
		id, err := l.auctions.InsertTx(tx, c.ID, c.FamilyID, weekStart, c.Points, endTime)
		if err != nil {
			return nil, err
		}
		result.Auctions = append(result.Auctions, model.Auction{
			ID:          id,
			ChoreID:     c.ID,
			FamilyID:    c.FamilyID,
			WeekStart:   weekStart,
			StartPoints: c.Points,
			Status:      model.AuctionActive,
			EndTime:     endTime,
		})
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	result.AuctionsCreated = len(result.Auctions)
	l.logger.Info("auctions created",
		"week_start", weekStart.Format("2006-01-02"),
		"count", result.AuctionsCreated,
		"end_time", endTime)
	return result, nil
}

type BidResult struct {
	Accepted    bool `json:"accepted"`
	IsLowestBid bool `json:"is_lowest_bid"`
}

// RecordBid validates and records a bid, replacing any earlier bid by the
// same user on the same auction. The read-validate-upsert sequence runs in
// one transaction and is retried with backoff when SQLite reports the
// database busy, so two concurrent bidders serialize instead of failing.
func (l *Ledger) RecordBid(ctx context.Context, auctionID, userID int64, bidPoints int) (*BidResult, error) {
	if bidPoints < 1 {
		return nil, ErrBidTooLow
	}

	now := l.now()
	var isLowest bool

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(25*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		lowest, err := l.recordBidOnce(auctionID, userID, bidPoints, now)
		if err != nil {
			if isBusy(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		isLowest = lowest
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("bid recorded",
		"auction_id", auctionID, "user_id", userID,
		"bid_points", bidPoints, "is_lowest", isLowest)
	return &BidResult{Accepted: true, IsLowestBid: isLowest}, nil
}

func (l *Ledger) recordBidOnce(auctionID, userID int64, bidPoints int, now time.Time) (bool, error) {
	tx, err := l.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	a, err := l.auctions.GetByIDTx(tx, auctionID)
	if err != nil {
		return false, err
	}
	if a == nil {
		return false, ErrAuctionNotFound
	}
	if a.Status != model.AuctionActive {
		return false, ErrAuctionNotActive
	}
	if now.After(a.EndTime) {
		return false, ErrAuctionExpired
	}

	member, err := l.members.GetByIDTx(tx, userID)
	if err != nil {
		return false, err
	}
	if member == nil {
		return false, ErrMemberNotFound
	}
	chore, err := l.chores.GetByIDTx(tx, a.ChoreID)
	if err != nil {
		return false, err
	}
	if chore != nil && !Eligible(member.Age, chore.MinAge) {
		return false, ErrBidderIneligible
	}

	if err := l.bids.UpsertTx(tx, auctionID, userID, bidPoints, now); err != nil {
		return false, err
	}

	bids, err := l.bids.ListByAuctionTx(tx, auctionID)
	if err != nil {
		return false, err
	}
	lowest, ok := CurrentLowest(bids)

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return ok && lowest.UserID == userID, nil
}

type Award struct {
	AuctionID   int64 `json:"auction_id"`
	ChoreID     int64 `json:"chore_id"`
	WinnerID    int64 `json:"winner_id"`
	FinalPoints int   `json:"final_points"`
}

type Increase struct {
	AuctionID      int64     `json:"auction_id"`
	ChoreID        int64     `json:"chore_id"`
	NewStartPoints int       `json:"new_start_points"`
	NewEndTime     time.Time `json:"new_end_time"`
}

type FinalizeResult struct {
	AssignedCount  int        `json:"assigned_count"`
	IncreasedCount int        `json:"increased_count"`
	Assignments    []Award    `json:"assignments"`
	Increases      []Increase `json:"increases"`
}

// FinalizeAuctions resolves every expired active auction in the week: the
// lowest bidder wins and gets the full seven-day assignment batch, or the
// auction is extended with raised points when nobody bid. Each auction is
// handled in its own transaction and completed auctions are skipped inside
// it, so the sweep is safe to repeat or run concurrently. Failures on
// individual auctions are collected rather than aborting the rest.
func (l *Ledger) FinalizeAuctions(weekStart time.Time, durationHours int) (*FinalizeResult, error) {
	weekStart = WeekStart(weekStart)
	if durationHours <= 0 {
		durationHours = l.cfg.DefaultDurationHours
	}
	now := l.now()

	active, err := l.auctions.ListByWeek(weekStart, model.AuctionActive)
	if err != nil {
		return nil, err
	}

	result := &FinalizeResult{Assignments: []Award{}, Increases: []Increase{}}
	var errs error
	for _, a := range active {
		if now.Before(a.EndTime) {
			continue
		}
		if err := l.finalizeOne(a, weekStart, durationHours, result); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("auction %d: %w", a.ID, err))
		}
	}

	l.logger.Info("auctions finalized",
		"week_start", weekStart.Format("2006-01-02"),
		"assigned", result.AssignedCount,
		"increased", result.IncreasedCount)
	return result, errs
}

func (l *Ledger) finalizeOne(a model.Auction, weekStart time.Time, durationHours int, result *FinalizeResult) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	bids, err := l.bids.ListByAuctionTx(tx, a.ID)
	if err != nil {
		return err
	}

	if len(bids) == 0 {
		newPoints := int(math.Ceil(float64(a.StartPoints) * l.cfg.NoBidIncreaseFactor))
		newEnd := a.EndTime.Add(time.Duration(durationHours) * time.Hour)
		extended, err := l.auctions.ExtendTx(tx, a.ID, newPoints, newEnd)
		if err != nil {
			return err
		}
		if !extended {
			// Completed by a concurrent sweep; nothing to do.
			return nil
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		result.IncreasedCount++
		result.Increases = append(result.Increases, Increase{
			AuctionID:      a.ID,
			ChoreID:        a.ChoreID,
			NewStartPoints: newPoints,
			NewEndTime:     newEnd,
		})
		l.logger.Info("auction extended",
			"auction_id", a.ID, "start_points", newPoints, "end_time", newEnd)
		return nil
	}

	winner := Order(bids)[0]
	completed, err := l.auctions.CompleteTx(tx, a.ID, winner.UserID, winner.BidPoints)
	if err != nil {
		return err
	}
	if !completed {
		// Already finalized; skipping keeps repeated sweeps idempotent.
		return nil
	}

	// Seven daily assignments for the ISO week, all bound to the winner,
	// committed atomically with the status change.
	batch := make([]model.Assignment, 0, 7)
	for i := 0; i < 7; i++ {
		batch = append(batch, model.Assignment{
			ChoreID:   a.ChoreID,
			UserID:    &winner.UserID,
			AuctionID: &a.ID,
			DueDate:   weekStart.AddDate(0, 0, i),
			Source:    model.SourceAuction,
		})
	}
	if err := l.assignments.CreateBatchTx(tx, batch); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	result.AssignedCount++
	result.Assignments = append(result.Assignments, Award{
		AuctionID:   a.ID,
		ChoreID:     a.ChoreID,
		WinnerID:    winner.UserID,
		FinalPoints: winner.BidPoints,
	})
	l.logger.Info("auction completed",
		"auction_id", a.ID, "winner_id", winner.UserID, "final_points", winner.BidPoints)
	return nil
}

// isBusy matches the SQLite contention errors worth retrying.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
