package auction

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/choreauction/internal/database"
	"github.com/dukerupert/choreauction/internal/model"
	"github.com/dukerupert/choreauction/internal/store"
)

type ledgerFixture struct {
	ledger      *Ledger
	members     *store.FamilyMemberStore
	chores      *store.ChoreStore
	auctions    *store.AuctionStore
	bids        *store.BidStore
	assignments *store.AssignmentStore
}

func setupLedger(t *testing.T) *ledgerFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &ledgerFixture{
		members:     store.NewFamilyMemberStore(db),
		chores:      store.NewChoreStore(db),
		auctions:    store.NewAuctionStore(db),
		bids:        store.NewBidStore(db),
		assignments: store.NewAssignmentStore(db),
	}
	f.ledger = NewLedger(db, f.auctions, f.bids, f.chores, f.members, f.assignments,
		DefaultConfig(), slog.Default())
	return f
}

// Monday of an arbitrary test week.
var testWeek = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func (f *ledgerFixture) addMember(t *testing.T, name string, age int) *model.FamilyMember {
	t.Helper()
	m, err := f.members.Create(1, name, age, 0, 100)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return m
}

func (f *ledgerFixture) addChore(t *testing.T, title string, points, minAge int) *model.Chore {
	t.Helper()
	c, err := f.chores.Create(model.Chore{
		FamilyID: 1,
		Title:    title,
		Points:   points,
		MinAge:   minAge,
		Auction:  true,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c
}

func (f *ledgerFixture) openWeek(t *testing.T, chores ...model.Chore) *CreateWeekResult {
	t.Helper()
	result, err := f.ledger.CreateAuctionsForWeek(testWeek, 48, chores)
	if err != nil {
		t.Fatalf("create auctions: %v", err)
	}
	return result
}

func TestCreateAuctionsForWeek(t *testing.T) {
	f := setupLedger(t)
	f.ledger.now = func() time.Time { return testWeek }

	c1 := f.addChore(t, "Dishes", 30, 0)
	c2 := f.addChore(t, "Vacuum", 20, 8)

	result := f.openWeek(t, *c1, *c2)
	if result.AuctionsCreated != 2 {
		t.Fatalf("created = %d, want 2", result.AuctionsCreated)
	}

	active, err := f.auctions.ListByWeek(testWeek, model.AuctionActive)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active auctions = %d, want 2", len(active))
	}
	for _, a := range active {
		if a.Status != model.AuctionActive {
			t.Errorf("auction %d status = %q", a.ID, a.Status)
		}
	}
}

func TestCreateAuctionsForWeekRejectsDuplicates(t *testing.T) {
	f := setupLedger(t)
	f.ledger.now = func() time.Time { return testWeek }

	c := f.addChore(t, "Dishes", 30, 0)
	f.openWeek(t, *c)

	_, err := f.ledger.CreateAuctionsForWeek(testWeek, 48, []model.Chore{*c})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// The week still has exactly one auction for the chore.
	auctions, _ := f.auctions.ListByWeek(testWeek, "")
	if len(auctions) != 1 {
		t.Errorf("auctions = %d, want 1", len(auctions))
	}
}

func TestRecordBid(t *testing.T) {
	f := setupLedger(t)
	f.ledger.now = func() time.Time { return testWeek }

	m := f.addMember(t, "Alice", 12)
	c := f.addChore(t, "Dishes", 30, 0)
	week := f.openWeek(t, *c)
	auctionID := week.Auctions[0].ID

	result, err := f.ledger.RecordBid(context.Background(), auctionID, m.ID, 20)
	if err != nil {
		t.Fatalf("record bid: %v", err)
	}
	if !result.Accepted || !result.IsLowestBid {
		t.Errorf("result = %+v, want accepted lowest", result)
	}
}

func TestRecordBidReplacesEarlierBid(t *testing.T) {
	f := setupLedger(t)
	f.ledger.now = func() time.Time { return testWeek }

	m := f.addMember(t, "Alice", 12)
	c := f.addChore(t, "Dishes", 30, 0)
	week := f.openWeek(t, *c)
	auctionID := week.Auctions[0].ID

	ctx := context.Background()
	if _, err := f.ledger.RecordBid(ctx, auctionID, m.ID, 20); err != nil {
		t.Fatalf("first bid: %v", err)
	}
	if _, err := f.ledger.RecordBid(ctx, auctionID, m.ID, 15); err != nil {
		t.Fatalf("second bid: %v", err)
	}

	bids, err := f.bids.ListByAuction(auctionID)
	if err != nil {
		t.Fatalf("list bids: %v", err)
	}
	if len(bids) != 1 {
		t.Fatalf("bids = %d, want 1 row per user", len(bids))
	}
	if bids[0].BidPoints != 15 {
		t.Errorf("bid points = %d, want the replacement 15", bids[0].BidPoints)
	}
}

func TestRecordBidIsLowestTracking(t *testing.T) {
	f := setupLedger(t)
	f.ledger.now = func() time.Time { return testWeek }

	alice := f.addMember(t, "Alice", 12)
	bob := f.addMember(t, "Bob", 14)
	c := f.addChore(t, "Dishes", 30, 0)
	week := f.openWeek(t, *c)
	auctionID := week.Auctions[0].ID

	ctx := context.Background()
	first, _ := f.ledger.RecordBid(ctx, auctionID, alice.ID, 20)
	if !first.IsLowestBid {
		t.Error("only bid should be lowest")
	}

	higher, err := f.ledger.RecordBid(ctx, auctionID, bob.ID, 25)
	if err != nil {
		t.Fatalf("higher bid: %v", err)
	}
	if higher.IsLowestBid {
		t.Error("higher bid reported as lowest")
	}

	lower, err := f.ledger.RecordBid(ctx, auctionID, bob.ID, 10)
	if err != nil {
		t.Fatalf("lower bid: %v", err)
	}
	if !lower.IsLowestBid {
		t.Error("undercutting bid should be lowest")
	}
}

func TestRecordBidValidation(t *testing.T) {
	f := setupLedger(t)
	f.ledger.now = func() time.Time { return testWeek }

	m := f.addMember(t, "Alice", 12)
	kid := f.addMember(t, "Casey", 6)
	c := f.addChore(t, "Mow lawn", 40, 10)
	week := f.openWeek(t, *c)
	auctionID := week.Auctions[0].ID
	ctx := context.Background()

	if _, err := f.ledger.RecordBid(ctx, auctionID, m.ID, 0); !errors.Is(err, ErrBidTooLow) {
		t.Errorf("zero bid: got %v, want ErrBidTooLow", err)
	}
	if _, err := f.ledger.RecordBid(ctx, 999, m.ID, 10); !errors.Is(err, ErrAuctionNotFound) {
		t.Errorf("missing auction: got %v, want ErrAuctionNotFound", err)
	}
	if _, err := f.ledger.RecordBid(ctx, auctionID, 999, 10); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("missing member: got %v, want ErrMemberNotFound", err)
	}
	if _, err := f.ledger.RecordBid(ctx, auctionID, kid.ID, 10); !errors.Is(err, ErrBidderIneligible) {
		t.Errorf("underage bidder: got %v, want ErrBidderIneligible", err)
	}
}

func TestRecordBidExpired(t *testing.T) {
	f := setupLedger(t)
	f.ledger.now = func() time.Time { return testWeek }

	m := f.addMember(t, "Alice", 12)
	c := f.addChore(t, "Dishes", 30, 0)
	week := f.openWeek(t, *c)

	f.ledger.now = func() time.Time { return testWeek.Add(49 * time.Hour) }
	_, err := f.ledger.RecordBid(context.Background(), week.Auctions[0].ID, m.ID, 10)
	if !errors.Is(err, ErrAuctionExpired) {
		t.Fatalf("expected ErrAuctionExpired, got %v", err)
	}
}

func TestFinalizeLowestBidderWins(t *testing.T) {
	f := setupLedger(t)
	f.ledger.now = func() time.Time { return testWeek }

	alice := f.addMember(t, "Alice", 12)
	bob := f.addMember(t, "Bob", 14)
	c := f.addChore(t, "Dishes", 30, 0)
	week := f.openWeek(t, *c)
	auctionID := week.Auctions[0].ID

	ctx := context.Background()
	f.ledger.RecordBid(ctx, auctionID, alice.ID, 20)
	f.ledger.RecordBid(ctx, auctionID, bob.ID, 15)

	f.ledger.now = func() time.Time { return testWeek.Add(49 * time.Hour) }
	result, err := f.ledger.FinalizeAuctions(testWeek, 48)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if result.AssignedCount != 1 || result.IncreasedCount != 0 {
		t.Fatalf("result = %+v", result)
	}
	if w := result.Assignments[0]; w.WinnerID != bob.ID || w.FinalPoints != 15 {
		t.Errorf("award = %+v, want Bob at 15", w)
	}

	a, _ := f.auctions.GetByID(auctionID)
	if a.Status != model.AuctionCompleted {
		t.Errorf("status = %q, want completed", a.Status)
	}
	if a.WinnerID == nil || *a.WinnerID != bob.ID {
		t.Errorf("winner = %v, want %d", a.WinnerID, bob.ID)
	}
	if a.FinalPoints == nil || *a.FinalPoints != 15 {
		t.Errorf("final points = %v, want 15", a.FinalPoints)
	}

	// Winning yields seven daily assignments covering the ISO week.
	assignments, err := f.assignments.ListByAuction(auctionID)
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(assignments) != 7 {
		t.Fatalf("assignments = %d, want 7", len(assignments))
	}
	for i, asg := range assignments {
		if asg.UserID == nil || *asg.UserID != bob.ID {
			t.Errorf("assignment %d user = %v, want %d", i, asg.UserID, bob.ID)
		}
		if asg.Source != model.SourceAuction {
			t.Errorf("assignment %d source = %q", i, asg.Source)
		}
	}
}

func TestFinalizeTieGoesToEarlierBid(t *testing.T) {
	f := setupLedger(t)
	f.ledger.now = func() time.Time { return testWeek }

	alice := f.addMember(t, "Alice", 12)
	bob := f.addMember(t, "Bob", 14)
	c := f.addChore(t, "Dishes", 30, 0)
	week := f.openWeek(t, *c)
	auctionID := week.Auctions[0].ID
	ctx := context.Background()

	f.ledger.now = func() time.Time { return testWeek.Add(time.Hour) }
	f.ledger.RecordBid(ctx, auctionID, alice.ID, 15)
	f.ledger.now = func() time.Time { return testWeek.Add(2 * time.Hour) }
	f.ledger.RecordBid(ctx, auctionID, bob.ID, 15)

	f.ledger.now = func() time.Time { return testWeek.Add(49 * time.Hour) }
	result, err := f.ledger.FinalizeAuctions(testWeek, 48)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if result.Assignments[0].WinnerID != alice.ID {
		t.Errorf("winner = %d, want the earlier bidder %d", result.Assignments[0].WinnerID, alice.ID)
	}
}

func TestFinalizeNoBidsExtends(t *testing.T) {
	f := setupLedger(t)
	f.ledger.now = func() time.Time { return testWeek }

	c := f.addChore(t, "Dishes", 30, 0)
	week := f.openWeek(t, *c)
	auctionID := week.Auctions[0].ID
	originalEnd := week.Auctions[0].EndTime

	f.ledger.now = func() time.Time { return testWeek.Add(49 * time.Hour) }
	result, err := f.ledger.FinalizeAuctions(testWeek, 48)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if result.IncreasedCount != 1 || result.AssignedCount != 0 {
		t.Fatalf("result = %+v", result)
	}

	a, _ := f.auctions.GetByID(auctionID)
	if a.Status != model.AuctionActive {
		t.Errorf("status = %q, extension keeps the auction active", a.Status)
	}
	// ceil(30 * 1.10) = 33
	if a.StartPoints != 33 {
		t.Errorf("start points = %d, want 33", a.StartPoints)
	}
	if !a.EndTime.After(originalEnd) {
		t.Errorf("end time %s not extended past %s", a.EndTime, originalEnd)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	f := setupLedger(t)
	f.ledger.now = func() time.Time { return testWeek }

	alice := f.addMember(t, "Alice", 12)
	c := f.addChore(t, "Dishes", 30, 0)
	week := f.openWeek(t, *c)
	auctionID := week.Auctions[0].ID

	f.ledger.RecordBid(context.Background(), auctionID, alice.ID, 20)

	f.ledger.now = func() time.Time { return testWeek.Add(49 * time.Hour) }
	if _, err := f.ledger.FinalizeAuctions(testWeek, 48); err != nil {
		t.Fatalf("first finalize: %v", err)
	}

	second, err := f.ledger.FinalizeAuctions(testWeek, 48)
	if err != nil {
		t.Fatalf("second finalize: %v", err)
	}
	if second.AssignedCount != 0 || second.IncreasedCount != 0 {
		t.Errorf("second sweep did work: %+v", second)
	}

	assignments, _ := f.assignments.ListByAuction(auctionID)
	if len(assignments) != 7 {
		t.Errorf("assignments = %d after repeat sweep, want 7", len(assignments))
	}
}

func TestFinalizeSkipsUnexpired(t *testing.T) {
	f := setupLedger(t)
	f.ledger.now = func() time.Time { return testWeek }

	c := f.addChore(t, "Dishes", 30, 0)
	f.openWeek(t, *c)

	f.ledger.now = func() time.Time { return testWeek.Add(time.Hour) }
	result, err := f.ledger.FinalizeAuctions(testWeek, 48)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if result.AssignedCount != 0 || result.IncreasedCount != 0 {
		t.Errorf("auction with time remaining was finalized: %+v", result)
	}
}
