package auction

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dukerupert/choreauction/internal/store"
)

// Bidding strategies.
const (
	StrategyAggressive   = "aggressive"
	StrategyConservative = "conservative"
	StrategyBalanced     = "balanced"
)

// AdvisorInput is everything the recommendation heuristic looks at. It is
// assembled from store reads by Advisor.BiddingLimits but can be built by
// hand in tests.
type AdvisorInput struct {
	WeeklyGoal            int
	UserCurrentPoints     int
	TotalChoresThisWeek   int
	FamilyMemberCount     int
	ChoreOriginalPoints   int
	CurrentLowestBid      *int
	UserExistingBidsCount int
	TimeRemainingHours    float64
	TotalPointsAvailable  int
}

// Limits is the advisor's non-binding recommendation: a safe bid range, the
// strategy behind it, and any cautions worth surfacing.
type Limits struct {
	RecommendedBid int      `json:"recommended_bid"`
	MinBid         int      `json:"min_bid"`
	MaxBid         int      `json:"max_bid"`
	Strategy       string   `json:"strategy"`
	Warnings       []string `json:"warnings"`
}

// Advise computes a bid recommendation. It is pure and total: every factor
// is clamped, so degenerate inputs (no members, zero chores, goal already
// met) still yield a usable range with RecommendedBid in [MinBid, MaxBid].
func Advise(in AdvisorInput, cfg Config) Limits {
	members := in.FamilyMemberCount
	if members < 1 {
		members = 1
	}

	pointsNeeded := in.WeeklyGoal - in.UserCurrentPoints
	if pointsNeeded < 0 {
		pointsNeeded = 0
	}

	choresPerPerson := (in.TotalChoresThisWeek + members - 1) / members
	if choresPerPerson < 1 {
		choresPerPerson = 1
	}
	avgNeededPerChore := float64(pointsNeeded) / float64(choresPerPerson)

	winRate := 1.0 / float64(members)
	if in.UserExistingBidsCount > members {
		winRate *= cfg.CrowdedPenalty
	}
	if in.TimeRemainingHours < cfg.UrgencyThresholdHours {
		winRate *= cfg.UrgencyBoost
	}
	winRate = clamp(winRate, cfg.WinRateFloor, cfg.WinRateCeil)

	adjustedNeeded := avgNeededPerChore / winRate

	conservativeBid := atLeastOne(int(math.Floor(adjustedNeeded * cfg.ConservativeFactor)))
	maxAffordableBid := atLeastOne(int(math.Floor(adjustedNeeded)))
	aggressiveBid := atLeastOne(min(in.ChoreOriginalPoints-1, int(math.Floor(adjustedNeeded*cfg.AggressiveFactor))))

	// An aggressive recommendation undercuts the standing lowest bid by one,
	// or the chore's own value when nobody has bid yet.
	undercut := in.ChoreOriginalPoints - 1
	if in.CurrentLowestBid != nil {
		undercut = *in.CurrentLowestBid - 1
	}
	aggressiveRec := min(aggressiveBid, undercut)

	var strategy string
	var recommended int
	var warnings []string

	switch {
	case float64(pointsNeeded) <= cfg.EasyGoalRatio*float64(in.UserCurrentPoints):
		strategy = StrategyAggressive
		recommended = aggressiveRec
	case float64(in.UserExistingBidsCount) >= cfg.OverloadRatio*float64(choresPerPerson):
		strategy = StrategyConservative
		recommended = conservativeBid
		warnings = append(warnings, fmt.Sprintf(
			"you already have %d standing bids this week; winning them all may be more than you can do",
			in.UserExistingBidsCount))
	case in.TimeRemainingHours < cfg.RushThresholdHours:
		strategy = StrategyAggressive
		recommended = aggressiveRec
	default:
		strategy = StrategyBalanced
		recommended = maxAffordableBid
	}

	minBid := max(1, min(conservativeBid, in.ChoreOriginalPoints-1))
	maxBid := max(minBid, min(maxAffordableBid, in.ChoreOriginalPoints-1))
	if recommended < minBid {
		recommended = minBid
	}
	if recommended > maxBid {
		recommended = maxBid
	}

	if in.TotalPointsAvailable > 0 && float64(pointsNeeded) > cfg.GoalWarningRatio*float64(in.TotalPointsAvailable) {
		warnings = append(warnings, fmt.Sprintf(
			"your goal needs %d points but only %d are on offer this week; it may be out of reach",
			pointsNeeded, in.TotalPointsAvailable))
	}
	if in.FamilyMemberCount > in.TotalChoresThisWeek && in.TotalChoresThisWeek > 0 {
		warnings = append(warnings, "more bidders than chores this week; expect heavy competition")
	}

	return Limits{
		RecommendedBid: recommended,
		MinBid:         minBid,
		MaxBid:         maxBid,
		Strategy:       strategy,
		Warnings:       warnings,
	}
}

// Advisor assembles AdvisorInput from live auction state. It only reads;
// it can run freely in parallel with bidding.
type Advisor struct {
	auctions *store.AuctionStore
	bids     *store.BidStore
	chores   *store.ChoreStore
	members  *store.FamilyMemberStore
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

func NewAdvisor(auctions *store.AuctionStore, bids *store.BidStore, chores *store.ChoreStore, members *store.FamilyMemberStore, cfg Config, logger *slog.Logger) *Advisor {
	return &Advisor{
		auctions: auctions,
		bids:     bids,
		chores:   chores,
		members:  members,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// BiddingLimits computes a recommendation for one user on one auction.
func (s *Advisor) BiddingLimits(auctionID, userID int64) (*Limits, error) {
	a, err := s.auctions.GetByID(auctionID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAuctionNotFound
	}

	member, err := s.members.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	chore, err := s.chores.GetByID(a.ChoreID)
	if err != nil {
		return nil, err
	}
	chorePoints := a.StartPoints
	if chore != nil {
		chorePoints = chore.Points
	}

	memberCount, err := s.members.CountByFamily(a.FamilyID)
	if err != nil {
		return nil, err
	}
	totalChores, err := s.auctions.CountByWeek(a.FamilyID, a.WeekStart, "")
	if err != nil {
		return nil, err
	}
	pool, err := s.auctions.SumStartPointsByWeek(a.FamilyID, a.WeekStart)
	if err != nil {
		return nil, err
	}
	existing, err := s.bids.CountByUserWeek(userID, a.WeekStart)
	if err != nil {
		return nil, err
	}

	auctionBids, err := s.bids.ListByAuction(a.ID)
	if err != nil {
		return nil, err
	}
	var lowest *int
	if lb, ok := CurrentLowest(auctionBids); ok {
		v := lb.BidPoints
		lowest = &v
	}

	remaining := a.EndTime.Sub(s.now()).Hours()
	if remaining < 0 {
		remaining = 0
	}

	limits := Advise(AdvisorInput{
		WeeklyGoal:            member.WeeklyGoal,
		UserCurrentPoints:     member.Points,
		TotalChoresThisWeek:   totalChores,
		FamilyMemberCount:     memberCount,
		ChoreOriginalPoints:   chorePoints,
		CurrentLowestBid:      lowest,
		UserExistingBidsCount: existing,
		TimeRemainingHours:    remaining,
		TotalPointsAvailable:  pool,
	}, s.cfg)

	s.logger.Debug("bidding limits computed",
		"auction_id", auctionID, "user_id", userID,
		"strategy", limits.Strategy, "recommended", limits.RecommendedBid)

	return &limits, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
