package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/choreauction/internal/auction"
	"github.com/dukerupert/choreauction/internal/metrics"
	"github.com/dukerupert/choreauction/internal/model"
	"github.com/dukerupert/choreauction/internal/store"
	"github.com/dukerupert/choreauction/internal/websocket"
)

// defaultFamilyID covers the single-household deployment; multi-family
// installs pass family_id explicitly.
const defaultFamilyID = 1

type AuctionHandler struct {
	ledger       *auction.Ledger
	advisor      *auction.Advisor
	auctionStore *store.AuctionStore
	bidStore     *store.BidStore
	choreStore   *store.ChoreStore
	hub          *websocket.Hub
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func NewAuctionHandler(ledger *auction.Ledger, advisor *auction.Advisor, as *store.AuctionStore, bs *store.BidStore, cs *store.ChoreStore, hub *websocket.Hub, m *metrics.Metrics, logger *slog.Logger) *AuctionHandler {
	return &AuctionHandler{
		ledger:       ledger,
		advisor:      advisor,
		auctionStore: as,
		bidStore:     bs,
		choreStore:   cs,
		hub:          hub,
		metrics:      m,
		logger:       logger,
	}
}

func (h *AuctionHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type createWeekRequest struct {
	WeekStart     string `json:"week_start"`
	DurationHours int    `json:"duration_hours"`
	FamilyID      int64  `json:"family_id"`
}

// CreateWeek opens an auction for every auction-enabled chore in the week.
func (h *AuctionHandler) CreateWeek(w http.ResponseWriter, r *http.Request) {
	var req createWeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	weekStart, err := parseDate(req.WeekStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "week_start must be YYYY-MM-DD")
		return
	}
	if req.FamilyID == 0 {
		req.FamilyID = defaultFamilyID
	}

	chores, err := h.choreStore.ListAuctionable(req.FamilyID)
	if err != nil {
		h.logger.Error("list auctionable chores", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load chores")
		return
	}
	if len(chores) == 0 {
		writeError(w, http.StatusBadRequest, "no auction-enabled chores for this family")
		return
	}

	result, err := h.ledger.CreateAuctionsForWeek(weekStart, req.DurationHours, chores)
	if err != nil {
		if errors.Is(err, auction.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "auctions already exist for this week")
			return
		}
		h.logger.Error("create auctions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create auctions")
		return
	}

	h.metrics.AuctionsCreated.Add(float64(result.AuctionsCreated))
	for _, a := range result.Auctions {
		h.broadcast(websocket.Event{
			Type:      websocket.EventAuctionCreated,
			AuctionID: a.ID,
			ChoreID:   a.ChoreID,
		})
	}

	writeJSON(w, http.StatusCreated, result)
}

// List returns auctions for a week, optionally filtered by status.
func (h *AuctionHandler) List(w http.ResponseWriter, r *http.Request) {
	weekStr := r.URL.Query().Get("week_start")
	if weekStr == "" {
		writeError(w, http.StatusBadRequest, "week_start is required")
		return
	}
	weekStart, err := parseDate(weekStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "week_start must be YYYY-MM-DD")
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && status != model.AuctionActive && status != model.AuctionCompleted {
		writeError(w, http.StatusBadRequest, "status must be active or completed")
		return
	}

	auctions, err := h.auctionStore.ListByWeek(auction.WeekStart(weekStart), status)
	if err != nil {
		h.logger.Error("list auctions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list auctions")
		return
	}
	if auctions == nil {
		auctions = []model.Auction{}
	}
	writeJSON(w, http.StatusOK, auctions)
}

type auctionDetail struct {
	model.Auction
	Bids []model.Bid `json:"bids"`
}

// Get returns a single auction with its bids in standings order.
func (h *AuctionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	a, err := h.auctionStore.GetByID(id)
	if err != nil {
		h.logger.Error("get auction", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get auction")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "auction not found")
		return
	}

	bids, err := h.bidStore.ListByAuction(id)
	if err != nil {
		h.logger.Error("list bids", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list bids")
		return
	}

	writeJSON(w, http.StatusOK, auctionDetail{Auction: *a, Bids: auction.Order(bids)})
}

type bidRequest struct {
	UserID    int64 `json:"user_id"`
	BidPoints int   `json:"bid_points"`
}

// RecordBid places or replaces a member's bid on an auction.
func (h *AuctionHandler) RecordBid(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UserID == 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	result, err := h.ledger.RecordBid(r.Context(), id, req.UserID, req.BidPoints)
	if err != nil {
		h.metrics.BidsRejected.Inc()
		switch {
		case errors.Is(err, auction.ErrAuctionNotFound):
			writeError(w, http.StatusNotFound, "auction not found")
		case errors.Is(err, auction.ErrAuctionNotActive):
			writeError(w, http.StatusConflict, "auction is no longer active")
		case errors.Is(err, auction.ErrAuctionExpired):
			writeError(w, http.StatusConflict, "auction has ended")
		case errors.Is(err, auction.ErrBidTooLow):
			writeError(w, http.StatusBadRequest, "bid must be at least 1 point")
		case errors.Is(err, auction.ErrBidderIneligible):
			writeError(w, http.StatusBadRequest, "member does not meet the chore's age requirement")
		case errors.Is(err, auction.ErrMemberNotFound):
			writeError(w, http.StatusBadRequest, "family member not found")
		default:
			h.logger.Error("record bid", "auction_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to record bid")
		}
		return
	}

	h.metrics.BidsRecorded.Inc()
	h.broadcast(websocket.Event{
		Type:      websocket.EventBidRecorded,
		AuctionID: id,
		Extra:     map[string]any{"user_id": req.UserID, "is_lowest": result.IsLowestBid},
	})

	writeJSON(w, http.StatusCreated, result)
}

type finalizeRequest struct {
	WeekStart     string `json:"week_start"`
	DurationHours int    `json:"duration_hours"`
}

// Finalize resolves every expired auction in the week.
func (h *AuctionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	weekStart, err := parseDate(req.WeekStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "week_start must be YYYY-MM-DD")
		return
	}

	start := time.Now()
	result, err := h.ledger.FinalizeAuctions(weekStart, req.DurationHours)
	h.metrics.FinalizeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		// Partial results still carry the auctions that did resolve.
		h.logger.Error("finalize auctions", "error", err)
		if result == nil {
			writeError(w, http.StatusInternalServerError, "failed to finalize auctions")
			return
		}
	}

	h.metrics.AuctionsCompleted.Add(float64(result.AssignedCount))
	h.metrics.AuctionsExtended.Add(float64(result.IncreasedCount))
	for _, award := range result.Assignments {
		h.broadcast(websocket.Event{
			Type:      websocket.EventAuctionCompleted,
			AuctionID: award.AuctionID,
			ChoreID:   award.ChoreID,
			Extra:     map[string]any{"winner_id": award.WinnerID, "final_points": award.FinalPoints},
		})
	}
	for _, inc := range result.Increases {
		h.broadcast(websocket.Event{
			Type:      websocket.EventAuctionExtended,
			AuctionID: inc.AuctionID,
			ChoreID:   inc.ChoreID,
			Extra:     map[string]any{"new_start_points": inc.NewStartPoints},
		})
	}

	writeJSON(w, http.StatusOK, result)
}

// BiddingLimits returns suggested bid bounds for a member on an auction.
func (h *AuctionHandler) BiddingLimits(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userIDStr := r.URL.Query().Get("user_id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID < 1 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	limits, err := h.advisor.BiddingLimits(id, userID)
	if err != nil {
		switch {
		case errors.Is(err, auction.ErrAuctionNotFound):
			writeError(w, http.StatusNotFound, "auction not found")
		case errors.Is(err, auction.ErrMemberNotFound):
			writeError(w, http.StatusBadRequest, "family member not found")
		default:
			h.logger.Error("bidding limits", "auction_id", id, "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to compute bidding limits")
		}
		return
	}

	writeJSON(w, http.StatusOK, limits)
}
