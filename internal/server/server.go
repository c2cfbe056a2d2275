package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/choreauction/internal/assign"
	"github.com/dukerupert/choreauction/internal/auction"
	"github.com/dukerupert/choreauction/internal/config"
	"github.com/dukerupert/choreauction/internal/handler"
	"github.com/dukerupert/choreauction/internal/metrics"
	"github.com/dukerupert/choreauction/internal/middleware"
	"github.com/dukerupert/choreauction/internal/store"
	ws "github.com/dukerupert/choreauction/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	auctionH    *handler.AuctionHandler
	assignmentH *handler.AssignmentHandler
	metrics     *metrics.Metrics
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	m := metrics.New()

	memberStore := store.NewFamilyMemberStore(db)
	choreStore := store.NewChoreStore(db)
	auctionStore := store.NewAuctionStore(db)
	bidStore := store.NewBidStore(db)
	assignmentStore := store.NewAssignmentStore(db)

	ledger := auction.NewLedger(db, auctionStore, bidStore, choreStore, memberStore, assignmentStore,
		cfg.Auction, logger.With("component", "ledger"))
	advisor := auction.NewAdvisor(auctionStore, bidStore, choreStore, memberStore,
		cfg.Auction, logger.With("component", "advisor"))
	generator := assign.NewGenerator(choreStore, assignmentStore, logger.With("component", "recurrence"))

	return &Server{
		db:  db,
		hub: hub,
		auctionH: handler.NewAuctionHandler(ledger, advisor, auctionStore, bidStore, choreStore,
			hub, m, logger.With("component", "auction_handler")),
		assignmentH: handler.NewAssignmentHandler(generator, hub, m,
			logger.With("component", "assignment_handler")),
		metrics:     m,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auctions/week", s.auctionH.CreateWeek)
	mux.HandleFunc("GET /api/auctions", s.auctionH.List)
	mux.HandleFunc("GET /api/auctions/{id}", s.auctionH.Get)
	mux.HandleFunc("POST /api/auctions/{id}/bids", s.rateLimitedHandler(s.auctionH.RecordBid))
	mux.HandleFunc("POST /api/auctions/finalize", s.auctionH.Finalize)
	mux.HandleFunc("GET /api/auctions/{id}/bidding-limits", s.auctionH.BiddingLimits)

	mux.HandleFunc("POST /api/assignments/generate", s.assignmentH.Generate)

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /ws", ws.Handle(s.hub))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// rateLimitedHandler throttles bid submissions per client IP so a runaway
// page refresh loop can't flood an auction.
func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 30, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
