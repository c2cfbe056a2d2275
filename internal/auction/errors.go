package auction

import "errors"

// Rejection reasons returned to callers. Handlers map these to 4xx responses;
// anything else is a storage failure and safe to retry.
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrAuctionNotActive = errors.New("auction is not active")
	ErrAuctionExpired   = errors.New("auction has ended")
	ErrBidTooLow        = errors.New("bid must be at least 1 point")
	ErrBidderIneligible = errors.New("bidder does not meet the chore's minimum age")
	ErrMemberNotFound   = errors.New("family member not found")
	ErrAlreadyExists    = errors.New("auction already exists for this chore and week")
)
