package auctionerrors

import "errors"

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrVersionConflict = errors.New("auction was modified concurrently")
	ErrDuplicateBid    = errors.New("duplicate bid detected")
)

// business logic errors
var (
	ErrInvalidBid       = errors.New("invalid bid")
	ErrBidTooLow        = errors.New("bid amount too low")
	ErrOwnerBid         = errors.New("auction owner cannot bid on own auction")
	ErrBiddingClosed    = errors.New("bidding closed")
	ErrAuctionNotActive = errors.New("auction is not active")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrAlreadyClosed    = errors.New("auction already closed")
	ErrNotEnded         = errors.New("auction has not ended yet")
)
