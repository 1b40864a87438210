package models

import (
	"errors"
	"time"
)

// Status classifies an auction relative to a point in time. It is computed
// from the stored times and the closed flag, never persisted.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
)

// AuctionStats is the denormalized aggregate over an auction's bids. It is
// only ever written in the same transaction that records a bid.
type AuctionStats struct {
	BidCount         int     `json:"bid_count"`
	HighestBidAmount float64 `json:"highest_bid_amount"`
}

// Auction represents a time-boxed sale of one item inside a community.
type Auction struct {
	AuctionID           string       `json:"auction_id"`
	CommunityID         string       `json:"community_id"`
	CreatedBy           string       `json:"created_by"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	ImageURL            string       `json:"image_url,omitempty"`
	StartingPrice       float64      `json:"starting_price"`
	MinimumBidIncrement float64      `json:"minimum_bid_increment"`
	StartTime           time.Time    `json:"auction_start_time"`
	EndTime             time.Time    `json:"auction_end_time"`
	Closed              bool         `json:"is_closed"`
	WinnerID            *string      `json:"winner,omitempty"`
	WinningBidID        *string      `json:"winning_bid,omitempty"`
	Stats               AuctionStats `json:"stats"`
	Active              bool         `json:"is_active"`
	FinalizedAt         *time.Time   `json:"finalized_at,omitempty"`
	Version             int64        `json:"-"`
	CreatedAt           time.Time    `json:"created_at"`
}

// Bid represents a user's offer on an auction. Bids are immutable once
// recorded.
type Bid struct {
	BidID     string    `json:"bid_id"`
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusAt returns the auction's derived status at the given instant.
// A closed auction is always ended, regardless of its end time.
func (a Auction) StatusAt(now time.Time) Status {
	if a.Closed {
		return StatusEnded
	}
	if now.Before(a.StartTime) {
		return StatusScheduled
	}
	if !now.After(a.EndTime) {
		return StatusActive
	}
	return StatusEnded
}

// MinimumAllowedBid returns the smallest amount the next bid must reach.
func (a Auction) MinimumAllowedBid() float64 {
	highest := a.Stats.HighestBidAmount
	if a.StartingPrice > highest {
		highest = a.StartingPrice
	}
	return highest + a.MinimumBidIncrement
}

// Validate checks the invariants an auction must satisfy at creation time.
func (a Auction) Validate() error {
	if a.Title == "" {
		return errors.New("auction title is required")
	}
	if a.StartingPrice < 0 {
		return errors.New("starting price must not be negative")
	}
	if a.MinimumBidIncrement < 1 {
		return errors.New("minimum bid increment must be at least 1")
	}
	if !a.EndTime.After(a.StartTime) {
		return errors.New("auction end time must be after start time")
	}
	return nil
}
