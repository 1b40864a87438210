package bidding

import (
	"errors"
	"fmt"
	"math"
	"time"

	"auction-service/internal/auctionerrors"
	"auction-service/internal/models"
	"auction-service/internal/repository"
	"auction-service/utils"
)

// maxApplyAttempts bounds the optimistic re-validation loop. Each retry
// re-reads the auction and re-checks every precondition, so a loser of a
// concurrent race is rejected against the new minimum rather than retried
// blindly.
const maxApplyAttempts = 3

// BiddingService defines the business logic for placing bids on auctions
type BiddingService struct {
	store repository.AuctionStore
	now   func() time.Time
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(store repository.AuctionStore) *BiddingService {
	return &BiddingService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *BiddingService) WithClock(now func() time.Time) *BiddingService {
	s.now = now
	return s
}

// PlaceBid validates and records a bid against the auction's current state.
// The bid insert and the auction stats update commit together or not at all.
func (s *BiddingService) PlaceBid(auctionID, bidderID string, amount float64) (models.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidBid)
	}

	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		auction, err := s.store.GetAuction(auctionID)
		if err != nil {
			return models.Bid{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
		}

		if err := s.validateBid(auction, bidderID, amount); err != nil {
			return models.Bid{}, err
		}

		bid := models.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: s.now(),
		}

		err = s.store.ApplyBid(bid, auction.Version)
		if errors.Is(err, auctionerrors.ErrVersionConflict) {
			// another bid landed first; re-read and re-validate
			continue
		}
		if err != nil {
			return models.Bid{}, fmt.Errorf("service: failed to record bid for auction %s by user %s: %w", auctionID, bidderID, err)
		}
		return bid, nil
	}

	return models.Bid{}, fmt.Errorf("service: auction %s contended too heavily: %w", auctionID, auctionerrors.ErrVersionConflict)
}

// validateBid checks the bid preconditions in order, each with a distinct
// failure. The auction must exist and the bidder must not be the owner
// before the amount is judged at all; NaN and infinities are rejected here
// because they compare false against every threshold and would otherwise
// poison the stored highest-bid stat.
func (s *BiddingService) validateBid(auction models.Auction, bidderID string, amount float64) error {
	if auction.CreatedBy == bidderID {
		return fmt.Errorf("service: %w", auctionerrors.ErrOwnerBid)
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("service: %w - bid amount must be a positive finite number", auctionerrors.ErrInvalidBid)
	}
	if auction.Closed {
		return fmt.Errorf("service: %w", auctionerrors.ErrBiddingClosed)
	}
	if status := auction.StatusAt(s.now()); status != models.StatusActive {
		return fmt.Errorf("service: %w - auction is %s, cannot place bid", auctionerrors.ErrAuctionNotActive, status)
	}
	if minAllowed := auction.MinimumAllowedBid(); amount < minAllowed {
		return fmt.Errorf("service: %w - minimum allowed bid is %.2f", auctionerrors.ErrBidTooLow, minAllowed)
	}
	return nil
}

// GetBidsForAuction returns all bids for an auction, highest first
func (s *BiddingService) GetBidsForAuction(auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.store.GetBidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}
