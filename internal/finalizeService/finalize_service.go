package finalize

import (
	"errors"
	"fmt"
	"time"

	"auction-service/internal/auctionerrors"
	"auction-service/internal/models"
	"auction-service/internal/repository"
)

// maxApplyAttempts bounds the optimistic retry loop on version conflicts.
// A conflict means a concurrent bid or finalize landed first; the auction is
// re-read and re-evaluated before the next attempt.
const maxApplyAttempts = 3

// FinalizationResult reports the outcome of closing an auction. WinnerID and
// WinningBidID are nil when the auction ended without bids.
type FinalizationResult struct {
	AuctionID     string
	WinnerID      *string
	WinningBidID  *string
	WinningAmount float64
	BidCount      int
}

// FinalizeService determines auction winners and drives the closed state.
// Closing (stop accepting bids) and finalizing (assign winner) are distinct
// transitions; Finalize performs both when invoked on a still-open, ended
// auction.
type FinalizeService struct {
	store repository.AuctionStore
	now   func() time.Time
}

// NewFinalizeService creates a new FinalizeService instance
func NewFinalizeService(store repository.AuctionStore) *FinalizeService {
	return &FinalizeService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *FinalizeService) WithClock(now func() time.Time) *FinalizeService {
	s.now = now
	return s
}

// CloseBidding stops an auction from accepting bids without assigning a
// winner. Only the creator or an admin may close bidding early.
func (s *FinalizeService) CloseBidding(auctionID, requesterID string, isAdmin bool) error {
	if auctionID == "" || requesterID == "" {
		return fmt.Errorf("service: %w - missing auctionID or requesterID", auctionerrors.ErrInvalidBid)
	}

	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		auction, err := s.store.GetAuction(auctionID)
		if err != nil {
			return fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
		}

		if auction.CreatedBy != requesterID && !isAdmin {
			return fmt.Errorf("service: %w - only the creator or an admin can close bidding", auctionerrors.ErrNotAuthorized)
		}
		if auction.Closed {
			return fmt.Errorf("service: %w", auctionerrors.ErrAlreadyClosed)
		}

		err = s.store.CloseAuction(auctionID, auction.Version)
		if errors.Is(err, auctionerrors.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("service: failed to close auction %s: %w", auctionID, err)
		}
		return nil
	}

	return fmt.Errorf("service: auction %s contended too heavily: %w", auctionID, auctionerrors.ErrVersionConflict)
}

// Finalize assigns the winner in manual mode. The requester must be the
// creator or an admin, and the auction must be closed or past its end time.
// Finalizing an already-finalized auction is a no-op that reports the stored
// outcome.
func (s *FinalizeService) Finalize(auctionID, requesterID string, isAdmin bool) (FinalizationResult, error) {
	if auctionID == "" || requesterID == "" {
		return FinalizationResult{}, fmt.Errorf("service: %w - missing auctionID or requesterID", auctionerrors.ErrInvalidBid)
	}

	auction, err := s.store.GetAuction(auctionID)
	if err != nil {
		return FinalizationResult{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}

	if auction.CreatedBy != requesterID && !isAdmin {
		return FinalizationResult{}, fmt.Errorf("service: %w - only the creator or an admin can finalize", auctionerrors.ErrNotAuthorized)
	}
	if !auction.Closed && auction.StatusAt(s.now()) != models.StatusEnded {
		return FinalizationResult{}, fmt.Errorf("service: %w", auctionerrors.ErrNotEnded)
	}

	return s.finalize(auctionID)
}

// FinalizeAuto assigns the winner in automatic mode, with no requester
// check. Invoked by the auto-close sweep once the end time has passed.
func (s *FinalizeService) FinalizeAuto(auctionID string) (FinalizationResult, error) {
	if auctionID == "" {
		return FinalizationResult{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	auction, err := s.store.GetAuction(auctionID)
	if err != nil {
		return FinalizationResult{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}

	if !auction.Closed && !auction.EndTime.Before(s.now()) {
		return FinalizationResult{}, fmt.Errorf("service: %w", auctionerrors.ErrNotEnded)
	}

	return s.finalize(auctionID)
}

// finalize selects the winner and commits the closed state. The write is
// version-guarded; on conflict the auction is re-read, so a concurrent
// finalize from the other invocation path resolves to the same stored
// winner instead of a second selection.
func (s *FinalizeService) finalize(auctionID string) (FinalizationResult, error) {
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		auction, err := s.store.GetAuction(auctionID)
		if err != nil {
			return FinalizationResult{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
		}

		bids, err := s.store.GetBidsByAuction(auctionID)
		if err != nil {
			return FinalizationResult{}, fmt.Errorf("service: failed to load bids for auction %s: %w", auctionID, err)
		}

		if auction.FinalizedAt != nil {
			return resultFromAuction(auction, bids), nil
		}

		result := FinalizationResult{AuctionID: auctionID, BidCount: len(bids)}
		var winnerID, winningBidID *string
		if len(bids) > 0 {
			// bids are ordered highest amount first, earliest first on
			// equal amounts, so the head is the winner
			winning := bids[0]
			winnerID = &winning.BidderID
			winningBidID = &winning.BidID
			result.WinnerID = winnerID
			result.WinningBidID = winningBidID
			result.WinningAmount = winning.Amount
		}

		err = s.store.FinalizeAuction(auctionID, winnerID, winningBidID, s.now(), auction.Version)
		if errors.Is(err, auctionerrors.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return FinalizationResult{}, fmt.Errorf("service: failed to finalize auction %s: %w", auctionID, err)
		}
		return result, nil
	}

	return FinalizationResult{}, fmt.Errorf("service: auction %s contended too heavily: %w", auctionID, auctionerrors.ErrVersionConflict)
}

// resultFromAuction rebuilds the outcome of an already-finalized auction
// from its stored winner fields.
func resultFromAuction(auction models.Auction, bids []models.Bid) FinalizationResult {
	result := FinalizationResult{
		AuctionID:    auction.AuctionID,
		WinnerID:     auction.WinnerID,
		WinningBidID: auction.WinningBidID,
		BidCount:     len(bids),
	}
	if auction.WinningBidID != nil {
		for _, b := range bids {
			if b.BidID == *auction.WinningBidID {
				result.WinningAmount = b.Amount
				break
			}
		}
	}
	return result
}
