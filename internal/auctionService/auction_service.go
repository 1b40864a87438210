package auction

import (
	"fmt"
	"time"

	"auction-service/internal/auctionerrors"
	"auction-service/internal/models"
	"auction-service/internal/repository"
	"auction-service/utils"
)

// AuctionService defines the lifecycle operations for auction records:
// creation, reads with derived status, and soft deactivation. Bidding and
// finalization live in their own services.
type AuctionService struct {
	store repository.AuctionStore
	now   func() time.Time
}

// CreateAuctionParams carries the caller-supplied fields for a new auction.
type CreateAuctionParams struct {
	CommunityID         string
	Title               string
	Description         string
	ImageURL            string
	StartingPrice       float64
	MinimumBidIncrement float64
	StartTime           time.Time
	EndTime             time.Time
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(store repository.AuctionStore) *AuctionService {
	return &AuctionService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AuctionService) WithClock(now func() time.Time) *AuctionService {
	s.now = now
	return s
}

// CreateAuction validates and stores a new auction for the given creator.
// Community membership is checked upstream before the request reaches here.
func (s *AuctionService) CreateAuction(creatorID string, params CreateAuctionParams) (models.Auction, error) {
	if creatorID == "" || params.CommunityID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing creator or community ID", auctionerrors.ErrInvalidBid)
	}

	increment := params.MinimumBidIncrement
	if increment == 0 {
		increment = 1
	}

	auction := models.Auction{
		AuctionID:           utils.GenerateID(),
		CommunityID:         params.CommunityID,
		CreatedBy:           creatorID,
		Title:               params.Title,
		Description:         params.Description,
		ImageURL:            params.ImageURL,
		StartingPrice:       params.StartingPrice,
		MinimumBidIncrement: increment,
		StartTime:           params.StartTime,
		EndTime:             params.EndTime,
		Active:              true,
		CreatedAt:           s.now(),
	}

	if err := auction.Validate(); err != nil {
		return models.Auction{}, fmt.Errorf("service: %w - %v", auctionerrors.ErrInvalidBid, err)
	}

	if err := s.store.CreateAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}
	return auction, nil
}

// GetAuction returns a single active auction
func (s *AuctionService) GetAuction(auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	auction, err := s.store.GetAuction(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// ListAuctions returns active auctions, optionally scoped to a community
func (s *AuctionService) ListAuctions(communityID string) ([]models.Auction, error) {
	auctions, err := s.store.ListAuctions(communityID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}
	return auctions, nil
}

// GetAuctionStatus returns the auction's derived status at the current time
func (s *AuctionService) GetAuctionStatus(auctionID string) (models.Status, error) {
	auction, err := s.GetAuction(auctionID)
	if err != nil {
		return "", err
	}
	return auction.StatusAt(s.now()), nil
}

// DeactivateAuction soft-deletes an auction. Restricted to admins.
func (s *AuctionService) DeactivateAuction(auctionID string, isAdmin bool) error {
	if auctionID == "" {
		return fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}
	if !isAdmin {
		return fmt.Errorf("service: %w - only admins can deactivate auctions", auctionerrors.ErrNotAuthorized)
	}

	if err := s.store.DeactivateAuction(auctionID); err != nil {
		return fmt.Errorf("service: failed to deactivate auction %s: %w", auctionID, err)
	}
	return nil
}
