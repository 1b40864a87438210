package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-service/internal/auctionerrors"
	model "auction-service/internal/models"
)

// AuctionStore defines the durable storage contract for auctions and their
// immutable bids. Mutating operations on an auction take the version the
// caller last observed; a mismatch fails with ErrVersionConflict so the
// caller can re-read and re-validate.
type AuctionStore interface {
	CreateAuction(auction model.Auction) error
	GetAuction(auctionID string) (model.Auction, error)
	ListAuctions(communityID string) ([]model.Auction, error)
	ListExpiredOpen(now time.Time) ([]model.Auction, error)
	GetBidsByAuction(auctionID string) ([]model.Bid, error)

	// ApplyBid inserts the bid and updates the auction's stats in a single
	// atomic step. Either both writes land or neither does.
	ApplyBid(bid model.Bid, expectedVersion int64) error

	// CloseAuction stops the auction from accepting bids. Winner fields are
	// untouched.
	CloseAuction(auctionID string, expectedVersion int64) error

	// FinalizeAuction closes the auction and records the winning bid. Nil
	// winner/winningBid mean the auction ended without bids.
	FinalizeAuction(auctionID string, winnerID, winningBidID *string, finalizedAt time.Time, expectedVersion int64) error

	DeactivateAuction(auctionID string) error
}

// MemoryStore is a concurrency-safe in-memory implementation of AuctionStore
type MemoryStore struct {
	mu       sync.RWMutex
	auctions map[string]*model.Auction // key: auctionID
	bids     map[string][]model.Bid    // key: auctionID -> bids in insertion order
}

// NewMemoryStore creates a new in-memory store instance
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		auctions: make(map[string]*model.Auction),
		bids:     make(map[string][]model.Bid),
	}
}

// CreateAuction stores a new auction record
func (s *MemoryStore) CreateAuction(auction model.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[auction.AuctionID]; ok {
		return fmt.Errorf("create auction %s: auction already exists", auction.AuctionID)
	}

	auction.Version = 1
	s.auctions[auction.AuctionID] = &auction
	return nil
}

// GetAuction returns an auction by id. Soft-deleted auctions are not found.
func (s *MemoryStore) GetAuction(auctionID string) (model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[auctionID]
	if !ok || !a.Active {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return *a, nil
}

// ListAuctions returns all active auctions, optionally filtered by community
func (s *MemoryStore) ListAuctions(communityID string) ([]model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auctions := make([]model.Auction, 0)
	for _, a := range s.auctions {
		if !a.Active {
			continue
		}
		if communityID != "" && a.CommunityID != communityID {
			continue
		}
		auctions = append(auctions, *a)
	}

	sort.Slice(auctions, func(i, j int) bool {
		return auctions[i].CreatedAt.Before(auctions[j].CreatedAt)
	})
	return auctions, nil
}

// ListExpiredOpen returns active auctions whose end time has passed and that
// are not yet closed. Used by the auto-close sweep.
func (s *MemoryStore) ListExpiredOpen(now time.Time) ([]model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expired := make([]model.Auction, 0)
	for _, a := range s.auctions {
		if a.Active && !a.Closed && a.EndTime.Before(now) {
			expired = append(expired, *a)
		}
	}
	return expired, nil
}

// GetBidsByAuction returns all bids for an auction ordered by amount
// descending, earliest first on equal amounts.
func (s *MemoryStore) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}

	bids := append([]model.Bid(nil), s.bids[auctionID]...)
	sort.SliceStable(bids, func(i, j int) bool {
		if bids[i].Amount != bids[j].Amount {
			return bids[i].Amount > bids[j].Amount
		}
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
	return bids, nil
}

// ApplyBid records a bid and updates the auction stats under the write lock.
func (s *MemoryStore) ApplyBid(bid model.Bid, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[bid.AuctionID]
	if !ok || !a.Active {
		return fmt.Errorf("apply bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Version != expectedVersion {
		return fmt.Errorf("apply bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrVersionConflict)
	}

	// same (auction, bidder, amount) triple is rejected, mirroring the
	// unique index the relational store enforces
	for _, b := range s.bids[bid.AuctionID] {
		if b.BidderID == bid.BidderID && b.Amount == bid.Amount {
			return fmt.Errorf("apply bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrDuplicateBid)
		}
	}

	s.bids[bid.AuctionID] = append(s.bids[bid.AuctionID], bid)
	a.Stats.HighestBidAmount = bid.Amount
	a.Stats.BidCount++
	a.Version++
	return nil
}

// CloseAuction marks the auction closed without assigning a winner.
func (s *MemoryStore) CloseAuction(auctionID string, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[auctionID]
	if !ok || !a.Active {
		return fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Version != expectedVersion {
		return fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrVersionConflict)
	}

	a.Closed = true
	a.Version++
	return nil
}

// FinalizeAuction closes the auction and records the winning bid outcome.
func (s *MemoryStore) FinalizeAuction(auctionID string, winnerID, winningBidID *string, finalizedAt time.Time, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[auctionID]
	if !ok || !a.Active {
		return fmt.Errorf("finalize auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Version != expectedVersion {
		return fmt.Errorf("finalize auction %s: %w", auctionID, auctionerrors.ErrVersionConflict)
	}

	a.Closed = true
	a.WinnerID = winnerID
	a.WinningBidID = winningBidID
	a.FinalizedAt = &finalizedAt
	a.Version++
	return nil
}

// DeactivateAuction soft-deletes an auction. Bids are retained.
func (s *MemoryStore) DeactivateAuction(auctionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return fmt.Errorf("deactivate auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}

	a.Active = false
	a.Version++
	return nil
}
