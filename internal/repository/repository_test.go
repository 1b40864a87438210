package repository

import (
	"sync"
	"testing"
	"time"

	"auction-service/internal/auctionerrors"
	model "auction-service/internal/models"
	"auction-service/utils"

	"github.com/stretchr/testify/require"
)

func newTestAuction(id string) model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:           id,
		CommunityID:         "community1",
		CreatedBy:           "seller1",
		Title:               "test auction",
		StartingPrice:       100,
		MinimumBidIncrement: 10,
		StartTime:           now.Add(-1 * time.Hour),
		EndTime:             now.Add(1 * time.Hour),
		Active:              true,
		CreatedAt:           now,
	}
}

func TestMemoryStore_CreateAndGetAuction(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.CreateAuction(newTestAuction("auction1")))

	got, err := store.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, "auction1", got.AuctionID)
	require.Equal(t, int64(1), got.Version)

	_, err = store.GetAuction("missing")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)

	// duplicate creation rejected
	require.Error(t, store.CreateAuction(newTestAuction("auction1")))
}

func TestMemoryStore_DeactivatedAuctionNotFound(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.CreateAuction(newTestAuction("auction1")))

	require.NoError(t, store.DeactivateAuction("auction1"))

	_, err := store.GetAuction("auction1")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)

	require.ErrorIs(t, store.DeactivateAuction("missing"), auctionerrors.ErrAuctionNotFound)
}

func TestMemoryStore_ListAuctions(t *testing.T) {
	store := NewMemoryStore()

	a1 := newTestAuction("auction1")
	a2 := newTestAuction("auction2")
	a2.CommunityID = "community2"
	a2.CreatedAt = a1.CreatedAt.Add(1 * time.Second)

	require.NoError(t, store.CreateAuction(a1))
	require.NoError(t, store.CreateAuction(a2))

	all, err := store.ListAuctions("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "auction1", all[0].AuctionID, "results should be ordered by creation time")

	scoped, err := store.ListAuctions("community2")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "auction2", scoped[0].AuctionID)
}

func TestMemoryStore_ApplyBid(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.CreateAuction(newTestAuction("auction1")))

	bid := model.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: "auction1",
		BidderID:  "bidder1",
		Amount:    110,
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, store.ApplyBid(bid, 1))

	got, err := store.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, 110.0, got.Stats.HighestBidAmount)
	require.Equal(t, 1, got.Stats.BidCount)
	require.Equal(t, int64(2), got.Version)

	bids, err := store.GetBidsByAuction("auction1")
	require.NoError(t, err)
	require.Len(t, bids, 1)
}

func TestMemoryStore_ApplyBid_VersionConflict(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.CreateAuction(newTestAuction("auction1")))

	bid := model.Bid{BidID: utils.GenerateID(), AuctionID: "auction1", BidderID: "bidder1", Amount: 110, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.ApplyBid(bid, 1))

	// stale version must not land, and must not touch stats
	stale := model.Bid{BidID: utils.GenerateID(), AuctionID: "auction1", BidderID: "bidder2", Amount: 120, CreatedAt: time.Now().UTC()}
	require.ErrorIs(t, store.ApplyBid(stale, 1), auctionerrors.ErrVersionConflict)

	got, err := store.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, 110.0, got.Stats.HighestBidAmount)
	require.Equal(t, 1, got.Stats.BidCount)

	bids, err := store.GetBidsByAuction("auction1")
	require.NoError(t, err)
	require.Len(t, bids, 1, "rejected bid must not be recorded")
}

func TestMemoryStore_ApplyBid_Duplicate(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.CreateAuction(newTestAuction("auction1")))

	bid := model.Bid{BidID: utils.GenerateID(), AuctionID: "auction1", BidderID: "bidder1", Amount: 110, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.ApplyBid(bid, 1))

	replay := model.Bid{BidID: utils.GenerateID(), AuctionID: "auction1", BidderID: "bidder1", Amount: 110, CreatedAt: time.Now().UTC()}
	require.ErrorIs(t, store.ApplyBid(replay, 2), auctionerrors.ErrDuplicateBid)

	got, err := store.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Stats.BidCount, "duplicate must not double-count stats")
}

func TestMemoryStore_ApplyBid_MissingAuction(t *testing.T) {
	store := NewMemoryStore()

	bid := model.Bid{BidID: utils.GenerateID(), AuctionID: "missing", BidderID: "bidder1", Amount: 110, CreatedAt: time.Now().UTC()}
	require.ErrorIs(t, store.ApplyBid(bid, 1), auctionerrors.ErrAuctionNotFound)
}

// Only one of many concurrent applies against the same observed version may
// win; everyone else gets a version conflict.
func TestMemoryStore_ApplyBid_ConcurrentSameVersion(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.CreateAuction(newTestAuction("auction1")))

	const bidders = 16
	var wg sync.WaitGroup
	errs := make([]error, bidders)

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bid := model.Bid{
				BidID:     utils.GenerateID(),
				AuctionID: "auction1",
				BidderID:  "bidder",
				Amount:    110 + float64(i),
				CreatedAt: time.Now().UTC(),
			}
			errs[i] = store.ApplyBid(bid, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, auctionerrors.ErrVersionConflict)
		}
	}
	require.Equal(t, 1, succeeded)

	got, err := store.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Stats.BidCount)
}

func TestMemoryStore_GetBidsByAuction_Ordering(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.CreateAuction(newTestAuction("auction1")))

	base := time.Now().UTC()
	amounts := []float64{110, 150, 130}
	for i, amount := range amounts {
		bid := model.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: "auction1",
			BidderID:  "bidder" + string(rune('a'+i)),
			Amount:    amount,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.ApplyBid(bid, int64(i+1)))
	}

	bids, err := store.GetBidsByAuction("auction1")
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.Equal(t, 150.0, bids[0].Amount)
	require.Equal(t, 130.0, bids[1].Amount)
	require.Equal(t, 110.0, bids[2].Amount)

	_, err = store.GetBidsByAuction("missing")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

func TestMemoryStore_GetBidsByAuction_TieOrdersByCreation(t *testing.T) {
	store := NewMemoryStore()

	// equal amounts from different bidders are legal; only the same
	// bidder repeating an amount is a duplicate
	require.NoError(t, store.CreateAuction(newTestAuction("auction1")))

	base := time.Now().UTC()
	first := model.Bid{BidID: "bid-early", AuctionID: "auction1", BidderID: "bidder1", Amount: 150, CreatedAt: base}
	require.NoError(t, store.ApplyBid(first, 1))
	second := model.Bid{BidID: "bid-late", AuctionID: "auction1", BidderID: "bidder2", Amount: 150, CreatedAt: base.Add(1 * time.Second)}
	require.NoError(t, store.ApplyBid(second, 2))

	bids, err := store.GetBidsByAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, "bid-early", bids[0].BidID, "earliest bid wins the tie")
}

func TestMemoryStore_ListExpiredOpen(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now().UTC()

	expired := newTestAuction("expired")
	expired.EndTime = now.Add(-1 * time.Minute)
	require.NoError(t, store.CreateAuction(expired))

	open := newTestAuction("open")
	require.NoError(t, store.CreateAuction(open))

	closed := newTestAuction("closed")
	closed.EndTime = now.Add(-1 * time.Minute)
	require.NoError(t, store.CreateAuction(closed))
	require.NoError(t, store.CloseAuction("closed", 1))

	inactive := newTestAuction("inactive")
	inactive.EndTime = now.Add(-1 * time.Minute)
	require.NoError(t, store.CreateAuction(inactive))
	require.NoError(t, store.DeactivateAuction("inactive"))

	eligible, err := store.ListExpiredOpen(now)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	require.Equal(t, "expired", eligible[0].AuctionID)
}

func TestMemoryStore_CloseAuction(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.CreateAuction(newTestAuction("auction1")))

	require.NoError(t, store.CloseAuction("auction1", 1))

	got, err := store.GetAuction("auction1")
	require.NoError(t, err)
	require.True(t, got.Closed)
	require.Nil(t, got.WinnerID, "close must not assign a winner")
	require.Nil(t, got.FinalizedAt)

	require.ErrorIs(t, store.CloseAuction("auction1", 1), auctionerrors.ErrVersionConflict)
	require.ErrorIs(t, store.CloseAuction("missing", 1), auctionerrors.ErrAuctionNotFound)
}

func TestMemoryStore_FinalizeAuction(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.CreateAuction(newTestAuction("auction1")))

	winner := "bidder1"
	winningBid := "bid1"
	finalizedAt := time.Now().UTC()

	require.NoError(t, store.FinalizeAuction("auction1", &winner, &winningBid, finalizedAt, 1))

	got, err := store.GetAuction("auction1")
	require.NoError(t, err)
	require.True(t, got.Closed)
	require.Equal(t, &winner, got.WinnerID)
	require.Equal(t, &winningBid, got.WinningBidID)
	require.NotNil(t, got.FinalizedAt)

	require.ErrorIs(t, store.FinalizeAuction("auction1", &winner, &winningBid, finalizedAt, 1), auctionerrors.ErrVersionConflict)
	require.ErrorIs(t, store.FinalizeAuction("missing", nil, nil, finalizedAt, 1), auctionerrors.ErrAuctionNotFound)
}

func TestMemoryStore_FinalizeAuction_NoBids(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.CreateAuction(newTestAuction("auction1")))

	require.NoError(t, store.FinalizeAuction("auction1", nil, nil, time.Now().UTC(), 1))

	got, err := store.GetAuction("auction1")
	require.NoError(t, err)
	require.True(t, got.Closed)
	require.Nil(t, got.WinnerID)
	require.Nil(t, got.WinningBidID)
}
