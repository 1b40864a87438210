package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	auction "auction-service/internal/auctionService"
	bidding "auction-service/internal/biddingService"
	finalize "auction-service/internal/finalizeService"
	model "auction-service/internal/models"
	"auction-service/internal/repository"
	"auction-service/internal/scheduler"
	"auction-service/internal/server"
	"auction-service/services/auction/helpers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// TestEnv bundles the wired application with direct access to its store and
// scheduler for seeding and sweeping.
type TestEnv struct {
	Router    *gin.Engine
	Store     *repository.MemoryStore
	Scheduler *scheduler.Scheduler
}

// SetupTestEnv wires the full application over an in-memory store.
func SetupTestEnv() *TestEnv {
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	auctionSvc := auction.NewAuctionService(store)
	biddingSvc := bidding.NewBiddingService(store)
	finalizeSvc := finalize.NewFinalizeService(store)

	return &TestEnv{
		Router:    server.SetupRouter(auctionSvc, biddingSvc, finalizeSvc),
		Store:     store,
		Scheduler: scheduler.NewScheduler(store, finalizeSvc, time.Minute),
	}
}

// SeedAuction stores an auction directly, bypassing the HTTP layer.
func (e *TestEnv) SeedAuction(t *testing.T, id, creatorID string, startingPrice, increment float64, start, end time.Time) {
	t.Helper()
	require.NoError(t, e.Store.CreateAuction(model.Auction{
		AuctionID:           id,
		CommunityID:         "community1",
		CreatedBy:           creatorID,
		Title:               "seeded auction",
		StartingPrice:       startingPrice,
		MinimumBidIncrement: increment,
		StartTime:           start,
		EndTime:             end,
		Active:              true,
		CreatedAt:           time.Now().UTC(),
	}))
}

// ExecuteRequestAndParse executes an HTTP request with the given caller
// identity and parses the JSON response envelope.
func (e *TestEnv) ExecuteRequestAndParse(t *testing.T, method, url string, body any, userID string) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(helpers.HeaderUserID, userID)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return resp, w
}

// PlaceBid posts a bid and returns the parsed response and recorder.
func (e *TestEnv) PlaceBid(t *testing.T, auctionID, bidderID string, amount float64) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	return e.ExecuteRequestAndParse(t, "POST", "/auctions/"+auctionID+"/bids", helpers.PlaceBidRequest{Amount: amount}, bidderID)
}

// AuctionState reads the auction straight from the store.
func (e *TestEnv) AuctionState(t *testing.T, auctionID string) model.Auction {
	t.Helper()
	a, err := e.Store.GetAuction(auctionID)
	require.NoError(t, err)
	return a
}

// BidCount counts the bids recorded for an auction.
func (e *TestEnv) BidCount(t *testing.T, auctionID string) int {
	t.Helper()
	bids, err := e.Store.GetBidsByAuction(auctionID)
	require.NoError(t, err)
	return len(bids)
}
