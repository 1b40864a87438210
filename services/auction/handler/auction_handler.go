package handler

import (
	"fmt"
	"net/http"
	"time"

	auction "auction-service/internal/auctionService"
	finalize "auction-service/internal/finalizeService"
	model "auction-service/internal/models"
	"auction-service/services/auction/helpers"
	"auction-service/utils"

	"github.com/gin-gonic/gin"
)

type AuctionServiceInterface interface {
	CreateAuction(creatorID string, params auction.CreateAuctionParams) (model.Auction, error)
	GetAuction(auctionID string) (model.Auction, error)
	ListAuctions(communityID string) ([]model.Auction, error)
	GetAuctionStatus(auctionID string) (model.Status, error)
	DeactivateAuction(auctionID string, isAdmin bool) error
}

type BiddingServiceInterface interface {
	PlaceBid(auctionID, bidderID string, amount float64) (model.Bid, error)
	GetBidsForAuction(auctionID string) ([]model.Bid, error)
}

type FinalizeServiceInterface interface {
	CloseBidding(auctionID, requesterID string, isAdmin bool) error
	Finalize(auctionID, requesterID string, isAdmin bool) (finalize.FinalizationResult, error)
}

type AuctionHandler struct {
	auctions  AuctionServiceInterface
	bidding   BiddingServiceInterface
	finalizer FinalizeServiceInterface
}

func NewAuctionHandler(auctions AuctionServiceInterface, bidding BiddingServiceInterface, finalizer FinalizeServiceInterface) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, bidding: bidding, finalizer: finalizer}
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	userID, _ := helpers.CallerIdentity(c)
	if userID == "" {
		utils.JSONError(c, http.StatusUnauthorized, fmt.Errorf("missing caller identity"), "missing caller identity")
		return
	}

	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	created, err := h.auctions.CreateAuction(userID, auction.CreateAuctionParams{
		CommunityID:         req.CommunityID,
		Title:               req.Title,
		Description:         req.Description,
		ImageURL:            req.ImageURL,
		StartingPrice:       req.StartingPrice,
		MinimumBidIncrement: req.MinimumBidIncrement,
		StartTime:           req.AuctionStartTime,
		EndTime:             req.AuctionEndTime,
	})
	if err != nil {
		h.respondError(c, "CreateAuctionHandler", err, map[string]any{
			"community_id": req.CommunityID,
			"user_id":      userID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, toAuctionResponse(created, created.StatusAt(time.Now().UTC())), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id":   created.AuctionID,
		"community_id": created.CommunityID,
		"user_id":      userID,
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	found, err := h.auctions.GetAuction(auctionID)
	if err != nil {
		h.respondError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, toAuctionResponse(found, found.StatusAt(time.Now().UTC())), "auction retrieved successfully")
}

// ListAuctionsHandler handles GET /auctions
func (h *AuctionHandler) ListAuctionsHandler(c *gin.Context) {
	communityID := c.Query("community_id")

	auctions, err := h.auctions.ListAuctions(communityID)
	if err != nil {
		h.respondError(c, "ListAuctionsHandler", err, map[string]any{"community_id": communityID})
		return
	}

	now := time.Now().UTC()
	resp := make([]helpers.AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		resp = append(resp, toAuctionResponse(a, a.StatusAt(now)))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "auctions retrieved successfully")
}

// GetAuctionStatusHandler handles GET /auctions/:auction_id/status
func (h *AuctionHandler) GetAuctionStatusHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	status, err := h.auctions.GetAuctionStatus(auctionID)
	if err != nil {
		h.respondError(c, "GetAuctionStatusHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.StatusResponse{
		AuctionID: auctionID,
		Status:    string(status),
	}, "auction status retrieved successfully")
}

// DeactivateAuctionHandler handles DELETE /auctions/:auction_id
func (h *AuctionHandler) DeactivateAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	userID, isAdmin := helpers.CallerIdentity(c)
	if userID == "" {
		utils.JSONError(c, http.StatusUnauthorized, fmt.Errorf("missing caller identity"), "missing caller identity")
		return
	}

	if err := h.auctions.DeactivateAuction(auctionID, isAdmin); err != nil {
		h.respondError(c, "DeactivateAuctionHandler", err, map[string]any{
			"auction_id": auctionID,
			"user_id":    userID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"auction_id": auctionID}, "auction deactivated successfully")
	helpers.LogSuccess("DeactivateAuctionHandler", "auction deactivated successfully", map[string]any{
		"auction_id": auctionID,
		"user_id":    userID,
	})
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	userID, _ := helpers.CallerIdentity(c)
	if userID == "" {
		utils.JSONError(c, http.StatusUnauthorized, fmt.Errorf("missing caller identity"), "missing caller identity")
		return
	}

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.bidding.PlaceBid(auctionID, userID, req.Amount)
	if err != nil {
		h.respondError(c, "PlaceBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"user_id":    userID,
			"amount":     req.Amount,
		})
		return
	}

	resp := helpers.BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339),
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "bid recorded successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"user_id":    userID,
		"amount":     bid.Amount,
	})
}

// GetBidsHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")

	bids, err := h.bidding.GetBidsForAuction(auctionID)
	if err != nil {
		h.respondError(c, "GetBidsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	if bids == nil {
		bids = []model.Bid{}
	}

	utils.JSONResponse(c, http.StatusOK, bids, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// CloseBiddingHandler handles POST /auctions/:auction_id/close
func (h *AuctionHandler) CloseBiddingHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	userID, isAdmin := helpers.CallerIdentity(c)
	if userID == "" {
		utils.JSONError(c, http.StatusUnauthorized, fmt.Errorf("missing caller identity"), "missing caller identity")
		return
	}

	if err := h.finalizer.CloseBidding(auctionID, userID, isAdmin); err != nil {
		h.respondError(c, "CloseBiddingHandler", err, map[string]any{
			"auction_id": auctionID,
			"user_id":    userID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.CloseBiddingResponse{AuctionID: auctionID}, "bidding closed successfully")
	helpers.LogSuccess("CloseBiddingHandler", "bidding closed successfully", map[string]any{
		"auction_id": auctionID,
		"user_id":    userID,
	})
}

// FinalizeAuctionHandler handles POST /auctions/:auction_id/finalize
func (h *AuctionHandler) FinalizeAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	userID, isAdmin := helpers.CallerIdentity(c)
	if userID == "" {
		utils.JSONError(c, http.StatusUnauthorized, fmt.Errorf("missing caller identity"), "missing caller identity")
		return
	}

	result, err := h.finalizer.Finalize(auctionID, userID, isAdmin)
	if err != nil {
		h.respondError(c, "FinalizeAuctionHandler", err, map[string]any{
			"auction_id": auctionID,
			"user_id":    userID,
		})
		return
	}

	message := "auction finalized successfully"
	if result.WinnerID == nil {
		message = "auction ended with no bids"
	}

	utils.JSONResponse(c, http.StatusOK, helpers.FinalizeResponse{
		AuctionID:        result.AuctionID,
		Winner:           result.WinnerID,
		WinningBidAmount: result.WinningAmount,
	}, message)
	helpers.LogSuccess("FinalizeAuctionHandler", message, map[string]any{
		"auction_id": auctionID,
		"user_id":    userID,
		"bid_count":  result.BidCount,
	})
}

// respondError maps a service error to HTTP and logs it with context.
func (h *AuctionHandler) respondError(c *gin.Context, handlerName string, err error, ctx map[string]any) {
	status, message := helpers.MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	ctx["handler"] = handlerName
	ctx["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", ctx)
	} else {
		utils.Warn(handlerName+": request rejected", ctx)
	}
}

// toAuctionResponse shapes an auction record with its derived status.
func toAuctionResponse(a model.Auction, status model.Status) helpers.AuctionResponse {
	return helpers.AuctionResponse{
		AuctionID:           a.AuctionID,
		CommunityID:         a.CommunityID,
		CreatedBy:           a.CreatedBy,
		Title:               a.Title,
		Description:         a.Description,
		ImageURL:            a.ImageURL,
		StartingPrice:       a.StartingPrice,
		MinimumBidIncrement: a.MinimumBidIncrement,
		AuctionStartTime:    a.StartTime.UTC().Format(time.RFC3339),
		AuctionEndTime:      a.EndTime.UTC().Format(time.RFC3339),
		Status:              string(status),
		IsClosed:            a.Closed,
		Winner:              a.WinnerID,
		WinningBid:          a.WinningBidID,
		BidCount:            a.Stats.BidCount,
		HighestBidAmount:    a.Stats.HighestBidAmount,
	}
}
