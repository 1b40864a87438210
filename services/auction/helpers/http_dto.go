package helpers

import "time"

// Request/Response DTOs
type CreateAuctionRequest struct {
	CommunityID         string    `json:"community_id" binding:"required"`
	Title               string    `json:"title" binding:"required,max=120"`
	Description         string    `json:"description" binding:"max=2000"`
	ImageURL            string    `json:"image_url"`
	StartingPrice       float64   `json:"starting_price" binding:"gte=0"`
	MinimumBidIncrement float64   `json:"minimum_bid_increment" binding:"omitempty,gte=1"`
	AuctionStartTime    time.Time `json:"auction_start_time" binding:"required"`
	AuctionEndTime      time.Time `json:"auction_end_time" binding:"required"`
}

type PlaceBidRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID     string  `json:"bid_id"`
	AuctionID string  `json:"auction_id"`
	BidderID  string  `json:"bidder_id"`
	Amount    float64 `json:"amount"`
	CreatedAt string  `json:"created_at"`
}

type AuctionResponse struct {
	AuctionID           string  `json:"auction_id"`
	CommunityID         string  `json:"community_id"`
	CreatedBy           string  `json:"created_by"`
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	ImageURL            string  `json:"image_url,omitempty"`
	StartingPrice       float64 `json:"starting_price"`
	MinimumBidIncrement float64 `json:"minimum_bid_increment"`
	AuctionStartTime    string  `json:"auction_start_time"`
	AuctionEndTime      string  `json:"auction_end_time"`
	Status              string  `json:"status"`
	IsClosed            bool    `json:"is_closed"`
	Winner              *string `json:"winner"`
	WinningBid          *string `json:"winning_bid"`
	BidCount            int     `json:"bid_count"`
	HighestBidAmount    float64 `json:"highest_bid_amount"`
}

type CloseBiddingResponse struct {
	AuctionID string `json:"auction_id"`
}

type FinalizeResponse struct {
	AuctionID        string  `json:"auction_id"`
	Winner           *string `json:"winner"`
	WinningBidAmount float64 `json:"winning_bid_amount"`
}

type StatusResponse struct {
	AuctionID string `json:"auction_id"`
	Status    string `json:"status"`
}
