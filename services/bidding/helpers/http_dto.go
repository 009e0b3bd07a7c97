package helpers

import "time"

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string  `json:"auction_id" binding:"required"`
	BidderID  string  `json:"bidder_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID     string  `json:"bid_id"`
	AuctionID string  `json:"auction_id"`
	BidderID  string  `json:"bidder_id"`
	Amount    float64 `json:"amount"`
	PlacedAt  string  `json:"placed_at"`
}

type CreateAuctionRequest struct {
	SellerID      string    `json:"seller_id" binding:"required"`
	Title         string    `json:"title" binding:"required"`
	Description   string    `json:"description"`
	ImageRef      string    `json:"image_ref"`
	StartingPrice float64   `json:"starting_price" binding:"required,gt=0"`
	EndsAt        time.Time `json:"ends_at" binding:"required"`
}

type AuctionResponse struct {
	AuctionID        string  `json:"auction_id"`
	SellerID         string  `json:"seller_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	ImageRef         string  `json:"image_ref"`
	StartingPrice    float64 `json:"starting_price"`
	EndsAt           string  `json:"ends_at"`
	LeadingBidAmount float64 `json:"leading_bid_amount"`
	LeadingBidderID  *string `json:"leading_bidder_id"`
	WinnerID         *string `json:"winner_id"`
	Status           string  `json:"status"`
}
