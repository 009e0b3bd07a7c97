package models

import "time"

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	StatusOpen             AuctionStatus = "OPEN"
	StatusClosedNoBids     AuctionStatus = "CLOSED_NO_BIDS"
	StatusClosedWithWinner AuctionStatus = "CLOSED_WITH_WINNER"
)

// Auction represents a single listing and its current bidding state.
// Descriptive fields are immutable once the auction is created; only
// the leading-bid fields, WinnerID and Status ever change, and only
// through the ledger's conditional updates.
type Auction struct {
	AuctionID        string        `json:"auction_id" db:"auction_id"`
	SellerID         string        `json:"seller_id" db:"seller_id"`
	Title            string        `json:"title" db:"title"`
	Description      string        `json:"description" db:"description"`
	ImageRef         string        `json:"image_ref" db:"image_ref"`
	StartingPrice    float64       `json:"starting_price" db:"starting_price"`
	EndsAt           time.Time     `json:"ends_at" db:"ends_at"`
	LeadingBidAmount float64       `json:"leading_bid_amount" db:"leading_bid_amount"`
	LeadingBidderID  *string       `json:"leading_bidder_id" db:"leading_bidder_id"`
	WinnerID         *string       `json:"winner_id" db:"winner_id"`
	Status           AuctionStatus `json:"status" db:"status"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

// Open reports whether the auction still accepts bids at the given instant.
// An auction whose end time has passed counts as closed even if the
// resolver has not finalized it yet.
func (a Auction) Open(now time.Time) bool {
	return a.Status == StatusOpen && now.Before(a.EndsAt)
}

// Bid is an immutable record of one bid placed on an auction.
type Bid struct {
	BidID     string    `json:"bid_id" db:"bid_id"`
	AuctionID string    `json:"auction_id" db:"auction_id"`
	BidderID  string    `json:"bidder_id" db:"bidder_id"`
	Amount    float64   `json:"amount" db:"amount"`
	PlacedAt  time.Time `json:"placed_at" db:"placed_at"`
}
