package notify

import (
	"auction-house/utils"
)

// Notifier receives fire-and-forget events from the bidding core. Delivery
// problems are an implementation concern; nothing here may block or fail a
// bid admission or an auction closure.
type Notifier interface {
	BidAdmitted(auctionID, bidderID string, amount float64)
	AuctionResolved(auctionID string, winnerID *string, finalAmount float64)
}

// LogNotifier publishes events to the application log. It stands in for the
// external activity/notification collaborator in deployments that have none.
type LogNotifier struct{}

// BidAdmitted reports a successfully admitted bid.
func (LogNotifier) BidAdmitted(auctionID, bidderID string, amount float64) {
	utils.Info("event: bid admitted", map[string]any{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
		"amount":     amount,
	})
}

// AuctionResolved reports a finalized auction.
func (LogNotifier) AuctionResolved(auctionID string, winnerID *string, finalAmount float64) {
	winner := "none"
	if winnerID != nil {
		winner = *winnerID
	}
	utils.Info("event: auction resolved", map[string]any{
		"auction_id":   auctionID,
		"winner_id":    winner,
		"final_amount": finalAmount,
	})
}
