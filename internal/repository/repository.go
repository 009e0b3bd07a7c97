package repository

//go:generate mockgen -source=repository.go -destination=mock.go -package=repository

import (
	"time"

	model "auction-house/internal/models"
)

// AuctionLedger is the durable record of auction state and the single
// point that answers "is this auction still open, and what is its current
// leading bid". Per-auction serialization happens entirely through
// TryAdvanceLeadingBid's conditional-write contract; callers never hold
// locks of their own.
type AuctionLedger interface {
	// CreateAuction persists a new auction. The caller supplies a fully
	// populated record with Status = OPEN.
	CreateAuction(a model.Auction) error

	// GetAuction returns the auction or ErrAuctionNotFound.
	GetAuction(auctionID string) (model.Auction, error)

	// TryAdvanceLeadingBid conditionally moves the leading bid forward.
	// It succeeds only if the auction is still OPEN and its stored leading
	// amount still equals expectedPrior; otherwise it returns ErrConflict
	// so the caller can re-read and re-validate.
	TryAdvanceLeadingBid(auctionID string, amount float64, bidderID string, expectedPrior float64) error

	// CloseAuction transitions an OPEN auction to its terminal state:
	// CLOSED_WITH_WINNER when winnerID is non-nil, CLOSED_NO_BIDS when nil.
	// A second call returns ErrAlreadyClosed and changes nothing, so
	// concurrent resolver replicas assign at most one winner.
	CloseAuction(auctionID string, winnerID *string) error

	// ListExpiredOpen returns every auction that is still OPEN but whose
	// end time is at or before now.
	ListExpiredOpen(now time.Time) ([]model.Auction, error)
}

// BidStore is the append-only log of every bid ever admitted. Records are
// never mutated or deleted; the ledger, not this log, is authoritative for
// the current leader while an auction is open.
type BidStore interface {
	AppendBid(bid model.Bid) error

	// HighestBidFor returns the maximum-amount bid for the auction, ties
	// broken by earliest PlacedAt, or ErrNoBids.
	HighestBidFor(auctionID string) (model.Bid, error)

	// FindByBidderAndAuction returns the bidder's most recent bid on the
	// auction, or ErrNoBids. Used to report a bidder's prior standing,
	// not to restrict re-bidding.
	FindByBidderAndAuction(auctionID, bidderID string) (model.Bid, error)

	GetBidsByAuction(auctionID string) ([]model.Bid, error)
	GetBidsByBidder(bidderID string) ([]model.Bid, error)
}
