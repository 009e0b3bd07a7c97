package auctionerrors

import "errors"

// Storage-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrConflict        = errors.New("leading bid changed concurrently")
	ErrAlreadyClosed   = errors.New("auction already closed")
)

// business logic errors
var (
	ErrInvalidBid     = errors.New("invalid bid")
	ErrInvalidAuction = errors.New("invalid auction")
	ErrBidTooLow      = errors.New("bid amount too low")
	ErrAuctionClosed  = errors.New("auction is closed")
	ErrRetryExhausted = errors.New("bid retries exhausted, try again")
)
