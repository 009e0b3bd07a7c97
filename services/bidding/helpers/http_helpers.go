package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message.
// Error messages carry the specific rejection reason (and for too-low bids
// the current leading amount) so clients can resubmit without another read.
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, auctionerrors.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return http.StatusBadRequest, "auction is closed"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrRetryExhausted):
		return http.StatusServiceUnavailable, "bidding is busy, try again"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusOK, "no bids found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// ToBidResponse shapes a bid for the wire.
func ToBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		PlacedAt:  bid.PlacedAt.UTC().Format(time.RFC3339),
	}
}

// ToAuctionResponse shapes an auction for the wire.
func ToAuctionResponse(a model.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:        a.AuctionID,
		SellerID:         a.SellerID,
		Title:            a.Title,
		Description:      a.Description,
		ImageRef:         a.ImageRef,
		StartingPrice:    a.StartingPrice,
		EndsAt:           a.EndsAt.UTC().Format(time.RFC3339),
		LeadingBidAmount: a.LeadingBidAmount,
		LeadingBidderID:  a.LeadingBidderID,
		WinnerID:         a.WinnerID,
		Status:           string(a.Status),
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
