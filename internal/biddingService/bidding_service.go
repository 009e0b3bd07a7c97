package bidding

import (
	"errors"
	"fmt"
	"math"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/clock"
	"auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// DefaultMaxAttempts bounds the validate-and-advance retry loop when
// concurrent bidders race on the same auction.
const DefaultMaxAttempts = 5

// BiddingService is the sole entry point for placing bids. It enforces all
// admission rules and performs the atomic leading-bid advance against the
// ledger; request handlers must never compare amounts themselves.
type BiddingService struct {
	ledger      repository.AuctionLedger
	bids        repository.BidStore
	notifier    notify.Notifier
	clock       clock.Clock
	maxAttempts int
}

// NewBiddingService creates a new BiddingService instance. A non-positive
// maxAttempts falls back to DefaultMaxAttempts.
func NewBiddingService(ledger repository.AuctionLedger, bids repository.BidStore, notifier notify.Notifier, clk clock.Clock, maxAttempts int) *BiddingService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &BiddingService{
		ledger:      ledger,
		bids:        bids,
		notifier:    notifier,
		clock:       clk,
		maxAttempts: maxAttempts,
	}
}

// PlaceBid validates and admits a bid against the auction's current state.
//
// A naive read-then-write here loses updates when two bidders read the same
// stale leading amount, so admission runs as a bounded loop: read the ledger,
// validate against what was read, then advance the leading bid conditionally
// on the read amount being unchanged. A conflict means someone else was
// admitted in between; the bid is re-validated against the new leader rather
// than silently dropped. The ledger write lands before the bid-log append so
// a crash between the two leaves the ledger authoritative.
func (s *BiddingService) PlaceBid(auctionID, bidderID string, amount float64) (models.Bid, error) {
	if err := validateBidInput(auctionID, bidderID, amount); err != nil {
		return models.Bid{}, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		auction, err := s.ledger.GetAuction(auctionID)
		if err != nil {
			return models.Bid{}, fmt.Errorf("service: failed to read auction %s: %w", auctionID, err)
		}

		now := s.clock.Now()
		if !auction.Open(now) {
			return models.Bid{}, fmt.Errorf("service: %w - auction %s no longer accepts bids", auctionerrors.ErrAuctionClosed, auctionID)
		}

		if floor := math.Max(auction.LeadingBidAmount, auction.StartingPrice); amount <= floor {
			return models.Bid{}, fmt.Errorf("service: %w - current leading amount is %.2f", auctionerrors.ErrBidTooLow, floor)
		}

		err = s.ledger.TryAdvanceLeadingBid(auctionID, amount, bidderID, auction.LeadingBidAmount)
		if errors.Is(err, auctionerrors.ErrConflict) {
			utils.Info("leading bid advanced concurrently, revalidating", map[string]any{
				"auction_id": auctionID,
				"bidder_id":  bidderID,
				"attempt":    attempt,
			})
			continue
		}
		if err != nil {
			return models.Bid{}, fmt.Errorf("service: failed to advance leading bid on auction %s: %w", auctionID, err)
		}

		bid := models.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			PlacedAt:  now.UTC(),
		}
		if err := s.bids.AppendBid(bid); err != nil {
			// The ledger already carries the new leader; the bid log is an
			// audit record, not the source of truth while the auction is open.
			utils.Error("failed to append admitted bid to bid log", map[string]any{
				"auction_id": auctionID,
				"bidder_id":  bidderID,
				"amount":     amount,
				"error":      err.Error(),
			})
		}

		s.notifier.BidAdmitted(auctionID, bidderID, amount)
		return bid, nil
	}

	return models.Bid{}, fmt.Errorf("service: %w - auction %s saw %d conflicting admissions", auctionerrors.ErrRetryExhausted, auctionID, s.maxAttempts)
}

// validateBidInput checks input validity before any storage read.
func validateBidInput(auctionID, bidderID string, amount float64) error {
	if auctionID == "" || bidderID == "" {
		return fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidBid)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("service: %w - amount must be a finite number", auctionerrors.ErrInvalidBid)
	}
	if amount <= 0 {
		return fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}
	return nil
}

// CreateAuction lists a new auction. Descriptive fields cannot be edited
// afterwards; there is deliberately no update path for them.
func (s *BiddingService) CreateAuction(sellerID, title, description, imageRef string, startingPrice float64, endsAt time.Time) (models.Auction, error) {
	if sellerID == "" || title == "" {
		return models.Auction{}, fmt.Errorf("service: %w - missing sellerID or title", auctionerrors.ErrInvalidAuction)
	}
	if math.IsNaN(startingPrice) || math.IsInf(startingPrice, 0) || startingPrice <= 0 {
		return models.Auction{}, fmt.Errorf("service: %w - starting price must be a positive finite number", auctionerrors.ErrInvalidAuction)
	}
	now := s.clock.Now()
	if !endsAt.After(now) {
		return models.Auction{}, fmt.Errorf("service: %w - end time must be in the future", auctionerrors.ErrInvalidAuction)
	}

	auction := models.Auction{
		AuctionID:     utils.GenerateID(),
		SellerID:      sellerID,
		Title:         title,
		Description:   description,
		ImageRef:      imageRef,
		StartingPrice: startingPrice,
		EndsAt:        endsAt.UTC(),
		Status:        models.StatusOpen,
		CreatedAt:     now.UTC(),
	}
	if err := s.ledger.CreateAuction(auction); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction by seller %s: %w", sellerID, err)
	}
	return auction, nil
}

// GetAuction returns a single auction for display.
func (s *BiddingService) GetAuction(auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}

	auction, err := s.ledger.GetAuction(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// GetBidsForAuction returns all bids placed on an auction.
func (s *BiddingService) GetBidsForAuction(auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}
	if _, err := s.ledger.GetAuction(auctionID); err != nil {
		return nil, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}

	bids, err := s.bids.GetBidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// GetWinningBid returns the highest bid for an auction, ties broken by
// earliest placement.
func (s *BiddingService) GetWinningBid(auctionID string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}
	if _, err := s.ledger.GetAuction(auctionID); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}

	winningBid, err := s.bids.HighestBidFor(auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get winning bid for auction %s: %w", auctionID, err)
	}
	return winningBid, nil
}

// GetBidsByBidder returns all bids a bidder has placed across auctions.
func (s *BiddingService) GetBidsByBidder(bidderID string) ([]models.Bid, error) {
	if bidderID == "" {
		return nil, fmt.Errorf("service: %w - empty bidder ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.bids.GetBidsByBidder(bidderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for bidder %s: %w", bidderID, err)
	}
	return bids, nil
}
