package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/clock"
	"auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// DefaultInterval is how often the resolver scans for expired auctions.
const DefaultInterval = 60 * time.Second

// Resolver finalizes auctions whose end time has passed, exactly once each,
// independently of bidding traffic. It keeps no state between passes, so any
// number of replicas may run concurrently; the ledger's conditional closure
// guarantees a single effective winner assignment.
type Resolver struct {
	ledger   repository.AuctionLedger
	bids     repository.BidStore
	notifier notify.Notifier
	clock    clock.Clock
	interval time.Duration
}

// NewResolver creates a new Resolver instance. A non-positive interval falls
// back to DefaultInterval.
func NewResolver(ledger repository.AuctionLedger, bids repository.BidStore, notifier notify.Notifier, clk clock.Clock, interval time.Duration) *Resolver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Resolver{
		ledger:   ledger,
		bids:     bids,
		notifier: notifier,
		clock:    clk,
		interval: interval,
	}
}

// RunOnce performs a single resolution pass and returns how many auctions it
// closed. A failure on one auction is logged and skipped so it never blocks
// the rest of the pass; the auction stays OPEN and is retried next tick.
func (r *Resolver) RunOnce() (int, error) {
	expired, err := r.ledger.ListExpiredOpen(r.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("resolver: failed to list expired auctions: %w", err)
	}

	resolved := 0
	for _, auction := range expired {
		if r.resolve(auction) {
			resolved++
		}
	}
	return resolved, nil
}

// resolve closes one expired auction. Returns true only if this call was the
// one that performed the closure.
func (r *Resolver) resolve(auction models.Auction) bool {
	var winnerID *string
	var finalAmount float64

	highest, err := r.bids.HighestBidFor(auction.AuctionID)
	switch {
	case err == nil:
		winnerID = &highest.BidderID
		finalAmount = highest.Amount
	case errors.Is(err, auctionerrors.ErrNoBids):
		// closes as CLOSED_NO_BIDS
	default:
		utils.Error("resolver: failed to read highest bid, retrying next tick", map[string]any{
			"auction_id": auction.AuctionID,
			"error":      err.Error(),
		})
		return false
	}

	err = r.ledger.CloseAuction(auction.AuctionID, winnerID)
	if errors.Is(err, auctionerrors.ErrAlreadyClosed) {
		// Another resolver replica got there first.
		return false
	}
	if err != nil {
		utils.Error("resolver: failed to close auction, retrying next tick", map[string]any{
			"auction_id": auction.AuctionID,
			"error":      err.Error(),
		})
		return false
	}

	fields := map[string]any{
		"auction_id":   auction.AuctionID,
		"final_amount": finalAmount,
	}
	if winnerID != nil {
		fields["winner_id"] = *winnerID
	}
	utils.Info("auction resolved", fields)

	// Closure is final regardless of downstream delivery.
	r.notifier.AuctionResolved(auction.AuctionID, winnerID, finalAmount)
	return true
}

// Run drives RunOnce on a fixed interval until the context is cancelled.
// Deployments with an external scheduler can skip Run and call RunOnce
// directly from their trigger.
func (r *Resolver) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	utils.Info("lifecycle resolver started", map[string]any{"interval": r.interval.String()})
	for {
		select {
		case <-ctx.Done():
			utils.Info("lifecycle resolver stopped", nil)
			return
		case <-ticker.C:
			n, err := r.RunOnce()
			if err != nil {
				utils.Error("resolution pass failed", map[string]any{"error": err.Error()})
				continue
			}
			if n > 0 {
				utils.Info("resolution pass complete", map[string]any{"resolved": n})
			}
		}
	}
}
