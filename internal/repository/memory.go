package repository

import (
	"fmt"
	"sync"
	"time"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"

	"github.com/samber/lo"
)

// MemoryLedger is a concurrency-safe in-memory implementation of AuctionLedger.
// The conditional-write contract is honored under a single mutex, which gives
// the same total ordering of leading-bid advances as a database CAS would.
type MemoryLedger struct {
	mu       sync.RWMutex
	auctions map[string]model.Auction // key: auctionID
}

// NewMemoryLedger creates a new in-memory ledger instance.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		auctions: make(map[string]model.Auction),
	}
}

// CreateAuction persists a new auction record.
func (l *MemoryLedger) CreateAuction(a model.Auction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if a.AuctionID == "" {
		return fmt.Errorf("create auction: %w - missing auction ID", auctionerrors.ErrInvalidAuction)
	}
	if _, ok := l.auctions[a.AuctionID]; ok {
		return fmt.Errorf("create auction %s: %w - duplicate auction ID", a.AuctionID, auctionerrors.ErrInvalidAuction)
	}

	l.auctions[a.AuctionID] = a
	return nil
}

// GetAuction returns the auction with the given ID.
func (l *MemoryLedger) GetAuction(auctionID string) (model.Auction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// TryAdvanceLeadingBid performs the conditional leading-bid update. The
// stored amount must still equal expectedPrior and the auction must still
// be OPEN, otherwise ErrConflict is returned and nothing changes.
func (l *MemoryLedger) TryAdvanceLeadingBid(auctionID string, amount float64, bidderID string, expectedPrior float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.auctions[auctionID]
	if !ok {
		return fmt.Errorf("advance leading bid for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Status != model.StatusOpen || a.LeadingBidAmount != expectedPrior {
		return fmt.Errorf("advance leading bid for auction %s: %w", auctionID, auctionerrors.ErrConflict)
	}

	a.LeadingBidAmount = amount
	a.LeadingBidderID = &bidderID
	l.auctions[auctionID] = a
	return nil
}

// CloseAuction transitions an OPEN auction to its terminal state exactly once.
func (l *MemoryLedger) CloseAuction(auctionID string, winnerID *string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.auctions[auctionID]
	if !ok {
		return fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Status != model.StatusOpen {
		return fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrAlreadyClosed)
	}

	if winnerID != nil {
		a.Status = model.StatusClosedWithWinner
		a.WinnerID = winnerID
	} else {
		a.Status = model.StatusClosedNoBids
	}
	l.auctions[auctionID] = a
	return nil
}

// ListExpiredOpen returns all auctions that are OPEN with ends_at <= now.
func (l *MemoryLedger) ListExpiredOpen(now time.Time) ([]model.Auction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var expired []model.Auction
	for _, a := range l.auctions {
		if a.Status == model.StatusOpen && !a.EndsAt.After(now) {
			expired = append(expired, a)
		}
	}
	return expired, nil
}

// MemoryBidStore is a concurrency-safe in-memory implementation of BidStore.
type MemoryBidStore struct {
	mu        sync.RWMutex
	byAuction map[string][]model.Bid // key: auctionID -> bids in placement order
	byBidder  map[string][]model.Bid // key: bidderID -> bids in placement order
}

// NewMemoryBidStore creates a new in-memory bid store instance.
func NewMemoryBidStore() *MemoryBidStore {
	return &MemoryBidStore{
		byAuction: make(map[string][]model.Bid),
		byBidder:  make(map[string][]model.Bid),
	}
}

// AppendBid records an immutable bid.
func (s *MemoryBidStore) AppendBid(bid model.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bid.BidID == "" || bid.AuctionID == "" || bid.BidderID == "" {
		return fmt.Errorf("append bid: %w - missing bid, auction or bidder ID", auctionerrors.ErrInvalidBid)
	}

	s.byAuction[bid.AuctionID] = append(s.byAuction[bid.AuctionID], bid)
	s.byBidder[bid.BidderID] = append(s.byBidder[bid.BidderID], bid)
	return nil
}

// HighestBidFor returns the maximum-amount bid for an auction, ties broken
// by earliest placement time.
func (s *MemoryBidStore) HighestBidFor(auctionID string) (model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids, ok := s.byAuction[auctionID]
	if !ok || len(bids) == 0 {
		return model.Bid{}, fmt.Errorf("highest bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}

	highest := lo.MaxBy(bids, func(a, b model.Bid) bool {
		return a.Amount > b.Amount || (a.Amount == b.Amount && a.PlacedAt.Before(b.PlacedAt))
	})
	return highest, nil
}

// FindByBidderAndAuction returns the bidder's most recent bid on an auction.
func (s *MemoryBidStore) FindByBidderAndAuction(auctionID, bidderID string) (model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mine := lo.Filter(s.byBidder[bidderID], func(b model.Bid, _ int) bool {
		return b.AuctionID == auctionID
	})
	if len(mine) == 0 {
		return model.Bid{}, fmt.Errorf("find bid by bidder %s on auction %s: %w", bidderID, auctionID, auctionerrors.ErrNoBids)
	}

	latest := lo.MaxBy(mine, func(a, b model.Bid) bool {
		return a.PlacedAt.After(b.PlacedAt)
	})
	return latest, nil
}

// GetBidsByAuction returns all bids for an auction in placement order.
func (s *MemoryBidStore) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids, ok := s.byAuction[auctionID]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return append([]model.Bid(nil), bids...), nil
}

// GetBidsByBidder returns all bids a bidder has placed, across auctions.
func (s *MemoryBidStore) GetBidsByBidder(bidderID string) ([]model.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids, ok := s.byBidder[bidderID]
	if !ok || len(bids) == 0 {
		return nil, fmt.Errorf("get bids for bidder %s: %w", bidderID, auctionerrors.ErrNoBids)
	}
	return append([]model.Bid(nil), bids...), nil
}
