package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var bidColumns = []string{"bid_id", "auction_id", "bidder_id", "amount", "placed_at"}

// BidStore implements repository.BidStore on Postgres. Rows are only ever
// inserted; no UPDATE or DELETE statements exist against the bids table.
type BidStore struct {
	db *sqlx.DB
}

// NewBidStore returns a Postgres-backed bid store.
func NewBidStore(db *sqlx.DB) *BidStore {
	return &BidStore{db: db}
}

// AppendBid records an immutable bid.
func (s *BidStore) AppendBid(bid model.Bid) error {
	if bid.BidID == "" || bid.AuctionID == "" || bid.BidderID == "" {
		return fmt.Errorf("append bid: %w - missing bid, auction or bidder ID", auctionerrors.ErrInvalidBid)
	}

	query, args, err := builder.
		Insert("bids").
		Columns(bidColumns...).
		Values(bid.BidID, bid.AuctionID, bid.BidderID, bid.Amount, bid.PlacedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("append bid %s: %w", bid.BidID, err)
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("append bid %s: %w", bid.BidID, err)
	}
	return nil
}

// HighestBidFor returns the maximum-amount bid for an auction, ties broken
// by earliest placement time. Served by the (auction_id, amount DESC) index.
func (s *BidStore) HighestBidFor(auctionID string) (model.Bid, error) {
	query, args, err := builder.
		Select(bidColumns...).
		From("bids").
		Where(sq.Eq{"auction_id": auctionID}).
		OrderBy("amount DESC", "placed_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return model.Bid{}, fmt.Errorf("highest bid for auction %s: %w", auctionID, err)
	}

	var bid model.Bid
	if err := s.db.Get(&bid, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Bid{}, fmt.Errorf("highest bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
		}
		return model.Bid{}, fmt.Errorf("highest bid for auction %s: %w", auctionID, err)
	}
	return bid, nil
}

// FindByBidderAndAuction returns the bidder's most recent bid on an auction.
func (s *BidStore) FindByBidderAndAuction(auctionID, bidderID string) (model.Bid, error) {
	query, args, err := builder.
		Select(bidColumns...).
		From("bids").
		Where(sq.Eq{"auction_id": auctionID, "bidder_id": bidderID}).
		OrderBy("placed_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return model.Bid{}, fmt.Errorf("find bid by bidder %s on auction %s: %w", bidderID, auctionID, err)
	}

	var bid model.Bid
	if err := s.db.Get(&bid, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Bid{}, fmt.Errorf("find bid by bidder %s on auction %s: %w", bidderID, auctionID, auctionerrors.ErrNoBids)
		}
		return model.Bid{}, fmt.Errorf("find bid by bidder %s on auction %s: %w", bidderID, auctionID, err)
	}
	return bid, nil
}

// GetBidsByAuction returns all bids for an auction in placement order.
func (s *BidStore) GetBidsByAuction(auctionID string) ([]model.Bid, error) {
	bids, err := s.listBids(sq.Eq{"auction_id": auctionID})
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return bids, nil
}

// GetBidsByBidder returns all bids a bidder has placed, across auctions.
func (s *BidStore) GetBidsByBidder(bidderID string) ([]model.Bid, error) {
	bids, err := s.listBids(sq.Eq{"bidder_id": bidderID})
	if err != nil {
		return nil, fmt.Errorf("get bids for bidder %s: %w", bidderID, err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for bidder %s: %w", bidderID, auctionerrors.ErrNoBids)
	}
	return bids, nil
}

func (s *BidStore) listBids(where sq.Eq) ([]model.Bid, error) {
	query, args, err := builder.
		Select(bidColumns...).
		From("bids").
		Where(where).
		OrderBy("placed_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var bids []model.Bid
	if err := s.db.Select(&bids, query, args...); err != nil {
		return nil, err
	}
	return bids, nil
}
