package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var auctionColumns = []string{
	"auction_id", "seller_id", "title", "description", "image_ref",
	"starting_price", "ends_at", "leading_bid_amount", "leading_bidder_id",
	"winner_id", "status", "created_at",
}

// Ledger implements repository.AuctionLedger on Postgres. Conditional
// updates use single-row UPDATE ... WHERE guards; RowsAffected tells a
// caller whether its compare-and-set won.
type Ledger struct {
	db *sqlx.DB
}

// NewLedger returns a Postgres-backed auction ledger.
func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// CreateAuction persists a new auction record.
func (l *Ledger) CreateAuction(a model.Auction) error {
	if a.AuctionID == "" {
		return fmt.Errorf("create auction: %w - missing auction ID", auctionerrors.ErrInvalidAuction)
	}

	query, args, err := builder.
		Insert("auctions").
		Columns(auctionColumns...).
		Values(a.AuctionID, a.SellerID, a.Title, a.Description, a.ImageRef,
			a.StartingPrice, a.EndsAt, a.LeadingBidAmount, a.LeadingBidderID,
			a.WinnerID, a.Status, a.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("create auction %s: %w", a.AuctionID, err)
	}

	if _, err := l.db.Exec(query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("create auction %s: %w - duplicate auction ID", a.AuctionID, auctionerrors.ErrInvalidAuction)
		}
		return fmt.Errorf("create auction %s: %w", a.AuctionID, err)
	}
	return nil
}

// GetAuction returns the auction with the given ID.
func (l *Ledger) GetAuction(auctionID string) (model.Auction, error) {
	query, args, err := builder.
		Select(auctionColumns...).
		From("auctions").
		Where(sq.Eq{"auction_id": auctionID}).
		ToSql()
	if err != nil {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}

	var a model.Auction
	if err := l.db.Get(&a, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
		}
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, err)
	}
	return a, nil
}

// TryAdvanceLeadingBid performs the conditional leading-bid update. The row
// is touched only while it still matches (OPEN, expectedPrior); a zero
// RowsAffected means another bid was admitted in between.
func (l *Ledger) TryAdvanceLeadingBid(auctionID string, amount float64, bidderID string, expectedPrior float64) error {
	query, args, err := builder.
		Update("auctions").
		Set("leading_bid_amount", amount).
		Set("leading_bidder_id", bidderID).
		Where(sq.Eq{
			"auction_id":         auctionID,
			"status":             model.StatusOpen,
			"leading_bid_amount": expectedPrior,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("advance leading bid for auction %s: %w", auctionID, err)
	}

	res, err := l.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("advance leading bid for auction %s: %w", auctionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if !l.auctionExists(auctionID) {
			return fmt.Errorf("advance leading bid for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
		}
		return fmt.Errorf("advance leading bid for auction %s: %w", auctionID, auctionerrors.ErrConflict)
	}
	return nil
}

// CloseAuction transitions an OPEN auction to its terminal state exactly once.
func (l *Ledger) CloseAuction(auctionID string, winnerID *string) error {
	status := model.StatusClosedNoBids
	if winnerID != nil {
		status = model.StatusClosedWithWinner
	}

	query, args, err := builder.
		Update("auctions").
		Set("status", status).
		Set("winner_id", winnerID).
		Where(sq.Eq{
			"auction_id": auctionID,
			"status":     model.StatusOpen,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("close auction %s: %w", auctionID, err)
	}

	res, err := l.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("close auction %s: %w", auctionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if !l.auctionExists(auctionID) {
			return fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
		}
		return fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrAlreadyClosed)
	}
	return nil
}

// ListExpiredOpen returns all auctions that are OPEN with ends_at <= now.
// Served by the (status, ends_at) index.
func (l *Ledger) ListExpiredOpen(now time.Time) ([]model.Auction, error) {
	query, args, err := builder.
		Select(auctionColumns...).
		From("auctions").
		Where(sq.Eq{"status": model.StatusOpen}).
		Where(sq.LtOrEq{"ends_at": now}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}

	var expired []model.Auction
	if err := l.db.Select(&expired, query, args...); err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}
	return expired, nil
}

func (l *Ledger) auctionExists(auctionID string) bool {
	var exists bool
	err := l.db.Get(&exists, "SELECT EXISTS (SELECT 1 FROM auctions WHERE auction_id = $1)", auctionID)
	return err == nil && exists
}
