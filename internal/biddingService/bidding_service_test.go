package bidding

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/clock"
	model "auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures fire-and-forget events for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	admitted []string
	resolved []string
}

func (n *recordingNotifier) BidAdmitted(auctionID, bidderID string, amount float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admitted = append(n.admitted, fmt.Sprintf("%s/%s/%.0f", auctionID, bidderID, amount))
}

func (n *recordingNotifier) AuctionResolved(auctionID string, winnerID *string, finalAmount float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	winner := "none"
	if winnerID != nil {
		winner = *winnerID
	}
	n.resolved = append(n.resolved, fmt.Sprintf("%s/%s/%.0f", auctionID, winner, finalAmount))
}

func openAuction(auctionID string, startingPrice, leading float64, endsAt time.Time) model.Auction {
	a := model.Auction{
		AuctionID:        auctionID,
		SellerID:         "seller1",
		Title:            "title1",
		StartingPrice:    startingPrice,
		EndsAt:           endsAt,
		LeadingBidAmount: leading,
		Status:           model.StatusOpen,
	}
	if leading > 0 {
		bidder := "prior-bidder"
		a.LeadingBidderID = &bidder
	}
	return a
}

// Tests PlaceBid validation and the single-pass admission path
func TestBiddingService_PlaceBid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := repository.NewMockAuctionLedger(ctrl)
	mockBids := repository.NewMockBidStore(ctrl)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clk := &clock.Mock{T: now}
	service := NewBiddingService(mockLedger, mockBids, notify.LogNotifier{}, clk, DefaultMaxAttempts)

	endsAt := now.Add(time.Hour)

	// Table-driven test cases
	tests := []struct {
		name          string
		auctionID     string
		bidderID      string
		amount        float64
		mockSetup     func()
		expectSuccess bool
		expectedError error
	}{
		{
			name:      "valid_first_bid",
			auctionID: "auction1",
			bidderID:  "user1",
			amount:    150,
			mockSetup: func() {
				mockLedger.EXPECT().GetAuction("auction1").Return(openAuction("auction1", 100, 0, endsAt), nil)
				mockLedger.EXPECT().TryAdvanceLeadingBid("auction1", 150.0, "user1", 0.0).Return(nil)
				mockBids.EXPECT().AppendBid(gomock.Any()).Return(nil)
			},
			expectSuccess: true,
		},
		{
			name:      "valid_outbid",
			auctionID: "auction2",
			bidderID:  "user2",
			amount:    250,
			mockSetup: func() {
				mockLedger.EXPECT().GetAuction("auction2").Return(openAuction("auction2", 100, 200, endsAt), nil)
				mockLedger.EXPECT().TryAdvanceLeadingBid("auction2", 250.0, "user2", 200.0).Return(nil)
				mockBids.EXPECT().AppendBid(gomock.Any()).Return(nil)
			},
			expectSuccess: true,
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			bidderID:      "user1",
			amount:        50,
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "empty_bidderID",
			auctionID:     "auction1",
			bidderID:      "",
			amount:        50,
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "zero_amount",
			auctionID:     "auction1",
			bidderID:      "user1",
			amount:        0,
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "negative_amount",
			auctionID:     "auction1",
			bidderID:      "user1",
			amount:        -50,
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "nan_amount",
			auctionID:     "auction1",
			bidderID:      "user1",
			amount:        math.NaN(),
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "infinite_amount",
			auctionID:     "auction1",
			bidderID:      "user1",
			amount:        math.Inf(1),
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:      "auction_not_found",
			auctionID: "auctionX",
			bidderID:  "user1",
			amount:    150,
			mockSetup: func() {
				mockLedger.EXPECT().GetAuction("auctionX").Return(model.Auction{}, auctionerrors.ErrAuctionNotFound)
			},
			expectedError: auctionerrors.ErrAuctionNotFound,
		},
		{
			name:      "auction_status_closed",
			auctionID: "auction3",
			bidderID:  "user1",
			amount:    150,
			mockSetup: func() {
				a := openAuction("auction3", 100, 120, endsAt)
				a.Status = model.StatusClosedWithWinner
				mockLedger.EXPECT().GetAuction("auction3").Return(a, nil)
			},
			expectedError: auctionerrors.ErrAuctionClosed,
		},
		{
			name:      "auction_past_end_time_not_yet_resolved",
			auctionID: "auction4",
			bidderID:  "user1",
			amount:    999,
			mockSetup: func() {
				// Still OPEN in the ledger, but its end time has passed
				mockLedger.EXPECT().GetAuction("auction4").Return(openAuction("auction4", 100, 120, now.Add(-time.Second)), nil)
			},
			expectedError: auctionerrors.ErrAuctionClosed,
		},
		{
			name:      "bid_below_starting_price",
			auctionID: "auction5",
			bidderID:  "user1",
			amount:    80,
			mockSetup: func() {
				mockLedger.EXPECT().GetAuction("auction5").Return(openAuction("auction5", 100, 0, endsAt), nil)
			},
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:      "bid_equal_to_starting_price",
			auctionID: "auction5b",
			bidderID:  "user1",
			amount:    100,
			mockSetup: func() {
				mockLedger.EXPECT().GetAuction("auction5b").Return(openAuction("auction5b", 100, 0, endsAt), nil)
			},
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:      "bid_equal_to_leader",
			auctionID: "auction6",
			bidderID:  "user1",
			amount:    200,
			mockSetup: func() {
				mockLedger.EXPECT().GetAuction("auction6").Return(openAuction("auction6", 100, 200, endsAt), nil)
			},
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:      "ledger_fails",
			auctionID: "auction7",
			bidderID:  "user1",
			amount:    300,
			mockSetup: func() {
				mockLedger.EXPECT().GetAuction("auction7").Return(openAuction("auction7", 100, 200, endsAt), nil)
				mockLedger.EXPECT().TryAdvanceLeadingBid("auction7", 300.0, "user1", 200.0).Return(errors.New("storage down"))
			},
			expectedError: nil, // Wrapped storage error, no sentinel to match
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			bid, err := service.PlaceBid(tc.auctionID, tc.bidderID, tc.amount)

			if tc.expectSuccess {
				require.NoError(t, err)

				// Validate generated BidID
				require.NotEmpty(t, bid.BidID)
				_, parseErr := uuid.Parse(bid.BidID)
				require.NoError(t, parseErr, "BidID should be a valid UUID")

				// Validate bid fields
				require.Equal(t, tc.auctionID, bid.AuctionID)
				require.Equal(t, tc.bidderID, bid.BidderID)
				require.Equal(t, tc.amount, bid.Amount)
				require.Equal(t, now, bid.PlacedAt)
			} else {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
			}
		})
	}
}

// Tests the read-validate-advance retry loop against conflicting admissions
func TestBiddingService_PlaceBid_RetryLoop(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	endsAt := now.Add(time.Hour)

	t.Run("conflict_then_success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockLedger := repository.NewMockAuctionLedger(ctrl)
		mockBids := repository.NewMockBidStore(ctrl)
		service := NewBiddingService(mockLedger, mockBids, notify.LogNotifier{}, &clock.Mock{T: now}, DefaultMaxAttempts)

		gomock.InOrder(
			// First pass reads leader 100 and loses the race
			mockLedger.EXPECT().GetAuction("auction1").Return(openAuction("auction1", 50, 100, endsAt), nil),
			mockLedger.EXPECT().TryAdvanceLeadingBid("auction1", 300.0, "user1", 100.0).Return(auctionerrors.ErrConflict),
			// Second pass re-reads the new leader 200 and wins
			mockLedger.EXPECT().GetAuction("auction1").Return(openAuction("auction1", 50, 200, endsAt), nil),
			mockLedger.EXPECT().TryAdvanceLeadingBid("auction1", 300.0, "user1", 200.0).Return(nil),
			mockBids.EXPECT().AppendBid(gomock.Any()).Return(nil),
		)

		bid, err := service.PlaceBid("auction1", "user1", 300)
		require.NoError(t, err)
		require.Equal(t, 300.0, bid.Amount)
	})

	t.Run("conflict_then_too_low_against_new_leader", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockLedger := repository.NewMockAuctionLedger(ctrl)
		mockBids := repository.NewMockBidStore(ctrl)
		service := NewBiddingService(mockLedger, mockBids, notify.LogNotifier{}, &clock.Mock{T: now}, DefaultMaxAttempts)

		gomock.InOrder(
			mockLedger.EXPECT().GetAuction("auction1").Return(openAuction("auction1", 50, 100, endsAt), nil),
			mockLedger.EXPECT().TryAdvanceLeadingBid("auction1", 150.0, "user1", 100.0).Return(auctionerrors.ErrConflict),
			// The concurrent admission pushed the leader past this bid
			mockLedger.EXPECT().GetAuction("auction1").Return(openAuction("auction1", 50, 200, endsAt), nil),
		)

		_, err := service.PlaceBid("auction1", "user1", 150)
		require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)
	})

	t.Run("conflict_then_closed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockLedger := repository.NewMockAuctionLedger(ctrl)
		mockBids := repository.NewMockBidStore(ctrl)
		service := NewBiddingService(mockLedger, mockBids, notify.LogNotifier{}, &clock.Mock{T: now}, DefaultMaxAttempts)

		closed := openAuction("auction1", 50, 200, endsAt)
		closed.Status = model.StatusClosedWithWinner

		gomock.InOrder(
			mockLedger.EXPECT().GetAuction("auction1").Return(openAuction("auction1", 50, 100, endsAt), nil),
			mockLedger.EXPECT().TryAdvanceLeadingBid("auction1", 500.0, "user1", 100.0).Return(auctionerrors.ErrConflict),
			// Resolved between the read and the retry
			mockLedger.EXPECT().GetAuction("auction1").Return(closed, nil),
		)

		_, err := service.PlaceBid("auction1", "user1", 500)
		require.ErrorIs(t, err, auctionerrors.ErrAuctionClosed)
	})

	t.Run("retries_exhausted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockLedger := repository.NewMockAuctionLedger(ctrl)
		mockBids := repository.NewMockBidStore(ctrl)
		maxAttempts := 3
		service := NewBiddingService(mockLedger, mockBids, notify.LogNotifier{}, &clock.Mock{T: now}, maxAttempts)

		mockLedger.EXPECT().GetAuction("auction1").Return(openAuction("auction1", 50, 100, endsAt), nil).Times(maxAttempts)
		mockLedger.EXPECT().TryAdvanceLeadingBid("auction1", 500.0, "user1", 100.0).Return(auctionerrors.ErrConflict).Times(maxAttempts)

		_, err := service.PlaceBid("auction1", "user1", 500)
		require.ErrorIs(t, err, auctionerrors.ErrRetryExhausted)
	})

	t.Run("bid_log_append_failure_does_not_fail_admission", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockLedger := repository.NewMockAuctionLedger(ctrl)
		mockBids := repository.NewMockBidStore(ctrl)
		notifier := &recordingNotifier{}
		service := NewBiddingService(mockLedger, mockBids, notifier, &clock.Mock{T: now}, DefaultMaxAttempts)

		mockLedger.EXPECT().GetAuction("auction1").Return(openAuction("auction1", 50, 100, endsAt), nil)
		mockLedger.EXPECT().TryAdvanceLeadingBid("auction1", 200.0, "user1", 100.0).Return(nil)
		mockBids.EXPECT().AppendBid(gomock.Any()).Return(errors.New("bid log unavailable"))

		// The ledger already carries the new leader, so the bid stands
		bid, err := service.PlaceBid("auction1", "user1", 200)
		require.NoError(t, err)
		require.Equal(t, 200.0, bid.Amount)
		require.Equal(t, []string{"auction1/user1/200"}, notifier.admitted)
	})
}

// No lost updates: concurrent bids with distinct amounts on one open auction
// end with the leader at the maximum submitted amount.
func TestBiddingService_PlaceBid_NoLostUpdates(t *testing.T) {
	t.Parallel()

	ledger := repository.NewMemoryLedger()
	bids := repository.NewMemoryBidStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	service := NewBiddingService(ledger, bids, notify.LogNotifier{}, &clock.Mock{T: now}, 100)

	auction := openAuction("auction1", 100, 0, now.Add(time.Hour))
	require.NoError(t, ledger.CreateAuction(auction))

	const bidders = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	var failures []error

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			amount := float64(101 + i)
			_, err := service.PlaceBid("auction1", fmt.Sprintf("user-%d", i), amount)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				admitted++
			} else {
				failures = append(failures, err)
			}
		}()
	}
	wg.Wait()

	// Losers must be rejected against the now-current leader, never lost
	for _, err := range failures {
		require.True(t, errors.Is(err, auctionerrors.ErrBidTooLow) || errors.Is(err, auctionerrors.ErrRetryExhausted),
			"unexpected error: %v", err)
	}

	final, err := ledger.GetAuction("auction1")
	require.NoError(t, err)
	require.Equal(t, float64(100+bidders), final.LeadingBidAmount, "final leader must be the maximum submitted amount")
	require.NotNil(t, final.LeadingBidderID)
	require.Equal(t, fmt.Sprintf("user-%d", bidders-1), *final.LeadingBidderID)

	// Every admitted leader advance is recorded in the bid log
	recorded, err := bids.GetBidsByAuction("auction1")
	require.NoError(t, err)
	require.Len(t, recorded, admitted)
	highest, err := bids.HighestBidFor("auction1")
	require.NoError(t, err)
	require.Equal(t, final.LeadingBidAmount, highest.Amount)
}

// Tests CreateAuction
func TestBiddingService_CreateAuction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := repository.NewMockAuctionLedger(ctrl)
	mockBids := repository.NewMockBidStore(ctrl)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	service := NewBiddingService(mockLedger, mockBids, notify.LogNotifier{}, &clock.Mock{T: now}, DefaultMaxAttempts)

	tests := []struct {
		name          string
		sellerID      string
		title         string
		startingPrice float64
		endsAt        time.Time
		mockSetup     func()
		expectedError error
	}{
		{
			name:          "valid_auction",
			sellerID:      "seller1",
			title:         "vintage radio",
			startingPrice: 100,
			endsAt:        now.Add(24 * time.Hour),
			mockSetup: func() {
				mockLedger.EXPECT().CreateAuction(gomock.Any()).Return(nil)
			},
		},
		{
			name:          "missing_seller",
			sellerID:      "",
			title:         "vintage radio",
			startingPrice: 100,
			endsAt:        now.Add(24 * time.Hour),
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidAuction,
		},
		{
			name:          "missing_title",
			sellerID:      "seller1",
			title:         "",
			startingPrice: 100,
			endsAt:        now.Add(24 * time.Hour),
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidAuction,
		},
		{
			name:          "non_positive_starting_price",
			sellerID:      "seller1",
			title:         "vintage radio",
			startingPrice: 0,
			endsAt:        now.Add(24 * time.Hour),
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidAuction,
		},
		{
			name:          "end_time_in_the_past",
			sellerID:      "seller1",
			title:         "vintage radio",
			startingPrice: 100,
			endsAt:        now.Add(-time.Minute),
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidAuction,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			auction, err := service.CreateAuction(tc.sellerID, tc.title, "desc", "", tc.startingPrice, tc.endsAt)

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
			} else {
				require.NoError(t, err)
				require.NotEmpty(t, auction.AuctionID)
				_, parseErr := uuid.Parse(auction.AuctionID)
				require.NoError(t, parseErr, "AuctionID should be a valid UUID")
				require.Equal(t, model.StatusOpen, auction.Status)
				require.Equal(t, 0.0, auction.LeadingBidAmount)
				require.Nil(t, auction.WinnerID)
			}
		})
	}
}

// Tests GetWinningBid
func TestBiddingService_GetWinningBid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := repository.NewMockAuctionLedger(ctrl)
	mockBids := repository.NewMockBidStore(ctrl)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	service := NewBiddingService(mockLedger, mockBids, notify.LogNotifier{}, &clock.Mock{T: now}, DefaultMaxAttempts)

	tests := []struct {
		name        string
		auctionID   string
		mockSetup   func()
		expectError bool
	}{
		{
			name:      "auction_with_winning_bid",
			auctionID: "auction1",
			mockSetup: func() {
				mockLedger.EXPECT().GetAuction("auction1").Return(openAuction("auction1", 100, 150, now.Add(time.Hour)), nil)
				mockBids.EXPECT().HighestBidFor("auction1").Return(model.Bid{
					BidID:     uuid.NewString(),
					AuctionID: "auction1",
					BidderID:  "user1",
					Amount:    150,
					PlacedAt:  now,
				}, nil)
			},
		},
		{
			name:        "empty_auctionID",
			auctionID:   "",
			mockSetup:   func() {},
			expectError: true,
		},
		{
			name:      "auction_not_found",
			auctionID: "auctionX",
			mockSetup: func() {
				mockLedger.EXPECT().GetAuction("auctionX").Return(model.Auction{}, auctionerrors.ErrAuctionNotFound)
			},
			expectError: true,
		},
		{
			name:      "auction_without_bids",
			auctionID: "auction2",
			mockSetup: func() {
				mockLedger.EXPECT().GetAuction("auction2").Return(openAuction("auction2", 100, 0, now.Add(time.Hour)), nil)
				mockBids.EXPECT().HighestBidFor("auction2").Return(model.Bid{}, auctionerrors.ErrNoBids)
			},
			expectError: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			bid, err := service.GetWinningBid(tc.auctionID)

			if tc.expectError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.auctionID, bid.AuctionID)
				require.Equal(t, "user1", bid.BidderID)
				require.Equal(t, 150.0, bid.Amount)
			}
		})
	}
}

// Tests GetBidsByBidder
func TestBiddingService_GetBidsByBidder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := repository.NewMockAuctionLedger(ctrl)
	mockBids := repository.NewMockBidStore(ctrl)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	service := NewBiddingService(mockLedger, mockBids, notify.LogNotifier{}, &clock.Mock{T: now}, DefaultMaxAttempts)

	bidsExample := []model.Bid{
		{BidID: "bid1", AuctionID: "auction1", BidderID: "user1", Amount: 100, PlacedAt: now},
		{BidID: "bid2", AuctionID: "auction2", BidderID: "user1", Amount: 150, PlacedAt: now},
	}

	tests := []struct {
		name          string
		bidderID      string
		mockSetup     func()
		expectedError error
		expectedBids  []model.Bid
	}{
		{
			name:     "bidder_with_bids",
			bidderID: "user1",
			mockSetup: func() {
				mockBids.EXPECT().GetBidsByBidder("user1").Return(bidsExample, nil)
			},
			expectedBids: bidsExample,
		},
		{
			name:          "empty_bidderID",
			bidderID:      "",
			mockSetup:     func() {},
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:     "store_error",
			bidderID: "user3",
			mockSetup: func() {
				mockBids.EXPECT().GetBidsByBidder("user3").Return(nil, errors.New("db failure"))
			},
			expectedError: nil, // Wrapped storage error, no sentinel to match
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()

			bids, err := service.GetBidsByBidder(tc.bidderID)

			if tc.expectedBids != nil {
				require.NoError(t, err)
				require.Equal(t, tc.expectedBids, bids)
			} else {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
			}
		})
	}
}
