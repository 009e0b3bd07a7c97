package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	bidding "auction-house/internal/biddingService"
	"auction-house/internal/clock"
	"auction-house/internal/lifecycle"
	model "auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/internal/repository"
	"auction-house/internal/server"

	"github.com/gin-gonic/gin"
)

// testEnv wires the full stack on in-memory stores with a controllable clock,
// so tests can place bids over HTTP, move time forward and trigger resolution
// passes deterministically.
type testEnv struct {
	router   *gin.Engine
	ledger   *repository.MemoryLedger
	bids     *repository.MemoryBidStore
	clock    *clock.Mock
	resolver *lifecycle.Resolver
}

// SetupTestEnv initializes the router with in-memory stores for integration testing.
func SetupTestEnv(auctions ...model.Auction) *testEnv {
	gin.SetMode(gin.TestMode)

	ledger := repository.NewMemoryLedger()
	bids := repository.NewMemoryBidStore()
	clk := &clock.Mock{T: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	notifier := notify.LogNotifier{}

	for _, auction := range auctions {
		if err := ledger.CreateAuction(auction); err != nil {
			panic(err)
		}
	}

	service := bidding.NewBiddingService(ledger, bids, notifier, clk, bidding.DefaultMaxAttempts)
	resolver := lifecycle.NewResolver(ledger, bids, notifier, clk, lifecycle.DefaultInterval)

	return &testEnv{
		router:   server.SetupRouter(service),
		ledger:   ledger,
		bids:     bids,
		clock:    clk,
		resolver: resolver,
	}
}

// openAuction builds an OPEN auction ending one hour after the test clock start.
func openAuction(auctionID string, startingPrice float64) model.Auction {
	return model.Auction{
		AuctionID:     auctionID,
		SellerID:      "seller1",
		Title:         "title " + auctionID,
		StartingPrice: startingPrice,
		EndsAt:        time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC),
		Status:        model.StatusOpen,
	}
}

// ExecuteRequestAndParse executes an HTTP request on the env's router and
// parses the response envelope. Created resources are unwrapped to their data
// object for convenience.
func (env *testEnv) ExecuteRequestAndParse(t *testing.T, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	case nil:
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	env.router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}

		if w.Code == 201 {
			resp = resp["data"].(map[string]any)
		}
	}

	return resp, w
}
