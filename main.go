package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	bidding "auction-house/internal/biddingService"
	"auction-house/internal/clock"
	"auction-house/internal/config"
	"auction-house/internal/lifecycle"
	"auction-house/internal/notify"
	"auction-house/internal/repository"
	"auction-house/internal/repository/postgres"
	"auction-house/internal/server"
	"auction-house/utils"
)

func main() {
	cfg := config.Load()

	ledger, bids := setupStorage(cfg)

	clk := clock.Real{}
	notifier := notify.LogNotifier{}
	biddingSvc := bidding.NewBiddingService(ledger, bids, notifier, clk, cfg.BidRetryAttempts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ResolverEnabled {
		resolver := lifecycle.NewResolver(ledger, bids, notifier, clk, cfg.ResolverInterval)
		go resolver.Run(ctx)
	}

	router := server.SetupRouter(biddingSvc)

	utils.Info("starting auction server", map[string]any{
		"addr":             cfg.ListenAddr,
		"resolver_enabled": cfg.ResolverEnabled,
		"storage":          storageKind(cfg),
	})
	if err := router.Run(cfg.ListenAddr); err != nil {
		utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
	}
}

// setupStorage selects Postgres when a database URL is configured and the
// in-memory stores otherwise.
func setupStorage(cfg config.Config) (repository.AuctionLedger, repository.BidStore) {
	if cfg.DatabaseURL == "" {
		return repository.NewMemoryLedger(), repository.NewMemoryBidStore()
	}

	if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
		utils.Fatal("failed to migrate database", map[string]any{"error": err.Error()})
	}
	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		utils.Fatal("failed to connect to database", map[string]any{"error": err.Error()})
	}
	return postgres.NewLedger(db), postgres.NewBidStore(db)
}

func storageKind(cfg config.Config) string {
	if cfg.DatabaseURL == "" {
		return "memory"
	}
	return "postgres"
}
