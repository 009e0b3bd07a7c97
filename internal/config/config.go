package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all runtime settings for the auction service.
type Config struct {
	ListenAddr       string
	DatabaseURL      string
	ResolverEnabled  bool
	ResolverInterval time.Duration
	BidRetryAttempts int
}

// Load parses flags and environment into a Config. Every flag can also be
// set through the environment with an AUCTION_ prefix and underscores, e.g.
// AUCTION_DATABASE_URL for --database-url.
func Load() Config {
	pflag.String("listen-addr", ":8080", "address the HTTP server listens on")
	pflag.String("database-url", "", "Postgres connection URL; empty selects in-memory storage")
	pflag.Bool("resolver-enabled", true, "run the lifecycle resolver in this process")
	pflag.Duration("resolver-interval", 60*time.Second, "how often the resolver scans for expired auctions")
	pflag.Int("bid-retry-attempts", 5, "bounded retries for concurrent bid admission")

	// bind pflag to viper
	pflag.Parse()
	viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvPrefix("AUCTION")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	return Config{
		ListenAddr:       viper.GetString("listen-addr"),
		DatabaseURL:      viper.GetString("database-url"),
		ResolverEnabled:  viper.GetBool("resolver-enabled"),
		ResolverInterval: viper.GetDuration("resolver-interval"),
		BidRetryAttempts: viper.GetInt("bid-retry-attempts"),
	}
}
