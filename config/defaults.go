package config

import (
	"time"

	"github.com/bsv-faucet/faucet/internal/faucet"
	"github.com/bsv-faucet/faucet/internal/payout"
	"github.com/bsv-faucet/faucet/internal/wallet"
)

func getDefaultFaucetConfig() *FaucetConfig {
	return &FaucetConfig{
		LogLevel:  "INFO",
		LogFormat: "text",
		Network:   "testnet",
		Api: &ApiConfig{
			Address: "localhost:8080",
		},
		Db: &DbConfig{
			Mode: "postgres",
			Postgres: &PostgresConfig{
				Host:         "localhost",
				Port:         5432,
				Name:         "faucet",
				User:         "faucet",
				Password:     "faucet",
				MaxIdleConns: 10,
				MaxOpenConns: 80,
				SslMode:      "disable",
			},
		},
		Node: &NodeConfig{
			Host:     "localhost",
			Port:     18332,
			User:     "bitcoin",
			Password: "bitcoin",
			UseSSL:   false,
		},
		Wallet: &WalletConfig{
			FeeRatePerKb:    wallet.DefaultSatoshisPerKilobyte().Satoshis,
			DryRun:          true,
			BalanceCacheTTL: 5 * time.Minute,
		},
		Payout: &PayoutConfig{
			InitialPayout: payout.DefaultInitialPayout,
			MinimumPayout: payout.DefaultMinimumPayout,
			DecayRate:     payout.DefaultDecayRate,
		},
		Eligibility: &EligibilityConfig{
			MinimumAccountAgeMonths: faucet.DefaultMinimumAccountAgeMonths,
		},
	}
}
