package config

import (
	"fmt"
	"time"

	"github.com/bitcoinsv/bsvd/chaincfg"
)

type FaucetConfig struct {
	LogLevel           string             `json:"logLevel" mapstructure:"logLevel"`
	LogFormat          string             `json:"logFormat" mapstructure:"logFormat"`
	ProfilerAddr       string             `json:"profilerAddr" mapstructure:"profilerAddr"`
	PrometheusEndpoint string             `json:"prometheusEndpoint" mapstructure:"prometheusEndpoint"`
	PrometheusAddr     string             `json:"prometheusAddr" mapstructure:"prometheusAddr"`
	Network            string             `json:"network" mapstructure:"network"`
	Api                *ApiConfig         `json:"api" mapstructure:"api"`
	Db                 *DbConfig          `json:"db" mapstructure:"db"`
	Node               *NodeConfig        `json:"node" mapstructure:"node"`
	Wallet             *WalletConfig      `json:"wallet" mapstructure:"wallet"`
	Payout             *PayoutConfig      `json:"payout" mapstructure:"payout"`
	Eligibility        *EligibilityConfig `json:"eligibility" mapstructure:"eligibility"`
}

type ApiConfig struct {
	Address string `json:"address" mapstructure:"address"`
}

type DbConfig struct {
	Mode     string          `json:"mode" mapstructure:"mode"`
	Postgres *PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host         string `json:"host" mapstructure:"host"`
	Port         int    `json:"port" mapstructure:"port"`
	Name         string `json:"name" mapstructure:"name"`
	User         string `json:"user" mapstructure:"user"`
	Password     string `json:"password" mapstructure:"password"`
	MaxIdleConns int    `json:"maxIdleConns" mapstructure:"maxIdleConns"`
	MaxOpenConns int    `json:"maxOpenConns" mapstructure:"maxOpenConns"`
	SslMode      string `json:"sslMode" mapstructure:"sslMode"`
}

type NodeConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	UseSSL   bool   `json:"useSSL" mapstructure:"useSSL"`
}

type WalletConfig struct {
	PrivateKey      string        `json:"privateKey" mapstructure:"privateKey"`
	Address         string        `json:"address" mapstructure:"address"`
	FeeRatePerKb    uint64        `json:"feeRatePerKb" mapstructure:"feeRatePerKb"`
	OpReturnData    string        `json:"opReturnData" mapstructure:"opReturnData"`
	DryRun          bool          `json:"dryRun" mapstructure:"dryRun"`
	BalanceCacheTTL time.Duration `json:"balanceCacheTTL" mapstructure:"balanceCacheTTL"`
}

type PayoutConfig struct {
	InitialPayout int64   `json:"initialPayout" mapstructure:"initialPayout"`
	MinimumPayout int64   `json:"minimumPayout" mapstructure:"minimumPayout"`
	DecayRate     float64 `json:"decayRate" mapstructure:"decayRate"`
}

type EligibilityConfig struct {
	SecretSalt              string `json:"secretSalt" mapstructure:"secretSalt"`
	AdminUserHash           string `json:"adminUserHash" mapstructure:"adminUserHash"`
	MinimumAccountAgeMonths int    `json:"minimumAccountAgeMonths" mapstructure:"minimumAccountAgeMonths"`
}

// GetChainParams maps the configured network name to its chain parameters.
func (c *FaucetConfig) GetChainParams() (*chaincfg.Params, error) {
	switch c.Network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown bitcoin_network: %s", c.Network)
	}
}

func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		p.Host, p.Port, p.Name, p.User, p.Password, p.SslMode)
}
