package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bsv-faucet/faucet/config"
	"github.com/bsv-faucet/faucet/internal/api"
	"github.com/bsv-faucet/faucet/internal/faucet"
	faucetLogger "github.com/bsv-faucet/faucet/internal/logger"
	"github.com/bsv-faucet/faucet/internal/payout"
	"github.com/bsv-faucet/faucet/internal/store"
	"github.com/bsv-faucet/faucet/internal/store/memory"
	"github.com/bsv-faucet/faucet/internal/store/postgresql"
	"github.com/bsv-faucet/faucet/internal/version"
	"github.com/bsv-faucet/faucet/internal/wallet"
)

func main() {
	err := run()
	if err != nil {
		log.Fatalf("failed to run faucet: %v", err)
	}

	os.Exit(0)
}

func run() error {
	configDir, dumpConfigFile := parseFlags()

	faucetConfig, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("failed to load app config: %w", err)
	}

	if dumpConfigFile != "" {
		return config.DumpConfig(dumpConfigFile)
	}

	logger, err := faucetLogger.NewLogger(faucetConfig.LogLevel, faucetConfig.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %v", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get host name: %v", err)
	}

	logger = logger.With(slog.String("host", hostname))

	logger.Info("Starting faucet", slog.String("version", version.Version), slog.String("commit", version.Commit))

	shutdownFns := make([]func(), 0)

	go func() {
		if faucetConfig.ProfilerAddr != "" {
			logger.Info(fmt.Sprintf("Starting profiler on http://%s/debug/pprof", faucetConfig.ProfilerAddr))

			err := http.ListenAndServe(faucetConfig.ProfilerAddr, nil)
			if err != nil {
				logger.Error("failed to start profiler server", slog.String("err", err.Error()))
			}
		}
	}()

	prometheusEnabled := faucetConfig.PrometheusEndpoint != "" && faucetConfig.PrometheusAddr != ""
	go func() {
		if prometheusEnabled {
			logger.Info("Starting prometheus", slog.String("endpoint", faucetConfig.PrometheusEndpoint))
			http.Handle(faucetConfig.PrometheusEndpoint, promhttp.Handler())
			err := http.ListenAndServe(faucetConfig.PrometheusAddr, nil)
			if err != nil {
				logger.Error("failed to start prometheus server", slog.String("err", err.Error()))
			}
		}
	}()

	historyStore, err := newStore(faucetConfig.Db)
	if err != nil {
		return fmt.Errorf("failed to create history store: %v", err)
	}
	shutdownFns = append(shutdownFns, func() {
		err := historyStore.Close()
		if err != nil {
			logger.Error("failed to close history store", slog.String("err", err.Error()))
		}
	})

	faucetService, err := newFaucetService(logger, faucetConfig, historyStore, prometheusEnabled, &shutdownFns)
	if err != nil {
		return err
	}

	echoServer := api.NewEcho(logger, prometheusEnabled)
	api.NewHandler(logger, faucetService, faucetConfig.Eligibility.SecretSalt).RegisterRoutes(echoServer)

	go func() {
		logger.Info("Starting API server", slog.String("address", faucetConfig.Api.Address))
		err := echoServer.Start(faucetConfig.Api.Address)
		if err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				logger.Info("API http server closed")
				return
			}

			logger.Error("Failed to start API server", slog.String("err", err.Error()))
		}
	}()
	shutdownFns = append(shutdownFns, func() { stopEcho(logger, echoServer) })

	// setup signal catching
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-signalChan
	logger.Info("Received shutdown signal", slog.String("reason", sig.String()))

	appCleanup(logger, shutdownFns)

	return nil
}

func newStore(dbConfig *config.DbConfig) (store.HistoryStore, error) {
	switch dbConfig.Mode {
	case "postgres":
		postgres := dbConfig.Postgres
		return postgresql.New(postgres.DSN(), postgres.MaxIdleConns, postgres.MaxOpenConns)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("db mode %s is invalid", dbConfig.Mode)
	}
}

func newFaucetService(logger *slog.Logger, faucetConfig *config.FaucetConfig, historyStore store.HistoryStore, prometheusEnabled bool, shutdownFns *[]func()) (*faucet.Service, error) {
	chainParams, err := faucetConfig.GetChainParams()
	if err != nil {
		return nil, err
	}

	nodeConfig := faucetConfig.Node
	nodeClient, err := wallet.NewNodeClient(nodeConfig.Host, nodeConfig.Port, nodeConfig.User, nodeConfig.Password, nodeConfig.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("failed to create node client: %v", err)
	}

	walletConfig := faucetConfig.Wallet
	feeModel := wallet.SatoshisPerKilobyte{Satoshis: walletConfig.FeeRatePerKb}

	builder, err := wallet.NewBuilder(walletConfig.PrivateKey, walletConfig.Address, feeModel, []byte(walletConfig.OpReturnData), chainParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction builder: %v", err)
	}

	var submitter wallet.Submitter = nodeClient
	if walletConfig.DryRun {
		logger.Warn("Dry run mode is enabled, transactions will not be broadcast")
		submitter = wallet.NewDryRunSubmitter(logger)
	}

	faucetWallet := wallet.New(logger, walletConfig.Address, builder, nodeClient, submitter,
		wallet.WithBalanceCacheTTL(walletConfig.BalanceCacheTTL))

	payoutConfig := faucetConfig.Payout
	calculator, err := payout.NewCalculator(payoutConfig.InitialPayout, payoutConfig.MinimumPayout, payoutConfig.DecayRate)
	if err != nil {
		return nil, fmt.Errorf("failed to create payout calculator: %v", err)
	}

	opts := []func(*faucet.Service){
		faucet.WithAdminUserHash(faucetConfig.Eligibility.AdminUserHash),
		faucet.WithMinimumAccountAgeMonths(faucetConfig.Eligibility.MinimumAccountAgeMonths),
	}

	if prometheusEnabled {
		stats, err := faucet.NewStats()
		if err != nil {
			return nil, err
		}

		opts = append(opts, faucet.WithStats(stats))
		*shutdownFns = append(*shutdownFns, stats.UnregisterStats)
	}

	return faucet.New(logger, historyStore, faucetWallet, calculator, opts...), nil
}

func stopEcho(logger *slog.Logger, echoServer *echo.Echo) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := echoServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to close API echo server", slog.String("err", err.Error()))
	}
}

func appCleanup(logger *slog.Logger, shutdownFns []func()) {
	logger.Info("cleaning up")
	for _, fn := range shutdownFns {
		fn()
	}
}

func parseFlags() (string, string) {
	configDir := flag.String("config", "", "path to configuration file")
	dumpConfigFile := flag.String("dump_config", "", "dump config to specified file and exit")
	help := flag.Bool("help", false, "Show help")

	flag.Parse()

	if *help {
		fmt.Println("usage: faucet [options]")
		fmt.Println("where options are:")
		fmt.Println("")
		fmt.Println("    -config=/location")
		fmt.Println("          directory to look for config (default='')")
		fmt.Println("")
		fmt.Println("    -dump_config=/file.yaml")
		fmt.Println("          dump config to specified file and exit (default='')")
		fmt.Println("")
		os.Exit(0)
	}

	return *configDir, *dumpConfigFile
}
