package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	chclient "kairos/internal/adapters/clickhouse"
	"kairos/internal/adapters/config"
	"kairos/internal/domain/market_data"
	"kairos/internal/domain/optimization"
	"kairos/internal/domain/regime"
	chrepo "kairos/internal/repository/clickhouse"
	"kairos/internal/scoring"
	marketdatasvc "kairos/internal/services/market_data"
	optimizationsvc "kairos/internal/services/optimization"
	"kairos/pkg/logger"
)

func main() {
	var (
		csvPath    = flag.String("csv", "", "Load candles from a CSV file instead of ClickHouse")
		exchange   = flag.String("exchange", "binance", "Exchange name")
		symbol     = flag.String("symbol", "BTCUSDT", "Trading symbol")
		timeframe  = flag.String("timeframe", "1h", "Candle timeframe")
		lookback   = flag.Int("lookback", 2000, "Most recent candles to optimize over")
		trials     = flag.Int("trials", 200, "Number of optimization trials")
		method     = flag.String("method", "tpe", "Sampler: grid, tpe, tpe_multivariate")
		pruner     = flag.String("pruner", "median", "Pruner: none, median, successive_halving, hyperband")
		seed       = flag.Int64("seed", 0, "Random seed, 0 picks one from the clock")
		mode       = flag.String("mode", "", "Resolution mode: simple, legacy, json (empty auto-detects)")
		topN       = flag.Int("top", 20, "Ranked results to keep")
		spacePath  = flag.String("space", "", "Parameter space JSON file")
		regimePath = flag.String("regime-config", "", "v2 JSON regime config (selects JSON mode)")
		exportPath = flag.String("export", "", "Write the export document to this file")
		asJSON     = flag.Bool("json", false, "Print the export document to stdout instead of a table")
		store      = flag.Bool("store", false, "Backfill CSV candles into ClickHouse before optimizing")
	)
	flag.Parse()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	if err := logger.Init(logLevel, "development"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()
	log := logger.Get()

	resolvedMode := optimization.Mode(*mode)
	if resolvedMode != "" && !resolvedMode.Valid() {
		log.Fatalf("invalid -mode %q (want simple, legacy, or json)", *mode)
	}

	// A long search should die cleanly on Ctrl-C
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	series, err := loadSeries(ctx, *csvPath, *exchange, *symbol, *timeframe, *lookback, *store, log)
	if err != nil {
		log.Fatalf("Failed to load candles: %v", err)
	}
	log.Infow("Loaded series",
		"symbol", series.Symbol,
		"timeframe", series.Timeframe,
		"bars", series.Len(),
	)

	space := &optimization.ParameterSpace{}
	if *spacePath != "" {
		space, err = optimization.LoadSpace(*spacePath)
		if err != nil {
			log.Fatalf("Failed to load parameter space: %v", err)
		}
	}

	var regimeCfg *regime.Config
	if *regimePath != "" {
		regimeCfg, err = regime.LoadConfig(*regimePath)
		if err != nil {
			log.Fatalf("Failed to load regime config: %v", err)
		}
	}

	svc, err := optimizationsvc.NewService(space, regimeCfg, scoring.Config{}, optimizationsvc.Deps{})
	if err != nil {
		log.Fatalf("Failed to create optimization service: %v", err)
	}

	summary, err := svc.Optimize(ctx, series, optimizationsvc.Request{
		Symbol:    *symbol,
		Timeframe: *timeframe,
		Trials:    *trials,
		Method:    *method,
		Pruner:    *pruner,
		Seed:      *seed,
		Mode:      resolvedMode,
		TopN:      *topN,
	})
	if err != nil {
		log.Fatalf("Optimization failed: %v", err)
	}

	if *asJSON {
		if err := svc.WriteResults(os.Stdout, summary); err != nil {
			log.Fatalf("Failed to write results: %v", err)
		}
	} else {
		printSummary(summary, series.Len())
	}

	if *exportPath != "" {
		if err := svc.ExportResults(*exportPath, summary); err != nil {
			log.Fatalf("Failed to export results: %v", err)
		}
	}
}

// loadSeries builds the candle window from a CSV file or the candle store.
func loadSeries(
	ctx context.Context,
	csvPath, exchange, symbol, timeframe string,
	lookback int,
	store bool,
	log *logger.Logger,
) (*market_data.Series, error) {
	if csvPath != "" {
		candles, err := marketdatasvc.LoadCSV(csvPath, exchange, symbol, timeframe)
		if err != nil {
			return nil, err
		}

		if store {
			svc, closeFn, err := connectCandleStore()
			if err != nil {
				return nil, err
			}
			defer closeFn()

			if err := svc.Import(ctx, candles); err != nil {
				return nil, err
			}
			log.Infow("Backfilled candles into ClickHouse", "count", len(candles))
		}

		if lookback > 0 && len(candles) > lookback {
			candles = candles[len(candles)-lookback:]
		}
		return market_data.NewSeries(candles), nil
	}

	svc, closeFn, err := connectCandleStore()
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return svc.GetLatestSeries(ctx, exchange, symbol, timeframe, lookback)
}

func connectCandleStore() (*marketdatasvc.Service, func(), error) {
	cfg, err := config.LoadClickHouse()
	if err != nil {
		return nil, nil, err
	}

	client, err := chclient.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	svc := marketdatasvc.NewService(chrepo.NewMarketDataRepository(client.Conn()), nil)
	return svc, func() { _ = client.Close() }, nil
}

func printSummary(summary *optimizationsvc.RunSummary, bars int) {
	fmt.Printf("\nRun        %s\n", summary.RunID)
	fmt.Printf("Series     %s %s, %s bars\n", summary.Symbol, summary.Timeframe, humanize.Comma(int64(bars)))
	fmt.Printf("Mode       %s\n", summary.Mode)
	fmt.Printf("Method     %s\n", summary.Method)
	fmt.Printf("Trials     %s (%d pruned, %d failed)\n", humanize.Comma(int64(summary.Trials)), summary.Pruned, summary.Failed)
	fmt.Printf("Best score %.4f\n", summary.BestScore)
	fmt.Printf("Duration   %s\n\n", summary.Duration.Round(time.Millisecond))

	if len(summary.Results) == 0 {
		fmt.Println("No completed trials.")
		return
	}

	fmt.Println("rank  score   params")
	for _, res := range summary.Results {
		fmt.Printf("%4d  %.4f  %s\n", res.Rank, res.Score, formatParams(res.Params))
	}
}

// formatParams renders a parameter map as stable "k=v" pairs.
func formatParams(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, strconv.FormatFloat(params[k], 'f', -1, 64)))
	}
	return strings.Join(parts, " ")
}
