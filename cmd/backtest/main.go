package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	engine_types "github.com/rxtech-lab/argo-options/internal/backtest/engine"
	engine "github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-options/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-options/internal/logger"
	"github.com/rxtech-lab/argo-options/internal/metrics"
	"github.com/rxtech-lab/argo-options/internal/version"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const schemaFileName = "backtest-engine-v1-config.json"

// runAction loads the data, runs every configuration and prints the overall summary.
func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLoggerWithLevel(cmd.String("log-level"))
	if err != nil {
		return err
	}
	defer log.Sync()

	configs := make([]string, 0, len(cmd.StringSlice("config")))

	for _, path := range cmd.StringSlice("config") {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}

		configs = append(configs, string(content))
	}

	source, err := datasource.NewDuckDBSource(cmd.String("db"), log)
	if err != nil {
		return err
	}
	defer source.Close()

	if path := cmd.String("candles"); path != "" {
		if err := source.LoadCandles(path); err != nil {
			return err
		}
	}

	if path := cmd.String("ticks"); path != "" {
		if err := source.LoadTicks(path); err != nil {
			return err
		}
	}

	var candles datasource.CandleSource = source

	if url := cmd.String("redis"); url != "" {
		options, err := redis.ParseURL(url)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}

		rdb := redis.NewClient(options)
		defer rdb.Close()

		candles = datasource.NewCachedCandleSource(rdb, cmd.Duration("redis-ttl"), "", source, log)
	}

	if addr := cmd.String("metrics-addr"); addr != "" {
		server := &http.Server{Addr: addr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server stopped", zap.Error(err))
			}
		}()
		defer server.Close()
	}

	backtest := engine.NewBacktestEngineV1()
	backtest.SetLogger(log)

	if err := backtest.Initialize(configs[0]); err != nil {
		return err
	}

	if err := backtest.SetConfigContent(configs[1:]); err != nil {
		return err
	}

	if err := backtest.SetExpiries(cmd.StringSlice("expiry")); err != nil {
		return err
	}

	if err := backtest.SetCandleSource(candles); err != nil {
		return err
	}

	if err := backtest.SetTickSource(source); err != nil {
		return err
	}

	if err := backtest.SetResultsFolder(cmd.String("results")); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onStart := engine_types.OnBacktestStartCallback(func(totalRuns int) error {
		bar = progressbar.NewOptions(totalRuns,
			progressbar.OptionSetDescription("Running backtests"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWriter(os.Stderr),
		)

		return nil
	})
	onRunEnd := engine_types.OnRunEndCallback(func(runIndex int, runName string, resultFolderPath string) {
		if bar != nil {
			_ = bar.Add(1)
		}
	})
	onProcessDay := engine_types.OnProcessDayCallback(func(runName string, current int, total int) error {
		log.Debug("Day processed", zap.String("run", runName), zap.Int("current", current), zap.Int("total", total))

		return nil
	})

	result, err := backtest.Run(ctx, engine_types.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnRunEnd:        &onRunEnd,
		OnProcessDay:    &onProcessDay,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nruns: %d  failed: %d  trades: %d  wins: %d  losses: %d  win rate: %.2f%%  pnl: %.2f\n",
		len(result.Runs), len(result.Failed), result.Summary.TotalTrades, result.Summary.Wins,
		result.Summary.Losses, result.Summary.WinRatePct, result.Summary.CumulativePnl)

	for _, failure := range result.Failed {
		fmt.Printf("failed run %s: %s\n", failure.Name, failure.Error)
	}

	return nil
}

// schemaAction writes the JSON schema of the run configuration.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	schemaJSON, err := engine.NewBacktestEngineV1().GetConfigSchema()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	schemaPath := filepath.Join(cmd.String("output"), schemaFileName)

	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	log.Printf("Schema successfully generated at %s", schemaPath)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Backtest supertrend-driven option strategies on historical ticks",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run one or more backtest configurations",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to a YAML run configuration, repeatable",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "db",
						Usage: "DuckDB database holding market_data and option_ticks",
						Value: ":memory:",
					},
					&cli.StringFlag{
						Name:  "candles",
						Usage: "Parquet file (or glob) with underlying candles, exposed as market_data",
					},
					&cli.StringFlag{
						Name:  "ticks",
						Usage: "Parquet file (or glob) with option ticks, exposed as option_ticks",
					},
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Output directory, empty disables persistence",
						Value:   "results",
					},
					&cli.StringSliceFlag{
						Name:  "expiry",
						Usage: "Run every configuration once per expiry (`YYYY-MM-DD`), repeatable",
					},
					&cli.StringFlag{
						Name:  "redis",
						Usage: "Redis URL used to cache candle queries, e.g. redis://localhost:6379/0",
					},
					&cli.DurationFlag{
						Name:  "redis-ttl",
						Usage: "Lifetime of cached candle queries",
						Value: 24 * time.Hour,
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address, e.g. :9090",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "debug, info, warn or error",
						Value: "info",
					},
				},
				Action: runAction,
			},
			{
				Name:  "schema",
				Usage: "Write the configuration JSON schema",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory the schema is written to",
						Value:   "./config",
					},
				},
				Action: schemaAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
