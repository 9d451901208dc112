package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/argo-bracket/internal/archive"
	"github.com/rxtech-lab/argo-bracket/internal/datasource"
	"github.com/rxtech-lab/argo-bracket/internal/logger"
	"github.com/rxtech-lab/argo-bracket/internal/replay"
	"github.com/rxtech-lab/argo-bracket/internal/version"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// runAction replays the snapshot file through the paper broker and writes the trip table.
func runAction(ctx context.Context, cmd *cli.Command) error {
	level, err := zapcore.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	log, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	config, err := replay.LoadRunConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	source, err := datasource.Open(cmd.String("data"), log)
	if err != nil {
		return err
	}
	defer source.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	opts := []replay.Option{
		replay.WithLogger(log),
		replay.WithRegisterer(registry),
	}

	if cmd.Bool("progress") {
		opts = append(opts, replay.WithProgressBar())
	}

	if archivePath := cmd.String("archive"); archivePath != "" {
		eventArchive, err := archive.NewDuckDBArchive(archivePath, log)
		if err != nil {
			return err
		}
		defer eventArchive.Close()

		opts = append(opts, replay.WithArchive(eventArchive))
	}

	if addr := cmd.String("metrics-addr"); addr != "" {
		stop := serveMetrics(addr, registry, log)
		defer stop()
	}

	runner, err := replay.NewRunner(config, source, opts...)
	if err != nil {
		return err
	}

	result, err := runner.Run(ctx, cmd.String("output"))
	if err != nil {
		return err
	}

	summary := result.Summary
	fmt.Fprintf(cmd.Root().Writer, "trips: %d  wins: %d  losses: %d  total pnl: %.2f  open events: %d  diagnostics: %d\n",
		summary.Trips.NumberOfTrips,
		summary.Trips.NumberOfWinningTrips,
		summary.Trips.NumberOfLosingTrips,
		summary.Trips.TotalPnL,
		summary.OpenEvents,
		summary.Diagnostics,
	)
	fmt.Fprintf(cmd.Root().Writer, "trip table: %s\n", result.TripsCSV)

	return nil
}

// serveMetrics exposes the registry on addr/metrics until the returned stop func is called.
func serveMetrics(addr string, registry *prometheus.Registry, log *logger.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()

	log.Info("Serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(ctx)
	}
}

// schemaAction prints the JSON schema of the run config, or writes it to --output.
func schemaAction(_ context.Context, cmd *cli.Command) error {
	config := replay.EmptyRunConfig()

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if output := cmd.String("output"); output != "" {
		return os.WriteFile(output, []byte(schema+"\n"), 0644)
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, schema)

	return err
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "argo-bracket",
		Usage:   "Replay trading signals through bracket orders on a simulated broker",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Replay a snapshot file and write the trip table",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the run config `YAML` file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Snapshot file (.csv or .parquet) with time,symbol,price,signal_time columns",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory for trips.csv, trips.parquet and summary.yaml",
						Value:   "results",
					},
					&cli.StringFlag{
						Name:  "archive",
						Usage: "DuckDB file that keeps resolved events across runs. In-memory when empty",
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Address to serve Prometheus metrics on during the run, e.g. :9090",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "Log level (debug, info, warn, error)",
						Value: "info",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Show a progress bar",
						Value: true,
					},
				},
				Action: runAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the run config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the schema to this file instead of stdout",
					},
				},
				Action: schemaAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
