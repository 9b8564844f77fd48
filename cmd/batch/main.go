package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"audio-insights-go/internal/app"
	"audio-insights-go/internal/config"
	"audio-insights-go/internal/dataset"
	"audio-insights-go/internal/logger"
	"audio-insights-go/internal/pipeline"
)

func main() {
	file := flag.String("file", "", "xlsx sheet of media refs (required)")
	workers := flag.Int("workers", 4, "concurrent pipeline runs")
	limit := flag.Int("limit", 0, "process at most this many rows (0 = all)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New().Component("batch")

	if *file == "" {
		log.Error("-file is required")
		flag.Usage()
		os.Exit(2)
	}

	jobs, err := dataset.Load(*file)
	if err != nil {
		log.WithError(err).WithField("file", *file).Error("failed to load jobs")
		os.Exit(1)
	}
	if *limit > 0 && len(jobs) > *limit {
		jobs = jobs[:*limit]
	}
	log.WithField("jobs", len(jobs)).WithField("workers", *workers).Info("batch loaded")

	// an interrupt stops feeding new jobs; running ones finish
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to initialize")
		os.Exit(1)
	}
	defer a.Close(context.Background())

	results := a.Pipeline.RunBatch(ctx, jobs, *workers)

	counts := map[string]int{}
	for _, r := range results {
		state := r.Result.State
		if state == "" {
			state = "skipped"
		}
		counts[state]++
	}
	log.WithField("done", counts[string(pipeline.StateDone)]).
		WithField("degraded", counts[string(pipeline.StateDegraded)]).
		WithField("failed", counts[string(pipeline.StateFailed)]).
		WithField("skipped", counts["skipped"]).
		Info("batch finished")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		log.WithError(err).Error("failed to write results")
		os.Exit(1)
	}
}
