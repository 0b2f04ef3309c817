package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"listing-importer/internal/config"
	"listing-importer/internal/db"
	"listing-importer/internal/importer"
	"listing-importer/internal/logger"
	"listing-importer/internal/scraper"
)

func main() {
	headless := flag.Bool("headless", true, "Run browser in headless mode (set false to see browser)")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if err := cfg.RequireCredentials(); err != nil {
		log.Error("missing configuration", "err", err)
		os.Exit(1)
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Error("failed to initialize database", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer database.Close()

	client := scraper.NewClient(cfg, log, *headless)
	if err := client.Start(); err != nil {
		log.Error("failed to launch browser", "err", err)
		os.Exit(1)
	}
	defer client.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("interrupt received, finishing current listing and shutting down")
		cancel()
	}()

	imp := importer.New(client, database, log, cfg.MaxPages)
	if cfg.GeocodeFallback {
		imp = imp.WithGeocoder(importer.NewGeocoder())
	}

	sum, err := imp.Run(ctx)
	if err != nil {
		log.Error("import run failed", "err", err)
		os.Exit(1)
	}

	fmt.Printf("run %s: %d pages, %d detected, %d created, %d duplicates, %d nonviable, %d failed in %s\n",
		sum.RunID, sum.Pages, sum.Detected, sum.Created,
		sum.SkippedDuplicate, sum.SkippedNonviable, sum.Failed,
		sum.Duration.Round(time.Millisecond))
}
