package main

import (
	"fmt"
	"net/http"
	"os"

	"listing-importer/internal/api"
	"listing-importer/internal/config"
	"listing-importer/internal/db"
	"listing-importer/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Error("failed to initialize database", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer database.Close()

	router := api.NewRouter(database)

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	log.Info("starting inventory API", "addr", addr, "db", cfg.DBPath)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}
