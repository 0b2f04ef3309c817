package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"listing-importer/internal/config"
	"listing-importer/internal/db"
	"listing-importer/internal/dedupe"
	"listing-importer/internal/models"
)

func main() {
	// Sub-commands
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	os.Args = os.Args[1:] // Shift args for flag parsing

	switch cmd {
	case "stats":
		printStats()
	case "match":
		dryRunMatch()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: tools <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  stats   Print inventory counts by provenance and status")
	fmt.Println("  match   Check whether a hypothetical listing would be treated as a duplicate")
}

func openDB() *db.DB {
	cfg := config.Load()
	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return database
}

func printStats() {
	flag.Parse()

	database := openDB()
	defer database.Close()

	stats, err := database.Stats()
	if err != nil {
		log.Fatalf("Failed to compute stats: %v", err)
	}

	out, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(out))
}

// dryRunMatch runs the dedup decision against the live inventory without
// touching the browser or writing anything. Useful for checking why a
// listing was (or would be) skipped.
func dryRunMatch() {
	title := flag.String("title", "", "Listing title as it appears on the card")
	location := flag.String("location", "", "Location text")
	propType := flag.String("type", "", "Property type (casa, departamento, terreno, ...)")
	bedrooms := flag.Int("bedrooms", 0, "Bedroom count (0 = unknown)")
	flag.Parse()

	if *title == "" {
		log.Fatal("match requires -title")
	}

	database := openDB()
	defer database.Close()

	foreign, err := database.LoadForeignRecords()
	if err != nil {
		log.Fatalf("Failed to load canonical records: %v", err)
	}
	idx := dedupe.NewIndex(foreign)

	l := &models.ScrapedListing{
		Title:        *title,
		Neighborhood: *location,
		PropertyType: *propType,
	}
	if *bedrooms > 0 {
		l.Bedrooms = bedrooms
	}

	d := idx.Match(l)
	if !d.Duplicate {
		fmt.Printf("no match against %d canonical records: would be imported\n", idx.Size())
		return
	}

	kind := "soft"
	if d.Exact {
		kind = "exact"
	}
	fmt.Printf("%s match: record %d (%s), would be skipped\n", kind, d.MatchedID, d.PublicID)
}
