// Command genreadings generates deterministic reading fixtures for test
// suites and for seeding a Kafka topic during development. It uses the actual
// simulator so fixtures match real pipeline input.
//
// Usage:
//
//	go run ./cmd/genreadings -catalog catalog.example.yaml -cycles 10 -seed 42 -out testdata/readings.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/coastal-threat-service/internal/config"
	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"github.com/couchcryptid/coastal-threat-service/internal/source"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	catalogPath := flag.String("catalog", "", "catalog YAML path (empty uses the built-in catalog)")
	cycles := flag.Int("cycles", 10, "number of ingest cycles to generate")
	seed := flag.Int64("seed", 42, "simulator seed")
	interval := flag.Duration("interval", 2*time.Second, "simulated time between cycles")
	out := flag.String("out", "", "output path (empty writes to stdout)")
	flag.Parse()

	if *cycles < 1 {
		return fmt.Errorf("cycles must be at least 1, got %d", *cycles)
	}

	catalog, err := config.LoadCatalog(*catalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	// A fixed start time plus a fake clock keeps fixtures reproducible.
	clk := clockwork.NewFakeClockAt(time.Date(2026, time.March, 14, 6, 0, 0, 0, time.UTC))
	sim := source.NewSimulator(catalog.Locations, *seed, clk, slog.New(slog.DiscardHandler))

	var batches [][]domain.Reading
	for i := 0; i < *cycles; i++ {
		readings, err := sim.NextReadings(context.Background())
		if err != nil {
			return fmt.Errorf("generate cycle %d: %w", i, err)
		}
		batches = append(batches, readings)
		clk.Advance(*interval)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batches); err != nil {
		return fmt.Errorf("encode fixtures: %w", err)
	}

	if *out != "" {
		total := 0
		for _, b := range batches {
			total += len(b)
		}
		fmt.Fprintf(os.Stderr, "wrote %d readings across %d cycles to %s\n", total, len(batches), *out)
	}
	return nil
}
