//go:build ignore
// +build ignore

// gen_telemetry.go writes a synthetic features.parquet with spikes
// injected into known windows.
// Run with: go run scripts/gen_telemetry.go -out features.parquet
package main

import (
	"flag"
	"log"

	"github.com/vrpulse/jerk-sentinel/internal/ingest"
	"github.com/vrpulse/jerk-sentinel/internal/seed"
)

func main() {
	out := flag.String("out", "features.parquet", "output parquet path")
	seedVal := flag.Int64("seed", 1, "generator seed")
	sessions := flag.Int("sessions", 3, "number of sessions")
	flag.Parse()

	opts := seed.DefaultOptions()
	opts.Seed = *seedVal
	opts.Sessions = *sessions

	samples := seed.Generate(opts)
	if err := ingest.WriteSamples(*out, samples); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	log.Printf("Wrote %d samples to %s (spike windows: %v)", len(samples), *out, opts.SpikeWindows)
}
