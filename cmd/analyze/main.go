// Command analyze runs anomaly detection over a telemetry file and
// prints a run summary, without a server or database.
//
// Input is either a features parquet file (-input) or a newline-
// delimited JSON frame stream (-frames, "-" for stdin) that still needs
// differentiation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
	"github.com/vrpulse/jerk-sentinel/internal/engine"
	"github.com/vrpulse/jerk-sentinel/internal/ingest"
	"github.com/vrpulse/jerk-sentinel/internal/report"
)

func main() {
	var (
		input         = flag.String("input", "", "features parquet file")
		frames        = flag.String("frames", "", "newline-delimited JSON frame file, or - for stdin")
		out           = flag.String("out", "", "optional parquet path for labeled windows")
		windowWidth   = flag.Float64("window", 1.0, "window width in seconds")
		numTrees      = flag.Int("trees", 100, "number of isolation trees")
		subsample     = flag.Int("subsample", 256, "subsample size per tree")
		contamination = flag.Float64("contamination", 0.005, "expected anomaly fraction")
		seed          = flag.Int64("seed", 42, "forest seed")
		topN          = flag.Int("top", 10, "anomalous windows to list")
	)
	flag.Parse()

	samples, err := loadSamples(*input, *frames)
	if err != nil {
		log.Fatalf("load samples: %v", err)
	}

	cfg := domain.DetectionConfig{
		WindowWidth:   *windowWidth,
		NumTrees:      *numTrees,
		SubsampleSize: *subsample,
		Contamination: *contamination,
		Seed:          *seed,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	windows, err := engine.Detect(ctx, samples, cfg)
	if err != nil {
		log.Fatalf("detection: %v", err)
	}

	printSummary(len(samples), report.Summarize(windows, *topN))

	if *out != "" {
		if err := ingest.WriteLabeledWindows(*out, windows); err != nil {
			log.Fatalf("write %s: %v", *out, err)
		}
		fmt.Printf("\nLabeled windows written to %s\n", *out)
	}
}

func loadSamples(input, frames string) ([]domain.RawSample, error) {
	switch {
	case input != "" && frames != "":
		return nil, fmt.Errorf("use -input or -frames, not both")
	case input != "":
		return ingest.ReadSamples(input)
	case frames != "":
		r := os.Stdin
		if frames != "-" {
			f, err := os.Open(frames)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			r = f
		}
		proc := ingest.NewFrameProcessor()
		samples, err := proc.ReadFrames(r)
		if err != nil {
			return nil, err
		}
		if n := proc.Malformed(); n > 0 {
			log.Printf("skipped %d malformed frame lines", n)
		}
		return samples, nil
	default:
		return nil, fmt.Errorf("one of -input or -frames is required")
	}
}

func printSummary(sampleCount int, s domain.RunSummary) {
	rule := "============================================================"

	fmt.Println(rule)
	fmt.Println("JERK ANOMALY DETECTION")
	fmt.Println(rule)
	fmt.Printf("Samples:           %d\n", sampleCount)
	fmt.Printf("Windows:           %d\n", s.TotalWindows)
	fmt.Printf("Anomalous windows: %d (%.2f%%)\n", s.AnomalousWindows, s.AnomalyRate)

	fmt.Println()
	fmt.Println("Max jerk (all windows)")
	printStats(s.AllStats)
	if s.AnomalyStats != nil {
		fmt.Println()
		fmt.Println("Max jerk (anomalous windows)")
		printStats(*s.AnomalyStats)
	}

	if len(s.TopAnomalies) > 0 {
		fmt.Println()
		fmt.Printf("Top %d anomalous windows\n", len(s.TopAnomalies))
		fmt.Printf("%-16s %-12s %8s %12s %8s\n", "SESSION", "USER", "WINDOW", "MAX JERK", "SCORE")
		for _, w := range s.TopAnomalies {
			fmt.Printf("%-16s %-12s %8d %12.3f %8.4f\n",
				w.SessionID, w.UserID, w.WindowIndex, w.MaxJerk, w.Score)
		}
	}
	fmt.Println(rule)
}

func printStats(st domain.JerkStats) {
	fmt.Printf("  mean:   %.4f\n", st.Mean)
	fmt.Printf("  median: %.4f\n", st.Median)
	fmt.Printf("  stddev: %.4f\n", st.StdDev)
	fmt.Printf("  min:    %.4f\n", st.Min)
	fmt.Printf("  max:    %.4f\n", st.Max)
}
