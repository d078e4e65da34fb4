package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"ultraflow/pkg/config"
	"ultraflow/pkg/pipeline"
	"ultraflow/pkg/session"
	"ultraflow/pkg/visualization"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing ultrasound recording sessions")
	configPath := flag.String("config", "ultraflow.yaml", "Path to YAML configuration file")
	probeLength := flag.Float64("probe-length", 0, "Probe array length in mm (overrides config)")
	maxPairs := flag.Int("max-pairs", -1, "Maximum frame pairs to register per session, 0 = all (overrides config)")
	exportFrames := flag.Bool("export-frames", false, "Save resampled frames as PNG images")
	exportFlow := flag.Bool("export-flow", false, "Save displacement-field magnitudes as PNG images")
	exportDir := flag.String("export-dir", "", "Directory for PNG exports (overrides config)")
	quiet := flag.Bool("quiet", false, "Suppress per-step progress output")
	flag.Parse()

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	// Load configuration, then apply command line overrides
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *probeLength > 0 {
		cfg.Probe.LengthMm = *probeLength
	}
	if *maxPairs >= 0 {
		cfg.Processing.MaxFramePairs = *maxPairs
	}
	if *exportFrames {
		cfg.Output.ExportFrames = true
	}
	if *exportFlow {
		cfg.Output.ExportFlow = true
	}
	if *exportDir != "" {
		cfg.Output.ExportDir = *exportDir
	}
	if *quiet {
		cfg.Output.Verbose = false
	}

	logOut := io.Writer(os.Stderr)
	if !cfg.Output.Verbose {
		logOut = io.Discard
	}
	logger := log.New(logOut, "ultraflow: ", log.LstdFlags)

	fmt.Println("================================")
	fmt.Println("ULTRASOUND TONGUE IMAGING OPTICAL FLOW")
	fmt.Println("Frame-to-frame diffeomorphic registration")
	fmt.Println("================================")

	// Discover recording sessions in the input directory
	discoverer := session.NewDiscoverer(logger)
	sessions, err := discoverer.Discover(*inputDir)
	if err != nil {
		log.Fatalf("Session discovery failed: %v", err)
	}
	if len(sessions) == 0 {
		log.Fatalf("No sessions found in %s", *inputDir)
	}
	fmt.Printf("Discovered %d sessions in %s\n", len(sessions), *inputDir)

	proc := pipeline.New(cfg, logger)

	processed := 0
	skipped := 0
	failed := 0
	startTime := time.Now()

	for i := range sessions {
		s := &sessions[i]
		if s.Excluded {
			fmt.Printf("Skipping %s: companion files missing\n", s.FileBase)
			skipped++
			continue
		}

		fmt.Printf("\nSession %s (%s, participant %s)\n",
			filepath.Base(s.FileBase), s.Date.Format("2006-01-02 15:04:05"), s.Participant)

		bundle, err := proc.Process(s)
		if err != nil {
			// One bad session should not abort the whole run.
			log.Printf("Session %s failed: %v", s.FileBase, err)
			failed++
			continue
		}
		processed++

		fmt.Printf("  %d frames, %d flow fields, %.2fs audio\n",
			bundle.Frames.Frames, len(bundle.Flows),
			lastOrZero(bundle.WavTime))
		for pair, st := range bundle.Stats() {
			fmt.Printf("  pair %d: mean displacement %.3f px, max %.3f px\n", pair, st.Mean, st.Max)
		}

		if cfg.Output.ExportFrames || cfg.Output.ExportFlow {
			dir := filepath.Join(cfg.Output.ExportDir, filepath.Base(s.FileBase))
			exporter := visualization.NewExporter(dir)
			if cfg.Output.ExportFrames {
				for j, frame := range bundle.Resampled {
					if err := exporter.SaveFrame(frame, j); err != nil {
						log.Printf("Warning: failed to save frame %d: %v", j, err)
					}
				}
			}
			if cfg.Output.ExportFlow {
				for j, mapping := range bundle.Flows {
					if err := exporter.SaveFlowMagnitude(mapping, j); err != nil {
						log.Printf("Warning: failed to save flow field %d: %v", j, err)
					}
				}
			}
			fmt.Printf("  exports written to %s\n", dir)
		}
	}

	fmt.Printf("\nFinished in %.2f seconds: %d processed, %d skipped, %d failed\n",
		time.Since(startTime).Seconds(), processed, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func lastOrZero(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return v[len(v)-1]
}
