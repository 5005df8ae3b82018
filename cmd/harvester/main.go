// Package main provides the batch harvester CLI
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contestprep/examforge/internal/catalog"
	"github.com/contestprep/examforge/internal/extract"
	"github.com/contestprep/examforge/internal/fetch"
	"github.com/contestprep/examforge/internal/generate"
	"github.com/contestprep/examforge/internal/harvest"
	"github.com/contestprep/examforge/internal/llm/gemini"
	"github.com/contestprep/examforge/pkg/logging"
	"github.com/contestprep/examforge/pkg/pipeline"
	"github.com/contestprep/examforge/pkg/problem"
)

func main() {
	sample := flag.Int("sample", 0, "harvest a random sample of N catalog entries instead of the full catalog")
	limit := flag.Int("limit", 0, "cap the full-catalog queue at N tasks (0 = no cap)")
	out := flag.String("out", "problems.json", "output file for harvested problems")
	pacingMs := flag.Int("pacing-ms", 0, "override pacing delay between tasks in milliseconds")
	flag.Parse()

	fmt.Println("📚 EXAMFORGE ARCHIVE HARVESTER")
	fmt.Println("==============================")
	fmt.Println()

	cfg := pipeline.LoadFromEnv()
	cfg.Logging.Level = "warn" // Reduce noise
	if err := logging.SetupLogger(cfg.Logging); err != nil {
		fmt.Printf("❌ Failed to setup logging: %v\n", err)
		return
	}
	if *pacingMs > 0 {
		cfg.Harvest.PacingDelay = time.Duration(*pacingMs) * time.Millisecond
	}

	logger := logging.GetPipelineLogger("harvester", "main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl-C stops at the next task boundary; the in-flight page completes.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		fmt.Println("\n🛑 Stopping after the current problem...")
		cancel()
	}()

	// A missing API key just disables AI answer resolution; boxed and
	// prose extraction still run.
	var resolver extract.AnswerResolver
	if geminiCfg, err := gemini.NewConfigFromEnv(); err == nil {
		client, err := gemini.NewClient(ctx, geminiCfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		resolver = generate.New(client, cfg.Generate)
		fmt.Println("✅ AI answer resolution enabled")
	} else {
		fmt.Println("⚠️  AI answer resolution disabled (no GEMINI_API_KEY)")
	}

	var queue []problem.PrefetchTask
	if *sample > 0 {
		queue = catalog.Sample(cfg.Catalog, *sample)
	} else {
		queue = catalog.Generate(cfg.Catalog)
		if *limit > 0 && *limit < len(queue) {
			queue = queue[:*limit]
		}
	}
	fmt.Printf("📡 Queued %d problems from the catalog\n\n", len(queue))

	fetcher := fetch.NewProxyFetcher(cfg.Fetch)
	assembler := extract.NewAssembler(fetcher, catalog.WikiHost, resolver)
	harvester := harvest.New(assembler, cfg.Harvest)

	var harvested []*problem.Problem
	startTime := time.Now()

	stats := harvester.Run(ctx, queue, func(stats problem.PrefetchStats, message string, p *problem.Problem) {
		if p != nil {
			harvested = append(harvested, p)
		}
		fmt.Printf("[%d/%d] %s\n", stats.Processed(), stats.Total, message)
	})

	fmt.Println()
	fmt.Printf("⏱️  Finished in %s\n", time.Since(startTime).Round(time.Second))
	fmt.Printf("✅ Harvested: %d   ❌ Failed: %d\n", stats.Success, stats.Failed)

	if len(harvested) == 0 {
		fmt.Println("Nothing to write.")
		return
	}

	data, err := json.MarshalIndent(harvested, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to encode problems")
	}
	if err := os.WriteFile(*out, data, 0644); err != nil {
		logger.Fatal().Err(err).Msg("Failed to write output file")
	}
	fmt.Printf("💾 Wrote %d problems to %s\n", len(harvested), *out)
}
