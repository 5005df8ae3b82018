// Package harvest drives the problem-acquisition pipeline over a queue of
// catalog tasks, one task at a time.
package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/contestprep/examforge/pkg/logging"
	"github.com/contestprep/examforge/pkg/problem"
)

// Assembler turns one prefetch task into a problem, or into nothing.
type Assembler interface {
	Assemble(ctx context.Context, task problem.PrefetchTask) (*problem.Problem, error)
}

// ProgressFunc receives a stats snapshot and a human-readable log line at
// least twice per task (before and after each attempt). The problem pointer
// is non-nil only on a successful attempt.
type ProgressFunc func(stats problem.PrefetchStats, message string, p *problem.Problem)

// Config configures harvest pacing.
type Config struct {
	// PacingDelay is applied after every task regardless of outcome, to
	// stay friendly to the relay proxies.
	PacingDelay time.Duration `json:"pacing_delay"`
}

// DefaultConfig returns default harvester configuration
func DefaultConfig() *Config {
	return &Config{PacingDelay: 1500 * time.Millisecond}
}

// Harvester processes a task queue strictly sequentially. A failing task is
// recorded and iteration continues; only cancellation halts the run early,
// and cancellation is checked at task boundaries only — an in-flight task
// completes and is counted.
type Harvester struct {
	assembler Assembler
	config    *Config
	log       zerolog.Logger
}

// New creates a harvester
func New(assembler Assembler, config *Config) *Harvester {
	if config == nil {
		config = DefaultConfig()
	}
	return &Harvester{
		assembler: assembler,
		config:    config,
		log:       logging.GetLogger("harvest"),
	}
}

// Run processes the queue and reports through onProgress. The returned stats
// match the final snapshot passed to the callback.
func (h *Harvester) Run(ctx context.Context, queue []problem.PrefetchTask, onProgress ProgressFunc) problem.PrefetchStats {
	if onProgress == nil {
		onProgress = func(problem.PrefetchStats, string, *problem.Problem) {}
	}

	stats := problem.PrefetchStats{Total: len(queue)}
	h.log.Info().Int("queued", len(queue)).Msg("Harvest run starting")

	for _, task := range queue {
		if ctx.Err() != nil {
			h.log.Info().Int("processed", stats.Processed()).Msg("Harvest run stopped")
			onProgress(stats, fmt.Sprintf("Stopped after %d of %d tasks", stats.Processed(), stats.Total), nil)
			return stats
		}

		stats.CurrentYear = task.Year
		stats.CurrentExam = task.ExamType
		onProgress(stats, fmt.Sprintf("Fetching %s (%s)", task.ID, task.URL), nil)

		p, err := h.assembler.Assemble(ctx, task)
		switch {
		case err != nil:
			stats.Failed++
			h.log.Warn().Str("task_id", task.ID).Err(err).Msg("Task failed")
			onProgress(stats, fmt.Sprintf("Failed %s: %v", task.ID, err), nil)
		case p == nil:
			stats.Failed++
			onProgress(stats, fmt.Sprintf("No problem at %s", task.ID), nil)
		default:
			stats.Success++
			onProgress(stats, fmt.Sprintf("Harvested %s", task.ID), p)
		}

		h.pace(ctx)
	}

	h.log.Info().
		Int("success", stats.Success).
		Int("failed", stats.Failed).
		Msg("Harvest run complete")
	onProgress(stats, fmt.Sprintf("Done: %d harvested, %d failed", stats.Success, stats.Failed), nil)

	return stats
}

// pace waits out the pacing delay, waking early on cancellation. Early
// wakeup only shortens the pause; the stop itself still happens at the next
// task boundary.
func (h *Harvester) pace(ctx context.Context) {
	if h.config.PacingDelay <= 0 {
		return
	}
	timer := time.NewTimer(h.config.PacingDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
