package api

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/contestprep/examforge/internal/catalog"
	"github.com/contestprep/examforge/internal/harvest"
	"github.com/contestprep/examforge/pkg/logging"
	"github.com/contestprep/examforge/pkg/problem"
)

// HarvestHandler controls the single harvest run a server allows at a time.
// The run executes in its own goroutine; handlers only read snapshots and
// flip the cancellation token.
type HarvestHandler struct {
	harvester  *harvest.Harvester
	catalogCfg *catalog.Config
	log        zerolog.Logger

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	stats     problem.PrefetchStats
	message   string
	harvested []*problem.Problem
}

// NewHarvestHandler creates a harvest control handler
func NewHarvestHandler(harvester *harvest.Harvester, catalogCfg *catalog.Config) *HarvestHandler {
	if catalogCfg == nil {
		catalogCfg = catalog.DefaultConfig()
	}
	return &HarvestHandler{
		harvester:  harvester,
		catalogCfg: catalogCfg,
		log:        logging.GetLogger("harvest-api"),
	}
}

// StartHarvestRequest selects how much of the catalog to work through.
// Sample > 0 harvests a random subset; otherwise the full catalog is
// enqueued, optionally truncated to Limit tasks.
type StartHarvestRequest struct {
	Sample int `json:"sample"`
	Limit  int `json:"limit"`
}

// StartHarvest launches a background harvest run
func (h *HarvestHandler) StartHarvest(c *fiber.Ctx) error {
	var req StartHarvestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}

	var queue []problem.PrefetchTask
	if req.Sample > 0 {
		queue = catalog.Sample(h.catalogCfg, req.Sample)
	} else {
		queue = catalog.Generate(h.catalogCfg)
		if req.Limit > 0 && req.Limit < len(queue) {
			queue = queue[:req.Limit]
		}
	}

	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A harvest run is already in progress",
		})
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.running = true
	h.cancel = cancel
	h.stats = problem.PrefetchStats{Total: len(queue)}
	h.message = "Starting"
	h.harvested = nil
	h.mu.Unlock()

	go h.run(ctx, queue)

	h.log.Info().Int("queued", len(queue)).Msg("Harvest run accepted")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "started",
		"queued": len(queue),
	})
}

func (h *HarvestHandler) run(ctx context.Context, queue []problem.PrefetchTask) {
	defer func() {
		h.mu.Lock()
		h.running = false
		if h.cancel != nil {
			h.cancel()
			h.cancel = nil
		}
		h.mu.Unlock()
	}()

	h.harvester.Run(ctx, queue, func(stats problem.PrefetchStats, message string, p *problem.Problem) {
		h.mu.Lock()
		h.stats = stats
		h.message = message
		if p != nil {
			h.harvested = append(h.harvested, p)
		}
		h.mu.Unlock()
	})
}

// HarvestStatusResponse is a point-in-time snapshot of the current or most
// recent run.
type HarvestStatusResponse struct {
	Running bool                  `json:"running"`
	Stats   problem.PrefetchStats `json:"stats"`
	Message string                `json:"message"`
}

// GetStatus reports harvest progress
func (h *HarvestHandler) GetStatus(c *fiber.Ctx) error {
	h.mu.Lock()
	resp := HarvestStatusResponse{
		Running: h.running,
		Stats:   h.stats,
		Message: h.message,
	}
	h.mu.Unlock()
	return c.JSON(resp)
}

// GetProblems returns the problems harvested by the current or most recent
// run.
func (h *HarvestHandler) GetProblems(c *fiber.Ctx) error {
	h.mu.Lock()
	problems := make([]*problem.Problem, len(h.harvested))
	copy(problems, h.harvested)
	h.mu.Unlock()

	return c.JSON(fiber.Map{
		"count":    len(problems),
		"problems": problems,
	})
}

// StopHarvest requests cancellation of the running harvest. The in-flight
// task completes before the run stops.
func (h *HarvestHandler) StopHarvest(c *fiber.Ctx) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running || h.cancel == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "No harvest run in progress",
		})
	}
	h.cancel()
	h.log.Info().Msg("Harvest cancellation requested")
	return c.JSON(fiber.Map{"status": "stopping"})
}
