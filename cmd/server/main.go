// Package main provides the entry point for the examforge server
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/contestprep/examforge/internal/api"
	"github.com/contestprep/examforge/internal/catalog"
	"github.com/contestprep/examforge/internal/extract"
	"github.com/contestprep/examforge/internal/fetch"
	"github.com/contestprep/examforge/internal/generate"
	"github.com/contestprep/examforge/internal/harvest"
	"github.com/contestprep/examforge/internal/llm/gemini"
	"github.com/contestprep/examforge/pkg/logging"
	"github.com/contestprep/examforge/pkg/pipeline"
)

func main() {
	cfg := pipeline.LoadFromEnv()
	if err := logging.SetupLogger(cfg.Logging); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	ctx := context.Background()

	// AI features are optional; without a key the server still serves the
	// archive pipeline.
	var generator *generate.Generator
	var resolver extract.AnswerResolver
	if geminiCfg, err := gemini.NewConfigFromEnv(); err == nil {
		client, err := gemini.NewClient(ctx, geminiCfg)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		generator = generate.New(client, cfg.Generate)
		resolver = generator
	} else {
		log.Printf("AI features disabled: %v", err)
	}

	fetcher := fetch.NewProxyFetcher(cfg.Fetch)
	assembler := extract.NewAssembler(fetcher, catalog.WikiHost, resolver)
	harvester := harvest.New(assembler, cfg.Harvest)
	examGen := generate.NewExamGenerator(assembler, generator, cfg.Catalog)

	// Initialize Fiber app with configuration
	app := fiber.New(fiber.Config{
		AppName:               "ExamForge API",
		DisableStartupMessage: false,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "UTC",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: getEnv("CORS_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Initialize handlers
	h := api.NewHandlers(examGen, generator)
	harvestHandler := api.NewHarvestHandler(harvester, cfg.Catalog)

	// API Routes
	setupRoutes(app, h, harvestHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting ExamForge server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRoutes configures all API routes
func setupRoutes(app *fiber.App, h *api.Handlers, harvestHandler *api.HarvestHandler) {
	// Health check
	app.Get("/health", h.Health)

	// API v1 routes
	v1 := app.Group("/api/v1")

	// Exam routes
	exams := v1.Group("/exams")
	exams.Post("/", h.GenerateExam)

	// Tutoring routes
	v1.Post("/hints", h.Hint)
	v1.Post("/chat", h.Chat)

	// Harvest routes
	harvestGroup := v1.Group("/harvest")
	harvestGroup.Post("/", harvestHandler.StartHarvest)
	harvestGroup.Get("/", harvestHandler.GetStatus)
	harvestGroup.Get("/problems", harvestHandler.GetProblems)
	harvestGroup.Delete("/", harvestHandler.StopHarvest)

	// Root redirect
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "ExamForge",
			"version": "0.1.0",
		})
	})
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
