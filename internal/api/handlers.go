package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/contestprep/examforge/internal/generate"
	"github.com/contestprep/examforge/pkg/logging"
	"github.com/contestprep/examforge/pkg/problem"
)

// Handlers contains the HTTP handlers for exam generation and tutoring
type Handlers struct {
	examGen *generate.ExamGenerator
	// generator is nil when no LLM provider is configured; AI-backed
	// endpoints answer 503 in that case.
	generator *generate.Generator
	log       zerolog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(examGen *generate.ExamGenerator, generator *generate.Generator) *Handlers {
	return &Handlers{
		examGen:   examGen,
		generator: generator,
		log:       logging.GetLogger("api"),
	}
}

// Health returns the service health status
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "healthy",
		"service":    "examforge",
		"version":    "0.1.0",
		"ai_enabled": h.generator != nil,
		"timestamp":  time.Now().UTC(),
	})
}

// GenerateExamResponse represents the response for exam generation
type GenerateExamResponse struct {
	Requested int                `json:"requested"`
	Problems  []*problem.Problem `json:"problems"`
}

// GenerateExam assembles a practice exam from the requested source
func (h *Handlers) GenerateExam(c *fiber.Ctx) error {
	var req generate.ExamRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}

	if req.Source != problem.SourceArchive && h.generator == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "AI generation is not configured on this server",
		})
	}

	problems, err := h.examGen.Generate(c.Context(), req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Exam generation failed",
			"details": err.Error(),
		})
	}

	h.log.Info().
		Str("source", string(req.Source)).
		Int("requested", req.Count).
		Int("filled", len(problems)).
		Msg("Exam generated")

	return c.JSON(GenerateExamResponse{
		Requested: req.Count,
		Problems:  problems,
	})
}

// HintRequest carries the problem the client is working on; the server
// keeps no per-session state.
type HintRequest struct {
	Problem    *problem.Problem `json:"problem"`
	PriorHints []string         `json:"prior_hints"`
}

// Hint produces the next progressive hint for a problem
func (h *Handlers) Hint(c *fiber.Ctx) error {
	if h.generator == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "AI tutoring is not configured on this server",
		})
	}

	var req HintRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}
	if req.Problem == nil || req.Problem.QuestionHTML == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A problem with question content is required",
		})
	}

	hint, err := h.generator.Hint(c.Context(), req.Problem, req.PriorHints)
	if err != nil {
		h.log.Error().Err(err).Msg("Hint generation failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "Hint generation failed",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"hint": hint})
}

// ChatRequest carries one turn of a solution discussion
type ChatRequest struct {
	Problem *problem.Problem  `json:"problem"`
	History []problem.ChatMsg `json:"history"`
	Message string            `json:"message"`
}

// Chat answers one tutoring question about a problem's solution
func (h *Handlers) Chat(c *fiber.Ctx) error {
	if h.generator == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "AI tutoring is not configured on this server",
		})
	}

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
	}
	if req.Problem == nil || req.Problem.QuestionHTML == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A problem with question content is required",
		})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message cannot be empty",
		})
	}

	reply, err := h.generator.ChatReply(c.Context(), req.Problem, req.History, req.Message)
	if err != nil {
		h.log.Error().Err(err).Msg("Chat reply failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "Chat reply failed",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"reply": reply})
}
