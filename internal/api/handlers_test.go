package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contestprep/examforge/internal/catalog"
	"github.com/contestprep/examforge/internal/generate"
	"github.com/contestprep/examforge/internal/harvest"
	"github.com/contestprep/examforge/pkg/problem"
)

type stubArchive struct {
	calls int
	block chan struct{}
}

func (s *stubArchive) Assemble(ctx context.Context, task problem.PrefetchTask) (*problem.Problem, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.calls++
	return &problem.Problem{
		ID:           task.ID,
		Source:       problem.SourceArchive,
		OriginalURL:  task.URL,
		QuestionHTML: fmt.Sprintf("<p>Question %s</p>", task.ID),
		SolutionHTML: "<p>Solution.</p>",
		Options:      problem.OptionLetters,
		Difficulty:   problem.PlaceholderDifficulty,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestHealthReportsAIAvailability(t *testing.T) {
	app := fiber.New()
	h := NewHandlers(generate.NewExamGenerator(&stubArchive{}, nil, nil), nil)
	app.Get("/health", h.Health)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["ai_enabled"])
}

func TestGenerateExamFromArchive(t *testing.T) {
	app := fiber.New()
	catalogCfg := &catalog.Config{CurrentYear: 1985}
	h := NewHandlers(generate.NewExamGenerator(&stubArchive{}, nil, catalogCfg), nil)
	app.Post("/api/v1/exams", h.GenerateExam)

	resp := postJSON(t, app, "/api/v1/exams", generate.ExamRequest{
		Count:  3,
		Source: problem.SourceArchive,
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body GenerateExamResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, 3, body.Requested)
	assert.Len(t, body.Problems, 3)
	for _, p := range body.Problems {
		assert.Equal(t, problem.SourceArchive, p.Source)
	}
}

func TestGenerateExamRejectsAISourceWithoutProvider(t *testing.T) {
	app := fiber.New()
	h := NewHandlers(generate.NewExamGenerator(&stubArchive{}, nil, nil), nil)
	app.Post("/api/v1/exams", h.GenerateExam)

	resp := postJSON(t, app, "/api/v1/exams", generate.ExamRequest{
		Count:  2,
		Source: problem.SourceAIGenerated,
	})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestGenerateExamRejectsNonPositiveCount(t *testing.T) {
	app := fiber.New()
	h := NewHandlers(generate.NewExamGenerator(&stubArchive{}, nil, nil), nil)
	app.Post("/api/v1/exams", h.GenerateExam)

	resp := postJSON(t, app, "/api/v1/exams", generate.ExamRequest{
		Count:  0,
		Source: problem.SourceArchive,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHintRequiresProvider(t *testing.T) {
	app := fiber.New()
	h := NewHandlers(generate.NewExamGenerator(&stubArchive{}, nil, nil), nil)
	app.Post("/api/v1/hints", h.Hint)

	resp := postJSON(t, app, "/api/v1/hints", HintRequest{
		Problem: &problem.Problem{QuestionHTML: "<p>2+2?</p>"},
	})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestHarvestLifecycle(t *testing.T) {
	app := fiber.New()
	archive := &stubArchive{block: make(chan struct{})}
	harvester := harvest.New(archive, &harvest.Config{PacingDelay: 0})
	hh := NewHarvestHandler(harvester, &catalog.Config{CurrentYear: 1985})
	app.Post("/api/v1/harvest", hh.StartHarvest)
	app.Get("/api/v1/harvest", hh.GetStatus)
	app.Get("/api/v1/harvest/problems", hh.GetProblems)
	app.Delete("/api/v1/harvest", hh.StopHarvest)

	resp := postJSON(t, app, "/api/v1/harvest", StartHarvestRequest{Limit: 2})
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var started map[string]any
	decodeBody(t, resp, &started)
	assert.Equal(t, float64(2), started["queued"])

	// Second start must be refused while the first run is live.
	resp = postJSON(t, app, "/api/v1/harvest", StartHarvestRequest{Limit: 2})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	close(archive.block)

	var status HarvestStatusResponse
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/harvest", nil), -1)
		require.NoError(t, err)
		decodeBody(t, resp, &status)
		if !status.Running || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.False(t, status.Running)
	assert.Equal(t, 2, status.Stats.Success)
	assert.Equal(t, 0, status.Stats.Failed)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/harvest/problems", nil), -1)
	require.NoError(t, err)
	var problems struct {
		Count    int                `json:"count"`
		Problems []*problem.Problem `json:"problems"`
	}
	decodeBody(t, resp, &problems)
	assert.Equal(t, 2, problems.Count)
	require.Len(t, problems.Problems, 2)
	assert.NotEmpty(t, problems.Problems[0].QuestionHTML)

	// Run finished; stop has nothing to cancel.
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/harvest", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestStopHarvestCancelsRun(t *testing.T) {
	app := fiber.New()
	archive := &stubArchive{block: make(chan struct{})}
	harvester := harvest.New(archive, &harvest.Config{PacingDelay: 0})
	hh := NewHarvestHandler(harvester, &catalog.Config{CurrentYear: 1985})
	app.Post("/api/v1/harvest", hh.StartHarvest)
	app.Get("/api/v1/harvest", hh.GetStatus)
	app.Delete("/api/v1/harvest", hh.StopHarvest)

	resp := postJSON(t, app, "/api/v1/harvest", StartHarvestRequest{Limit: 5})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/harvest", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var status HarvestStatusResponse
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/harvest", nil), -1)
		require.NoError(t, err)
		decodeBody(t, resp, &status)
		if !status.Running || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.False(t, status.Running)
	assert.Less(t, status.Stats.Processed(), 5)
}
