// Package generate holds the call sites of the LLM collaborator: problem
// generation, mock search, difficulty grading, hints and solution chat.
// Prompt wording is product policy; everything else is parsing and fallback
// handling.
package generate

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/contestprep/examforge/internal/llm"
	"github.com/contestprep/examforge/pkg/logging"
	"github.com/contestprep/examforge/pkg/problem"
)

// Config configures the generation call sites.
type Config struct {
	// Model overrides the provider default when non-empty.
	Model string `json:"model"`
	// ThinkingBudget hints a reasoning budget on generation calls; zero
	// keeps the provider default.
	ThinkingBudget int32 `json:"thinking_budget"`
}

// DefaultConfig returns default generation configuration
func DefaultConfig() *Config {
	return &Config{}
}

// Generator wraps the LLM provider with per-call-site request/response
// handling.
type Generator struct {
	provider llm.Provider
	config   *Config
	log      zerolog.Logger
}

// New creates a generator
func New(provider llm.Provider, config *Config) *Generator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Generator{
		provider: provider,
		config:   config,
		log:      logging.GetLogger("generate"),
	}
}

// problemPayload is the ad hoc schema the generation prompts ask for.
// estimatedDifficulty is deliberately untyped: models answer with numbers
// or with words like "Hard".
type problemPayload struct {
	QuestionHTML        string   `json:"questionHtml"`
	Options             []string `json:"options"`
	CorrectOption       string   `json:"correctOption"`
	SolutionHTML        string   `json:"solutionHtml"`
	Topic               string   `json:"topic"`
	EstimatedDifficulty any      `json:"estimatedDifficulty"`
}

// GenerateProblem asks the model for one original multiple-choice problem.
func (g *Generator) GenerateProblem(ctx context.Context, topic string, difficulty int) (*problem.Problem, error) {
	difficulty = problem.ClampDifficulty(difficulty)
	prompt := fmt.Sprintf(`Write one original AMC-style multiple-choice math competition problem.
Topic: %s. Difficulty: %d on a 1-10 scale.
Respond with a single JSON object with fields:
"questionHtml" (HTML fragment), "options" (array of exactly 5 answer texts),
"correctOption" (one letter A-E), "solutionHtml" (HTML fragment with a full solution),
"topic" (short topic label), "estimatedDifficulty" (integer 1-10).`, topic, difficulty)

	raw, err := g.provider.Generate(ctx, llm.Request{
		Model:          g.config.Model,
		Prompt:         prompt,
		JSONOutput:     true,
		ThinkingBudget: g.config.ThinkingBudget,
	})
	if err != nil {
		return nil, err
	}

	var payload problemPayload
	if err := llm.ExtractJSON(raw, &payload); err != nil {
		return nil, fmt.Errorf("generated problem: %w", err)
	}

	p, err := g.buildProblem(&payload, problem.SourceAIGenerated)
	if err != nil {
		return nil, err
	}
	if p.Topic == "" {
		p.Topic = topic
	}
	return p, nil
}

// MockSearchProblems asks the model, with search grounding enabled, for
// problems "found" for a query. Search grounding cannot be combined with
// strict JSON output, so the response goes through lenient extraction.
func (g *Generator) MockSearchProblems(ctx context.Context, query string, count int) ([]*problem.Problem, error) {
	prompt := fmt.Sprintf(`Search for math competition problems matching: %q.
Return the %d best matches as a JSON array of objects with fields
"questionHtml", "options" (exactly 5 entries), "correctOption" (A-E),
"solutionHtml", "topic", "estimatedDifficulty". Return only the JSON array.`, query, count)

	raw, err := g.provider.Generate(ctx, llm.Request{
		Model:     g.config.Model,
		Prompt:    prompt,
		UseSearch: true,
	})
	if err != nil {
		return nil, err
	}

	var payloads []problemPayload
	if err := llm.ExtractJSON(raw, &payloads); err != nil {
		return nil, fmt.Errorf("mock search results: %w", err)
	}

	problems := make([]*problem.Problem, 0, len(payloads))
	for i := range payloads {
		p, err := g.buildProblem(&payloads[i], problem.SourceOnlineMock)
		if err != nil {
			g.log.Warn().Err(err).Int("index", i).Msg("Skipping malformed search result")
			continue
		}
		problems = append(problems, p)
	}
	if len(problems) == 0 {
		return nil, fmt.Errorf("mock search produced no usable problems")
	}
	if len(problems) > count {
		problems = problems[:count]
	}
	return problems, nil
}

// gradePayload is the batch grading response schema.
type gradePayload struct {
	ID                  string `json:"id"`
	EstimatedDifficulty any    `json:"estimatedDifficulty"`
	Analysis            string `json:"analysis"`
}

// GradeDifficulties replaces placeholder difficulties in one batch call.
// Problems whose ids are missing from the response keep their current
// value.
func (g *Generator) GradeDifficulties(ctx context.Context, problems []*problem.Problem) error {
	if len(problems) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Rate the difficulty of each problem on a 1-10 scale.\n")
	sb.WriteString(`Respond with a JSON array of {"id", "estimatedDifficulty", "analysis"} objects.` + "\n\n")
	for _, p := range problems {
		fmt.Fprintf(&sb, "id: %s\n%s\n\n", p.ID, excerpt(stripTags(p.QuestionHTML), 500))
	}

	raw, err := g.provider.Generate(ctx, llm.Request{
		Model:      g.config.Model,
		Prompt:     sb.String(),
		JSONOutput: true,
	})
	if err != nil {
		return err
	}

	var grades []gradePayload
	if err := llm.ExtractJSON(raw, &grades); err != nil {
		return fmt.Errorf("grading batch: %w", err)
	}

	byID := make(map[string]int, len(grades))
	for _, grade := range grades {
		byID[grade.ID] = difficultyValue(grade.EstimatedDifficulty)
	}
	for _, p := range problems {
		if d, ok := byID[p.ID]; ok {
			p.Difficulty = d
		}
	}
	return nil
}

// Hint produces the next hint for a problem, without giving the answer
// away; earlier hints are provided so the model escalates instead of
// repeating itself.
func (g *Generator) Hint(ctx context.Context, p *problem.Problem, priorHints []string) (string, error) {
	var sb strings.Builder
	sb.WriteString("Give one short hint for the following problem. Do not reveal the final answer.\n\n")
	sb.WriteString(excerpt(stripTags(p.QuestionHTML), 1500))
	if len(priorHints) > 0 {
		sb.WriteString("\n\nHints already given:\n")
		for i, h := range priorHints {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, h)
		}
		sb.WriteString("Give the next, more specific hint.")
	}

	return g.generateText(ctx, sb.String())
}

// ChatReply produces one tutoring turn about a problem's solution.
func (g *Generator) ChatReply(ctx context.Context, p *problem.Problem, history []problem.ChatMsg, userMsg string) (string, error) {
	var sb strings.Builder
	sb.WriteString("You are tutoring a student through this problem and its solution.\n\nProblem:\n")
	sb.WriteString(excerpt(stripTags(p.QuestionHTML), 1500))
	sb.WriteString("\n\nSolution:\n")
	sb.WriteString(excerpt(stripTags(p.SolutionHTML), 2500))
	sb.WriteString("\n\nConversation so far:\n")
	for _, msg := range history {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Text)
	}
	fmt.Fprintf(&sb, "user: %s\ntutor:", userMsg)

	return g.generateText(ctx, sb.String())
}

// ResolveAnswer is the AI fallback of the answer extractor: it receives an
// excerpt of solution text and answers with a single letter or a sentinel.
func (g *Generator) ResolveAnswer(ctx context.Context, solutionText string) (string, error) {
	prompt := fmt.Sprintf(`The following is the beginning of a solution to a multiple-choice problem.
Which option letter (A, B, C, D or E) is the final answer?
Reply with the single letter only, or with "not found" if the text does not determine it.

%s`, solutionText)

	return g.generateText(ctx, prompt)
}

func (g *Generator) generateText(ctx context.Context, prompt string) (string, error) {
	raw, err := g.provider.Generate(ctx, llm.Request{
		Model:  g.config.Model,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// buildProblem validates a payload and assembles the immutable record.
// Anything short of a complete payload fails the whole attempt; partial
// problems are never built.
func (g *Generator) buildProblem(payload *problemPayload, source problem.Source) (*problem.Problem, error) {
	if strings.TrimSpace(payload.QuestionHTML) == "" {
		return nil, fmt.Errorf("payload missing questionHtml")
	}
	if len(payload.Options) != len(problem.OptionLetters) {
		return nil, fmt.Errorf("payload has %d options, want %d", len(payload.Options), len(problem.OptionLetters))
	}
	letter := problem.NormalizeOption(payload.CorrectOption)
	if letter == "" {
		return nil, fmt.Errorf("payload has no usable correctOption (%q)", payload.CorrectOption)
	}

	solution := payload.SolutionHTML
	if strings.TrimSpace(solution) == "" {
		solution = "<p>Solution parsing failed.</p>"
	}

	return &problem.Problem{
		ID:            fmt.Sprintf("%s-%s", source, uuid.New().String()),
		Source:        source,
		QuestionHTML:  payload.QuestionHTML,
		SolutionHTML:  solution,
		Images:        []string{},
		Options:       payload.Options,
		CorrectOption: letter,
		Difficulty:    difficultyValue(payload.EstimatedDifficulty),
		Topic:         payload.Topic,
		Hints:         []string{},
		SolutionChat:  []problem.ChatMsg{},
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// difficultyValue maps an untyped difficulty to the 1-10 scale. Numbers are
// rounded and clamped; words map to fixed bands; anything else falls back
// to the placeholder.
func difficultyValue(v any) int {
	switch d := v.(type) {
	case nil:
		return problem.PlaceholderDifficulty
	case float64:
		return problem.ClampDifficulty(int(math.Round(d)))
	case int:
		return problem.ClampDifficulty(d)
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(d), 64); err == nil {
			return problem.ClampDifficulty(int(math.Round(n)))
		}
		word := strings.ToLower(d)
		switch {
		case strings.Contains(word, "very hard"), strings.Contains(word, "olympiad"):
			return 9
		case strings.Contains(word, "hard"):
			return 7
		case strings.Contains(word, "medium"), strings.Contains(word, "moderate"):
			return 5
		case strings.Contains(word, "easy"), strings.Contains(word, "trivial"):
			return 3
		}
	}
	return problem.PlaceholderDifficulty
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

func stripTags(html string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(html, " "))
}

func excerpt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
