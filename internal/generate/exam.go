package generate

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/contestprep/examforge/internal/catalog"
	"github.com/contestprep/examforge/pkg/logging"
	"github.com/contestprep/examforge/pkg/problem"
)

// ArchiveSource assembles archive problems from catalog tasks; it is the
// acquisition pipeline seen from the exam generator's side.
type ArchiveSource interface {
	Assemble(ctx context.Context, task problem.PrefetchTask) (*problem.Problem, error)
}

// attemptsPerSlot bounds how many candidates may be spent filling one exam
// slot before the slot is given up.
const attemptsPerSlot = 3

// ExamRequest describes one practice exam to assemble.
type ExamRequest struct {
	Count  int            `json:"count"`
	Source problem.Source `json:"source"`
	// Level filters archive problems to one exam family (AMC8/AMC10/AMC12);
	// empty means any.
	Level string `json:"level"`
	// Topic seeds AI generation and mock search.
	Topic string `json:"topic"`
	// Difficulty seeds AI generation.
	Difficulty int `json:"difficulty"`
}

// ExamGenerator fills exam slots from an archive, mock-search or
// AI-generated source. A slot that cannot be filled within its attempt
// budget is silently dropped: callers get fewer problems rather than an
// error.
type ExamGenerator struct {
	archive    ArchiveSource
	generator  *Generator
	catalogCfg *catalog.Config
	log        zerolog.Logger
}

// NewExamGenerator creates an exam generator
func NewExamGenerator(archive ArchiveSource, generator *Generator, catalogCfg *catalog.Config) *ExamGenerator {
	if catalogCfg == nil {
		catalogCfg = catalog.DefaultConfig()
	}
	return &ExamGenerator{
		archive:    archive,
		generator:  generator,
		catalogCfg: catalogCfg,
		log:        logging.GetPipelineLogger("exam", "generate"),
	}
}

// Generate assembles an exam. The returned slice may be shorter than
// requested; it is never padded with partial problems.
func (g *ExamGenerator) Generate(ctx context.Context, req ExamRequest) ([]*problem.Problem, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("exam size must be positive, got %d", req.Count)
	}

	var (
		problems []*problem.Problem
		err      error
	)
	switch req.Source {
	case problem.SourceArchive:
		problems, err = g.fromArchive(ctx, req)
	case problem.SourceOnlineMock:
		problems, err = g.fromMockSearch(ctx, req)
	case problem.SourceAIGenerated:
		problems, err = g.fromAI(ctx, req)
	default:
		return nil, fmt.Errorf("unknown exam source %q", req.Source)
	}
	if err != nil {
		return nil, err
	}

	if len(problems) < req.Count {
		g.log.Warn().
			Int("requested", req.Count).
			Int("filled", len(problems)).
			Msg("Exam shorter than requested")
	}

	// Best-effort grading pass; placeholder difficulties survive a failed
	// batch call.
	if g.generator != nil && len(problems) > 0 {
		if err := g.generator.GradeDifficulties(ctx, problems); err != nil {
			g.log.Warn().Err(err).Msg("Difficulty grading failed, keeping placeholders")
		}
	}

	return problems, nil
}

func (g *ExamGenerator) fromArchive(ctx context.Context, req ExamRequest) ([]*problem.Problem, error) {
	if g.archive == nil {
		return nil, fmt.Errorf("no archive source configured")
	}

	all := catalog.Generate(g.catalogCfg)
	candidates := all[:0:0]
	for _, task := range all {
		if req.Level == "" || task.Level == req.Level {
			candidates = append(candidates, task)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no catalog tasks for level %q", req.Level)
	}

	budget := req.Count * attemptsPerSlot
	problems := make([]*problem.Problem, 0, req.Count)
	for _, i := range rand.Perm(len(candidates)) {
		if len(problems) >= req.Count || budget <= 0 || ctx.Err() != nil {
			break
		}
		budget--

		p, err := g.archive.Assemble(ctx, candidates[i])
		if err != nil || p == nil {
			continue
		}
		problems = append(problems, p)
	}
	return problems, nil
}

func (g *ExamGenerator) fromMockSearch(ctx context.Context, req ExamRequest) ([]*problem.Problem, error) {
	if g.generator == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	query := req.Topic
	if query == "" {
		query = "AMC style competition problems"
	}
	return g.generator.MockSearchProblems(ctx, query, req.Count)
}

func (g *ExamGenerator) fromAI(ctx context.Context, req ExamRequest) ([]*problem.Problem, error) {
	if g.generator == nil {
		return nil, fmt.Errorf("no generator configured")
	}

	problems := make([]*problem.Problem, 0, req.Count)
	for slot := 0; slot < req.Count; slot++ {
		var filled *problem.Problem
		for attempt := 0; attempt < attemptsPerSlot && ctx.Err() == nil; attempt++ {
			p, err := g.generator.GenerateProblem(ctx, req.Topic, req.Difficulty)
			if err != nil {
				g.log.Warn().Err(err).Int("slot", slot).Msg("Generation attempt failed")
				continue
			}
			filled = p
			break
		}
		if filled != nil {
			problems = append(problems, filled)
		}
	}
	return problems, nil
}
