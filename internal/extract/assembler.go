package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/contestprep/examforge/pkg/logging"
	"github.com/contestprep/examforge/pkg/problem"
)

// Fetcher retrieves raw page HTML for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Assembler combines fetch, normalization, segmentation and answer
// extraction into a normalized problem record. A URL that fails extraction
// produces no problem at all; partial records are never assembled.
type Assembler struct {
	fetcher    Fetcher
	normalizer *Normalizer
	segmenter  *Segmenter
	answers    *AnswerExtractor
	log        zerolog.Logger
}

// NewAssembler creates a problem assembler resolving relative URLs against
// host. resolver may be nil to disable the AI answer fallback.
func NewAssembler(fetcher Fetcher, host string, resolver AnswerResolver) *Assembler {
	return &Assembler{
		fetcher:    fetcher,
		normalizer: NewNormalizer(host),
		segmenter:  NewSegmenter(),
		answers:    NewAnswerExtractor(resolver),
		log:        logging.GetPipelineLogger("acquisition", "assemble"),
	}
}

// Assemble runs the full pipeline for one task. A (nil, nil) return means
// the page could not be turned into a problem (fetch failure or
// unrecognizable shape) and was logged; a non-nil error is reserved for
// unexpected failures the caller may want to count separately.
func (a *Assembler) Assemble(ctx context.Context, task problem.PrefetchTask) (*problem.Problem, error) {
	start := time.Now()

	raw, err := a.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		a.log.Warn().Str("task_id", task.ID).Str("url", task.URL).Err(err).
			Msg("Fetch failed, no problem produced")
		return nil, nil
	}

	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", task.URL, err)
	}

	segs, err := a.segmenter.Segment(findContentRoot(doc))
	if err != nil {
		a.log.Warn().Str("task_id", task.ID).Str("url", task.URL).Err(err).
			Msg("Unparseable page shape, no problem produced")
		return nil, nil
	}

	question, err := a.normalizer.Normalize(segs.QuestionHTML)
	if err != nil {
		return nil, fmt.Errorf("normalize question %s: %w", task.URL, err)
	}
	solution, err := a.normalizer.Normalize(segs.SolutionHTML)
	if err != nil {
		return nil, fmt.Errorf("normalize solution %s: %w", task.URL, err)
	}

	letter := a.answers.Extract(ctx, solution.HTML)

	id := task.ID
	if id == "" {
		id = fmt.Sprintf("archive-%s", uuid.New().String())
	}

	p := &problem.Problem{
		ID:            id,
		Source:        problem.SourceArchive,
		OriginalURL:   task.URL,
		QuestionHTML:  question.HTML,
		SolutionHTML:  solution.HTML,
		Images:        question.Images,
		Options:       problem.OptionLetters,
		CorrectOption: letter,
		Difficulty:    problem.PlaceholderDifficulty,
		Hints:         []string{},
		SolutionChat:  []problem.ChatMsg{},
		CreatedAt:     time.Now().UTC(),
	}

	a.log.Debug().
		Str("task_id", p.ID).
		Str("correct_option", letter).
		Int("images", len(p.Images)).
		Dur("duration", time.Since(start)).
		Msg("Problem assembled")

	return p, nil
}

// findContentRoot locates the wiki's rendered-content container, falling
// back to the document body for pages that do not carry one.
func findContentRoot(doc *html.Node) *html.Node {
	if n := findElement(doc, func(n *html.Node) bool {
		return strings.Contains(attrVal(n, "class"), "mw-parser-output")
	}); n != nil {
		return n
	}
	if body := findElement(doc, func(n *html.Node) bool { return n.Data == "body" }); body != nil {
		return body
	}
	return doc
}
