package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/contestprep/examforge/pkg/logging"
	"github.com/contestprep/examforge/pkg/problem"
)

// AnswerResolver is the AI fallback for solutions that mark their final
// answer in neither of the deterministic conventions.
type AnswerResolver interface {
	// ResolveAnswer receives an excerpt of solution text and returns a
	// single letter A-E, or a "not found" sentinel.
	ResolveAnswer(ctx context.Context, solutionText string) (string, error)
}

var (
	// The wiki's canonical convention for the final answer is a boxed LaTeX
	// expression, usually \boxed{\textbf{(C) }12}.
	boxedAnswerRe = regexp.MustCompile(`(?i)boxed\s*\{\s*(?:\\(?:textbf|mathbf|text)\s*\{\s*)?\(?\s*([A-E])\b`)

	// Prose fallback: "the answer is (C)".
	proseAnswerRe = regexp.MustCompile(`(?i)answer\s+is\s*:?\s*\(?\s*([A-E])\b`)

	markupTagRe = regexp.MustCompile(`<[^>]*>`)
)

// resolverExcerptLimit bounds how much solution text is sent to the AI
// fallback.
const resolverExcerptLimit = 1000

// AnswerExtractor derives the correct multiple-choice letter from solution
// markup. Strategies are ordered so the deterministic textual conventions
// always win over the paid AI call.
type AnswerExtractor struct {
	resolver AnswerResolver
	log      zerolog.Logger
}

// NewAnswerExtractor creates an answer extractor. resolver may be nil, in
// which case extraction degrades to the deterministic strategies only.
func NewAnswerExtractor(resolver AnswerResolver) *AnswerExtractor {
	return &AnswerExtractor{
		resolver: resolver,
		log:      logging.GetLogger("answer"),
	}
}

// Extract returns a single uppercase letter A-E, or the empty string when
// the answer could not be determined. It never fails assembly of the rest
// of the problem.
func (a *AnswerExtractor) Extract(ctx context.Context, solutionHTML string) string {
	if m := boxedAnswerRe.FindStringSubmatch(solutionHTML); m != nil {
		return strings.ToUpper(m[1])
	}

	text := markupTagRe.ReplaceAllString(solutionHTML, " ")
	if m := proseAnswerRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}

	if a.resolver == nil {
		return ""
	}

	excerpt := strings.TrimSpace(text)
	if len(excerpt) > resolverExcerptLimit {
		excerpt = excerpt[:resolverExcerptLimit]
	}

	resp, err := a.resolver.ResolveAnswer(ctx, excerpt)
	if err != nil {
		a.log.Warn().Err(err).Msg("Answer resolver call failed")
		return ""
	}
	if strings.Contains(strings.ToLower(resp), "not found") {
		return ""
	}
	return problem.NormalizeOption(resp)
}
