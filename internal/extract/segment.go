package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/contestprep/examforge/pkg/logging"
)

// ErrNoQuestionContent signals a page whose shape could not be segmented
// into a question. It marks a permanent miss for that URL; retrying the
// same markup cannot help.
var ErrNoQuestionContent = errors.New("no question content found")

// solutionFallbackHTML replaces an empty solution accumulator; downstream
// code always expects non-empty solution markup.
const solutionFallbackHTML = "<p>Solution parsing failed.</p>"

// Segments holds the per-section markup accumulated by one segmentation
// pass.
type Segments struct {
	QuestionHTML string `json:"question_html"`
	SolutionHTML string `json:"solution_html"`
}

// Segmenter classifies the top-level sections of a wiki problem page into
// question and solution content, discarding trailing navigation. It is a
// state machine (question -> solution -> done) over the siblings following
// the content root, keyed on level-2 heading text and ids; heading naming
// drifts between years, so matching is substring-based.
type Segmenter struct {
	log zerolog.Logger
}

// NewSegmenter creates a new document segmenter
func NewSegmenter() *Segmenter {
	return &Segmenter{log: logging.GetLogger("segment")}
}

type segmentState int

const (
	stateQuestion segmentState = iota
	stateSolution
)

// Segment walks the children of the content root and accumulates section
// markup. The triggering "Solution" and "See also" headings themselves are
// never accumulated.
func (s *Segmenter) Segment(root *html.Node) (*Segments, error) {
	stripAdministrativa(root)

	start := root.FirstChild
	if h := findProblemHeading(root); h != nil {
		start = h.NextSibling
	}

	var question, solution strings.Builder
	state := stateQuestion

walk:
	for n := start; n != nil; n = n.NextSibling {
		if headingLevel(n) == 2 {
			key := headingKey(n)
			switch {
			case strings.Contains(key, "see also"):
				// Everything from here on is cross-reference navigation.
				break walk
			case strings.Contains(key, "solution"):
				state = stateSolution
				fmt.Fprintf(&solution, `<h4 class="solution-label">%s</h4>`, html.EscapeString(nodeText(n)))
				continue
			case strings.Contains(key, "problem"):
				// A stray "Problem" heading when the walk started at the
				// first child; the heading itself is not content.
				continue
			}
		}

		markup := renderNode(n)
		if strings.TrimSpace(markup) == "" {
			continue
		}
		if state == stateQuestion {
			question.WriteString(markup)
		} else {
			solution.WriteString(markup)
		}
	}

	if strings.TrimSpace(question.String()) == "" {
		return nil, ErrNoQuestionContent
	}

	solutionHTML := solution.String()
	if strings.TrimSpace(solutionHTML) == "" {
		s.log.Debug().Msg("Empty solution accumulator, substituting placeholder")
		solutionHTML = solutionFallbackHTML
	}

	return &Segments{
		QuestionHTML: question.String(),
		SolutionHTML: solutionHTML,
	}, nil
}

// findProblemHeading locates the level-2 heading that opens the question
// section, matched by exact text or id.
func findProblemHeading(root *html.Node) *html.Node {
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if headingLevel(n) != 2 {
			continue
		}
		if strings.EqualFold(nodeText(n), "Problem") || strings.Contains(headingKey(n), "problem") {
			return n
		}
	}
	return nil
}

// headingKey folds a heading's visible text and anchor ids into a single
// lowercase lookup string. Wiki anchors use underscores where the text uses
// spaces.
func headingKey(n *html.Node) string {
	parts := []string{nodeText(n), attrVal(n, "id")}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			if id := attrVal(c, "id"); id != "" {
				parts = append(parts, id)
			}
		}
	}
	key := strings.ToLower(strings.Join(parts, " "))
	return strings.ReplaceAll(key, "_", " ")
}

// redirect/cross-reference stub markers; pages carrying these notices
// duplicate content that lives at another title.
var stubMarkers = []string{
	"following problem is from",
	"redirects to this page",
}

// stripAdministrativa removes table-of-contents blocks and redirect-notice
// stubs before segmentation; they are administrative, not content.
func stripAdministrativa(root *html.Node) {
	var doomed []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attrVal(n, "id") == "toc" || strings.Contains(attrVal(n, "class"), "toc") {
				doomed = append(doomed, n)
				return
			}
			if n.Data == "dl" {
				text := strings.ToLower(nodeText(n))
				for _, marker := range stubMarkers {
					if strings.Contains(text, marker) {
						doomed = append(doomed, n)
						return
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	for _, n := range doomed {
		removeNode(n)
	}
}
