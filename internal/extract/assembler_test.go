package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contestprep/examforge/pkg/problem"
)

type stubFetcher struct {
	pages map[string]string
	err   error
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	page, ok := s.pages[url]
	if !ok {
		return "", errors.New("unexpected url: " + url)
	}
	return page, nil
}

const archivePage = `<html><body><div class="mw-parser-output">
<h2><span class="mw-headline" id="Problem">Problem</span></h2>
<p>What is <img class="latex" alt="$1+1$" src="//latex.artofproblemsolving.com/q.png">?</p>
<p><img src="/wiki/images/figure.png"></p>
<h2><span class="mw-headline" id="Solution_1">Solution 1</span></h2>
<p>Adding gives $\boxed{\textbf{(C) }2}$.</p>
<h2><span class="mw-headline" id="See_Also">See Also</span></h2>
<ul><li><a href="/wiki/nav">nav links</a></li></ul>
</div></body></html>`

func archiveTask() problem.PrefetchTask {
	return problem.PrefetchTask{
		URL:      "https://artofproblemsolving.com/wiki/index.php?title=2022_AMC_10A_Problems/Problem_1",
		ID:       "AMC_10A-2022-1",
		Level:    "AMC10",
		Year:     2022,
		ExamType: "AMC_10A",
	}
}

func TestAssembleEndToEnd(t *testing.T) {
	task := archiveTask()
	fetcher := &stubFetcher{pages: map[string]string{task.URL: archivePage}}
	a := NewAssembler(fetcher, wikiHost, nil)

	p, err := a.Assemble(context.Background(), task)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "AMC_10A-2022-1", p.ID)
	assert.Equal(t, problem.SourceArchive, p.Source)
	assert.Equal(t, task.URL, p.OriginalURL)

	assert.Contains(t, p.QuestionHTML, "$1+1$")
	assert.NotContains(t, p.QuestionHTML, "Problem</span>")
	assert.NotContains(t, p.QuestionHTML, "<h2")

	assert.Equal(t, "C", p.CorrectOption)
	assert.Contains(t, p.SolutionHTML, "Adding gives")
	assert.NotContains(t, p.SolutionHTML, "nav links")

	assert.Equal(t, []string{"https://artofproblemsolving.com/wiki/images/figure.png"}, p.Images)
	assert.Equal(t, problem.OptionLetters, p.Options)
	assert.Equal(t, problem.PlaceholderDifficulty, p.Difficulty)
	assert.Empty(t, p.Hints)
	assert.Empty(t, p.SolutionChat)
	assert.NoError(t, p.Validate())
}

func TestAssembleFetchFailureProducesNoProblem(t *testing.T) {
	a := NewAssembler(&stubFetcher{err: errors.New("both proxies down")}, wikiHost, nil)

	p, err := a.Assemble(context.Background(), archiveTask())

	assert.NoError(t, err, "fetch failures are absorbed, not raised")
	assert.Nil(t, p)
}

func TestAssembleUnparseablePageProducesNoProblem(t *testing.T) {
	task := archiveTask()
	page := `<html><body><div class="mw-parser-output"><h2><span id="See_Also">See Also</span></h2></div></body></html>`
	a := NewAssembler(&stubFetcher{pages: map[string]string{task.URL: page}}, wikiHost, nil)

	p, err := a.Assemble(context.Background(), task)

	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestAssembleNeverProducesPartialRecords(t *testing.T) {
	// A page with a question but no recognizable solution still assembles a
	// complete record: the solution carries the placeholder and the answer
	// degrades to the explicit unknown marker.
	task := archiveTask()
	page := `<html><body><div class="mw-parser-output">
<h2><span id="Problem">Problem</span></h2>
<p>Question text here.</p>
</div></body></html>`
	a := NewAssembler(&stubFetcher{pages: map[string]string{task.URL: page}}, wikiHost, nil)

	p, err := a.Assemble(context.Background(), task)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Contains(t, p.SolutionHTML, "Solution parsing failed.")
	assert.Equal(t, "", p.CorrectOption)
	assert.NoError(t, p.Validate())
}
