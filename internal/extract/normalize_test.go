package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wikiHost = "artofproblemsolving.com"

func TestNormalizeInlinesLatexImages(t *testing.T) {
	in := `<p>Compute <img class="latexcenter" alt="$\frac{3}{4}+\frac{1}{4}$" src="//latex.artofproblemsolving.com/a/b.png">.</p>`

	out, err := NewNormalizer(wikiHost).Normalize(in)
	require.NoError(t, err)

	assert.Contains(t, out.HTML, `$\frac{3}{4}+\frac{1}{4}$`)
	assert.NotContains(t, out.HTML, "<img")
	assert.Empty(t, out.Images, "inlined math must not be collected as an image")
}

func TestNormalizeKeepsAsymptoteDiagrams(t *testing.T) {
	in := `<p><img class="latexcenter" alt="[asy]draw(unitcircle);[/asy]" src="//latex.artofproblemsolving.com/d/diagram.png"></p>`

	out, err := NewNormalizer(wikiHost).Normalize(in)
	require.NoError(t, err)

	assert.Contains(t, out.HTML, "<img")
	require.Len(t, out.Images, 1)
	assert.Equal(t, "https://latex.artofproblemsolving.com/d/diagram.png", out.Images[0])
}

func TestNormalizeRewritesRelativeSources(t *testing.T) {
	in := `<p><img src="/wiki/images/one.png"><img src="//cdn.example.org/two.png"><img src="https://cdn.example.org/three.png"></p>`

	out, err := NewNormalizer(wikiHost).Normalize(in)
	require.NoError(t, err)

	assert.NotContains(t, out.HTML, `src="/wiki`)
	assert.Equal(t, []string{
		"https://artofproblemsolving.com/wiki/images/one.png",
		"https://cdn.example.org/two.png",
		"https://cdn.example.org/three.png",
	}, out.Images)
}

func TestNormalizeDeduplicatesImagesInFirstSeenOrder(t *testing.T) {
	in := `<p><img src="/a.png"><img src="/b.png"><img src="/a.png"><img src="/c.png"><img src="/b.png"></p>`

	out, err := NewNormalizer(wikiHost).Normalize(in)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://artofproblemsolving.com/a.png",
		"https://artofproblemsolving.com/b.png",
		"https://artofproblemsolving.com/c.png",
	}, out.Images)
}

func TestNormalizeRewritesRelativeLinks(t *testing.T) {
	in := `<p><a href="/wiki/index.php?title=2022_AMC_10A">previous</a> and <a href="https://example.org">external</a></p>`

	out, err := NewNormalizer(wikiHost).Normalize(in)
	require.NoError(t, err)

	assert.Contains(t, out.HTML, `href="https://artofproblemsolving.com/wiki/index.php?title=2022_AMC_10A"`)
	assert.Contains(t, out.HTML, `target="_blank"`)
	assert.Contains(t, out.HTML, `href="https://example.org"`)
}

func TestNormalizeIdempotentOnAbsoluteContent(t *testing.T) {
	in := `<p>Let <img class="latex" alt="$x=2$" src="//latex.artofproblemsolving.com/x.png"> and see <a href="/wiki/Page">here</a>.</p><p><img src="/img/fig.png"></p>`

	nm := NewNormalizer(wikiHost)
	once, err := nm.Normalize(in)
	require.NoError(t, err)
	twice, err := nm.Normalize(once.HTML)
	require.NoError(t, err)

	assert.Equal(t, once.HTML, twice.HTML)
	assert.Equal(t, once.Images, twice.Images)
}

func TestNormalizeToleratesUnbalancedFragments(t *testing.T) {
	out, err := NewNormalizer(wikiHost).Normalize(`<p>unterminated <b>bold`)
	require.NoError(t, err)
	assert.Contains(t, out.HTML, "unterminated")
}
