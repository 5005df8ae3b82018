package extract

import (
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/contestprep/examforge/pkg/logging"
)

// Normalized is the output of fragment normalization: well-formed markup with
// every src/href absolute, plus the image URLs found, de-duplicated in
// first-occurrence order.
type Normalized struct {
	HTML   string   `json:"html"`
	Images []string `json:"images"`
}

// Normalizer rewrites semi-structured wiki fragments into self-contained
// HTML. The wiki renders LaTeX as images; the normalizer reverses that
// substitution so the math source flows back into the text stream, and
// rewrites relative links and image sources against the wiki host.
type Normalizer struct {
	host string
	log  zerolog.Logger
}

// NewNormalizer creates a normalizer resolving relative URLs against host.
func NewNormalizer(host string) *Normalizer {
	return &Normalizer{
		host: host,
		log:  logging.GetLogger("normalize"),
	}
}

// Normalize is idempotent: running it on already-normalized markup yields
// identical output.
func (nm *Normalizer) Normalize(fragment string) (*Normalized, error) {
	container, err := parseFragment(fragment)
	if err != nil {
		return nil, err
	}

	images := make([]string, 0)
	seen := make(map[string]bool)
	nm.walk(container, &images, seen)

	return &Normalized{
		HTML:   innerHTML(container),
		Images: images,
	}, nil
}

func (nm *Normalizer) walk(n *html.Node, images *[]string, seen map[string]bool) {
	// Children are captured before processing: inlining a LaTeX image
	// replaces the node mid-walk.
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}

	for _, c := range children {
		if c.Type == html.ElementNode {
			switch c.Data {
			case "img":
				nm.rewriteImage(c, images, seen)
				continue
			case "a":
				nm.rewriteLink(c)
			}
		}
		nm.walk(c, images, seen)
	}
}

// rewriteImage either inlines a LaTeX-rendered image back into the text
// stream or absolutizes its source and records it.
func (nm *Normalizer) rewriteImage(img *html.Node, images *[]string, seen map[string]bool) {
	class := attrVal(img, "class")
	alt := attrVal(img, "alt")

	// Inline rendered math unless the alt text is an embedded vector
	// diagram, which only means anything to the wiki's own renderer.
	if strings.Contains(class, "latex") && alt != "" && !strings.Contains(alt, "[asy]") {
		text := &html.Node{Type: html.TextNode, Data: " " + alt + " "}
		img.Parent.InsertBefore(text, img)
		removeNode(img)
		return
	}

	src := attrVal(img, "src")
	switch {
	case strings.HasPrefix(src, "//"):
		src = "https:" + src
		setAttr(img, "src", src)
	case strings.HasPrefix(src, "/"):
		src = "https://" + nm.host + src
		setAttr(img, "src", src)
	}

	if src != "" && !seen[src] {
		seen[src] = true
		*images = append(*images, src)
	}
}

func (nm *Normalizer) rewriteLink(a *html.Node) {
	href := attrVal(a, "href")
	if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
		setAttr(a, "href", "https://"+nm.host+href)
		setAttr(a, "target", "_blank")
	}
}
