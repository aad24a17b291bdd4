package artifact

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// Info is display metadata derived from a generated artifact. It feeds the
// repository description and logs only; the artifact content itself is never
// validated or rejected here.
type Info struct {
	Title string
}

// Inspect derives display metadata from the artifact. The markup's <title>
// wins; the documentation's first heading is the fallback.
func Inspect(a *Artifact) Info {
	if a == nil {
		return Info{}
	}
	if t := htmlTitle(a.Markup); t != "" {
		return Info{Title: t}
	}
	return Info{Title: firstHeading(a.Documentation)}
}

// htmlTitle returns the text of the first <title> element, or "".
func htmlTitle(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			title = strings.TrimSpace(sb.String())
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// firstHeading returns the text of the first markdown heading, or "".
func firstHeading(doc string) string {
	source := []byte(doc)
	root := goldmark.New().Parser().Parse(gmtext.NewReader(source))
	var heading string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			heading = strings.TrimSpace(string(nodeText(h, source)))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return heading
}

// nodeText collects the raw text segments beneath a node.
func nodeText(n ast.Node, source []byte) []byte {
	var out []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			out = append(out, t.Segment.Value(source)...)
			continue
		}
		out = append(out, nodeText(c, source)...)
	}
	return out
}
