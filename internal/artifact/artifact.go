// Package artifact models the generated document pair and extracts it from a
// raw generator response.
package artifact

import (
	"regexp"
	"strings"
)

// Artifact is the generated markup/documentation pair for one task.
// Generation is all-or-nothing: a nil *Artifact means the generator produced
// no usable output (soft failure), never a half-filled pair.
type Artifact struct {
	Markup        string // full index.html content
	Documentation string // full README.md content
}

var fenceRe = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)[ \t]*\r?\n(.*?)```")

// markupLabels and docLabels enumerate the fence labels accepted for each
// document of the pair.
var (
	markupLabels = map[string]bool{"html": true, "htm": true}
	docLabels    = map[string]bool{"markdown": true, "md": true}
)

// Extract pulls the document pair out of a raw generator response.
//
// Every fenced block with a markup label contributes to Markup and every
// block with a documentation label contributes to Documentation, in order of
// appearance, trimmed and joined by newline. If either label never appears,
// or the response is empty, the artifact is absent (nil).
func Extract(response string) *Artifact {
	if strings.TrimSpace(response) == "" {
		return nil
	}

	var markup, doc []string
	for _, m := range fenceRe.FindAllStringSubmatch(response, -1) {
		label := strings.ToLower(m[1])
		body := strings.TrimSpace(m[2])
		switch {
		case markupLabels[label]:
			markup = append(markup, body)
		case docLabels[label]:
			doc = append(doc, body)
		}
	}

	if len(markup) == 0 || len(doc) == 0 {
		return nil
	}
	return &Artifact{
		Markup:        strings.Join(markup, "\n"),
		Documentation: strings.Join(doc, "\n"),
	}
}
