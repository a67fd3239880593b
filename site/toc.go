package site

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
)

// Heading is one entry of a page's table of contents.
type Heading struct {
	ID       string    `json:"id"`
	Level    int       `json:"level"`
	Text     string    `json:"text"`
	Children []Heading `json:"children,omitempty"`
}

// collectHeadings walks a parsed markdown document and returns its headings
// as a tree.  IDs are the ones the auto heading id parser option assigned.
func collectHeadings(doc ast.Node, source []byte) (toc []Heading) {
	ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := node.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		h := Heading{Level: heading.Level, Text: headingText(heading, source)}
		if id, found := heading.AttributeString("id"); found {
			if b, ok := id.([]byte); ok {
				h.ID = string(b)
			}
		}
		toc = addHeading(toc, h)
		return ast.WalkSkipChildren, nil
	})
	return
}

func headingText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// addHeading nests h under the last heading of a lower level, or appends it
// at the top.
func addHeading(toc []Heading, h Heading) []Heading {
	if n := len(toc); n > 0 && h.Level > toc[n-1].Level {
		if !nestHeading(&toc[n-1], h) {
			toc = append(toc, h)
		}
		return toc
	}
	return append(toc, h)
}

func nestHeading(parent *Heading, h Heading) bool {
	if n := len(parent.Children); n > 0 && h.Level > parent.Children[n-1].Level {
		return nestHeading(&parent.Children[n-1], h)
	}
	if h.Level > parent.Level {
		parent.Children = append(parent.Children, h)
		return true
	}
	return false
}
