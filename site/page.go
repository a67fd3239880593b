package site

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/anchor"
)

// Page is a markdown file rendered to HTML together with its front matter.
type Page struct {
	// Name is the content path without extension, eg "about" or "machines/dmu-50"
	Name string
	Slug string

	Title   string
	Summary string

	// Show the hero banner
	Hero bool

	// Show the quote request form
	QuoteForm bool

	// Name of a listing to attach, currently only "machines"
	List     string
	Machines []*Page

	// Headings of the body, only collected when the front matter sets toc
	TOC []Heading

	FrontMatter map[string]any
	Body        template.HTML
}

// LoadPage reads <ContentRoot>/<name>.md.  A missing file yields an error
// matching os.ErrNotExist.
func (s *Site) LoadPage(name string) (*Page, error) {
	path := filepath.Join(s.ContentRoot, filepath.FromSlash(name)+".md")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fm := map[string]any{}
	rest, err := frontmatter.Parse(f, &fm)
	if err != nil {
		return nil, errors.Wrapf(err, "front matter of %s", path)
	}

	doc := s.md.Parser().Parse(text.NewReader(rest))
	var buf bytes.Buffer
	if err := s.md.Renderer().Render(&buf, rest, doc); err != nil {
		return nil, errors.Wrapf(err, "converting %s", path)
	}

	page := &Page{
		Name:        name,
		Slug:        filepath.Base(name),
		Title:       str(fm, "title"),
		Summary:     str(fm, "summary"),
		Hero:        boolean(fm, "hero"),
		QuoteForm:   str(fm, "form") == "quote",
		List:        str(fm, "list"),
		FrontMatter: fm,
		Body:        template.HTML(s.sanitizer.SanitizeBytes(buf.Bytes())),
	}
	if boolean(fm, "toc") {
		page.TOC = collectHeadings(doc, rest)
	}
	if page.Title == "" {
		page.Title = strings.ReplaceAll(page.Slug, "_", " ")
	}
	return page, nil
}

// Machines loads every page under <ContentRoot>/machines sorted by slug.
func (s *Site) Machines() (out []*Page, err error) {
	entries, err := os.ReadDir(filepath.Join(s.ContentRoot, "machines"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		page, err := s.LoadPage("machines/" + strings.TrimSuffix(e.Name(), ".md"))
		if err != nil {
			return nil, err
		}
		out = append(out, page)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
			&anchor.Extender{},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
			html.WithUnsafe(),
		),
	)
}

// newSanitizer allows user content plus the class and id attributes that
// highlighting and heading anchors produce.
func newSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("id").Globally()
	return p
}

func str(fm map[string]any, key string) string {
	if v, ok := fm[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

func boolean(fm map[string]any, key string) bool {
	v, _ := fm[key].(bool)
	return v
}
