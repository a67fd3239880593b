package s3freeze

import (
	"bytes"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// refKinds is the closed set of elements whose reference attribute the
// rewriter looks at, keyed by element.
var refKinds = map[atom.Atom]string{
	atom.A:      "href",
	atom.Link:   "href",
	atom.Script: "src",
	atom.Img:    "src",
	atom.Source: "src",
	atom.Video:  "src",
	atom.Audio:  "src",
	atom.Embed:  "src",
}

// PageInfo is what the rewriter noticed about a page.
type PageInfo struct {
	// HasForm is set if the page contains a <form>, which cannot submit
	// anywhere once the page is static.
	HasForm bool

	// Removed lists the basenames of quarantined assets that were replaced
	// by a placeholder.
	Removed []string

	// Missing lists static references whose source file does not exist.
	Missing []string
}

// Rewriter points every asset reference and internal link of a rendered page
// at the export layout.
type Rewriter struct {
	Copier           *Copier
	StaticPrefix     string
	PlaceholderClass string
}

// NewRewriter creates a rewriter that places assets with copier.
func NewRewriter(cfg *Config, copier *Copier) *Rewriter {
	return &Rewriter{
		Copier:           copier,
		StaticPrefix:     cfg.StaticPrefix,
		PlaceholderClass: cfg.PlaceholderClass,
	}
}

// Rewrite parses body, rewrites it for the page exported as page (a path
// relative to the output root, eg "about.html") and serializes it again.
// Asset references are resolved first, then internal links.  The error is
// only set when the document cannot be parsed or an asset copy failed fatally.
func (w *Rewriter) Rewrite(page string, body []byte) ([]byte, PageInfo, error) {
	var info PageInfo
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, info, errors.Wrapf(err, "parsing %s", page)
	}

	refs := collectRefs(doc, &info)
	for _, n := range refs {
		if err := w.rewriteAsset(page, n, &info); err != nil {
			return nil, info, err
		}
	}
	for _, n := range refs {
		if n.DataAtom == atom.A && n.Parent != nil {
			w.rewriteLink(page, n)
		}
	}

	var out bytes.Buffer
	if err := html.Render(&out, doc); err != nil {
		return nil, info, errors.Wrapf(err, "rendering %s", page)
	}
	return out.Bytes(), info, nil
}

// collectRefs walks the tree once and returns the elements of interest in
// document order.  Collecting first lets the passes replace nodes safely.
func collectRefs(n *html.Node, info *PageInfo) (out []*html.Node) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Form {
				info.HasForm = true
			}
			if _, ok := refKinds[n.DataAtom]; ok {
				out = append(out, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return
}

func (w *Rewriter) rewriteAsset(page string, n *html.Node, info *PageInfo) error {
	key := refKinds[n.DataAtom]
	idx := attrIndex(n, key)
	if idx < 0 {
		return nil
	}
	rel, suffix, ok := w.assetRef(n, strings.TrimSpace(n.Attr[idx].Val))
	if !ok {
		return nil
	}
	p, err := w.Copier.Copy(rel)
	if err != nil {
		return err
	}
	switch {
	case p.Missing:
		info.Missing = append(info.Missing, rel)
	case p.Quarantined:
		base := path.Base(p.Rel)
		replaceNode(n, w.placeholder(base))
		info.Removed = append(info.Removed, base)
	default:
		n.Attr[idx].Val = relativeTo(page, p.Output) + suffix
	}
	return nil
}

// assetRef tells if value points into the static tree and, if so, returns
// the static relative path and any query or fragment suffix.
func (w *Rewriter) assetRef(n *html.Node, value string) (rel, suffix string, ok bool) {
	prefix := w.StaticPrefix + "/"
	if strings.HasPrefix(value, prefix) {
		rel, suffix = splitSuffix(strings.TrimPrefix(value, prefix))
		return rel, suffix, rel != ""
	}
	// Anchors may also point at files served from the static root itself,
	// eg /archive.db
	if n.DataAtom == atom.A && isSiteLocal(value) {
		p, sfx := splitSuffix(value)
		p = strings.TrimLeft(p, "/")
		if path.Ext(p) != "" && !strings.HasSuffix(p, ".html") && w.Copier.Exists(p) {
			return p, sfx, true
		}
	}
	return "", "", false
}

func (w *Rewriter) rewriteLink(page string, n *html.Node) {
	idx := attrIndex(n, "href")
	if idx < 0 {
		return
	}
	value := strings.TrimSpace(n.Attr[idx].Val)
	if !isSiteLocal(value) || strings.HasPrefix(value, w.StaticPrefix+"/") {
		return
	}
	p, _ := splitSuffix(value)
	n.Attr[idx].Val = relativeTo(page, OutputName(p))
}

func (w *Rewriter) placeholder(name string) *html.Node {
	span := &html.Node{
		Type:     html.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
		Attr:     []html.Attribute{{Key: "class", Val: w.PlaceholderClass}},
	}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: "[REMOVED BINARY: " + name + "]"})
	return span
}

func replaceNode(old, repl *html.Node) {
	if old.Parent == nil {
		return
	}
	old.Parent.InsertBefore(repl, old)
	old.Parent.RemoveChild(old)
}

func attrIndex(n *html.Node, key string) int {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return i
		}
	}
	return -1
}

// isSiteLocal is true for absolute paths on this site: "/x" but not "//host/x"
// and nothing with a scheme.
func isSiteLocal(v string) bool {
	return strings.HasPrefix(v, "/") && !strings.HasPrefix(v, "//") && !strings.Contains(v, "://")
}

// splitSuffix splits "a/b?x=1#f" into "a/b" and "?x=1#f".
func splitSuffix(v string) (string, string) {
	if i := strings.IndexAny(v, "?#"); i >= 0 {
		return v[:i], v[i:]
	}
	return v, ""
}

// relativeTo turns target (relative to the output root) into a reference
// usable from page.  Top level pages get target back unchanged.
func relativeTo(page, target string) string {
	dir := path.Dir(page)
	if dir == "." || dir == "/" {
		return target
	}
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(target))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}
